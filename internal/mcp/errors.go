package mcp

import "fmt"

// HTTPError represents a transport-level failure with status details.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Kind returns the classification used by the error breakdown.
func (e *HTTPError) Kind() string { return "HTTPError" }

// RPCError represents a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *RPCError) Kind() string { return "RPCError" }

// ToolError represents a tool call that completed but reported isError.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

func (e *ToolError) Kind() string { return "ToolError" }

// APIResponseError represents a response whose shape did not match the
// expected schema.
type APIResponseError struct {
	Reason string
}

func (e *APIResponseError) Error() string {
	return fmt.Sprintf("unexpected API response: %s", e.Reason)
}

func (e *APIResponseError) Kind() string { return "APIResponseError" }
