// Package mcp implements the minimal MCP streamable-HTTP client surge needs:
// the initialize handshake and tools/call invocations, both JSON-RPC 2.0
// envelopes over POST.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cashmeremcp/surge/internal/auth"
	"github.com/cashmeremcp/surge/internal/tracing"
)

const (
	protocolVersion   = "2025-03-26"
	clientName        = "surge"
	clientVersion     = "1.0"
	sessionHeader     = "Mcp-Session-Id"
	maxErrorBodyBytes = 1024
	maxResponseBytes  = 8 << 20
)

// Options configure a Client.
type Options struct {
	ServerURL string
	Tool      string
	Timeout   time.Duration
	Auth      auth.Provider // optional
}

// Client is a thin MCP client pinned to one server and one tool. It is safe
// for concurrent use; all calls share one HTTP connection pool and one MCP
// session.
type Client struct {
	serverURL  string
	tool       string
	httpClient *http.Client
	auth       auth.Provider
	nextID     atomic.Int64

	mu          sync.Mutex
	sessionID   string
	initialized bool
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      *int64      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewClient creates a Client for the given server and tool.
func NewClient(opt Options) *Client {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		serverURL:  strings.TrimRight(opt.ServerURL, "/"),
		tool:       opt.Tool,
		httpClient: &http.Client{Timeout: timeout},
		auth:       opt.Auth,
	}
}

// Tool returns the tool name this client invokes.
func (c *Client) Tool() string { return c.tool }

// Search invokes the configured tool with a single query argument and
// returns the parsed publication items.
func (c *Client) Search(ctx context.Context, query string) ([]SearchPublicationItem, error) {
	result, err := c.CallTool(ctx, c.tool, map[string]interface{}{"query": query})
	if err != nil {
		return nil, err
	}

	if result.Get("isError").Bool() {
		msg := result.Get("content.0.text").String()
		if msg == "" {
			msg = "tool reported an error without detail"
		}
		return nil, &ToolError{Tool: c.tool, Message: msg}
	}

	text := result.Get("content.0.text")
	if !text.Exists() {
		// Servers may return structured content instead of a text block.
		if structured := result.Get("structuredContent.result"); structured.Exists() {
			return decodeSearchItems([]byte(structured.Raw))
		}
		return nil, &APIResponseError{Reason: "tool result has no text content"}
	}

	return decodeSearchItems([]byte(text.String()))
}

// CallTool performs one tools/call invocation and returns the raw result
// object. The MCP session is established lazily on first use and replayed
// on every request via the session header.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (gjson.Result, error) {
	if err := c.ensureSession(ctx); err != nil {
		return gjson.Result{}, err
	}

	id := c.nextID.Add(1)
	result, err := c.post(ctx, rpcRequest{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		// A 404 means the server dropped our session; re-handshake on the
		// next attempt instead of failing every call from here on.
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			c.resetSession()
		}
		return gjson.Result{}, err
	}
	return result, nil
}

// Close ends the MCP session and closes the auth provider.
func (c *Client) Close() error {
	c.resetSession()
	if c.auth != nil {
		return c.auth.Close()
	}
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	id := c.nextID.Add(1)
	result, header, err := c.postLocked(ctx, rpcRequest{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]interface{}{},
			"clientInfo": map[string]interface{}{
				"name":    clientName,
				"version": clientVersion,
			},
		},
	}, "")
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if !result.Get("protocolVersion").Exists() {
		return &APIResponseError{Reason: "initialize result missing protocolVersion"}
	}

	sessionID := header.Get(sessionHeader)

	if _, _, err := c.postLocked(ctx, rpcRequest{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	}, sessionID); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	c.sessionID = sessionID
	c.initialized = true
	return nil
}

func (c *Client) resetSession() {
	c.mu.Lock()
	c.sessionID = ""
	c.initialized = false
	c.mu.Unlock()
}

func (c *Client) post(ctx context.Context, req rpcRequest) (gjson.Result, error) {
	c.mu.Lock()
	session := c.sessionID
	c.mu.Unlock()
	result, _, err := c.postLocked(ctx, req, session)
	return result, err
}

// postLocked sends one JSON-RPC envelope and decodes the response, which may
// arrive as plain JSON or as a single SSE data event depending on the
// server's streamable-HTTP implementation.
func (c *Client) postLocked(ctx context.Context, req rpcRequest, sessionID string) (gjson.Result, http.Header, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return gjson.Result{}, nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		httpReq.Header.Set(sessionHeader, sessionID)
	}
	if c.auth != nil {
		if err := c.auth.InjectHeader(ctx, httpReq); err != nil {
			return gjson.Result{}, nil, err
		}
	}
	tracing.InjectHTTPHeaders(ctx, httpReq.Header)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return gjson.Result{}, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		io.Copy(io.Discard, resp.Body)
		return gjson.Result{}, nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	// Notifications get no envelope back.
	if req.ID == nil {
		io.Copy(io.Discard, resp.Body)
		return gjson.Result{}, resp.Header, nil
	}

	body, err := readEnvelope(resp)
	if err != nil {
		return gjson.Result{}, nil, err
	}

	envelope := gjson.ParseBytes(body)
	if rpcErr := envelope.Get("error"); rpcErr.Exists() {
		return gjson.Result{}, nil, &RPCError{
			Code:    int(rpcErr.Get("code").Int()),
			Message: rpcErr.Get("message").String(),
		}
	}

	result := envelope.Get("result")
	if !result.Exists() {
		return gjson.Result{}, nil, &APIResponseError{Reason: "envelope has neither result nor error"}
	}
	return result, resp.Header, nil
}

// readEnvelope returns the JSON-RPC envelope from the response body,
// unwrapping the first data event when the server replied over SSE.
func readEnvelope(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, maxResponseBytes)

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		body, err := io.ReadAll(limited)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	}

	scanner := bufio.NewScanner(limited)
	scanner.Buffer(make([]byte, 64*1024), maxResponseBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data != "" {
				return []byte(data), nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	return nil, &APIResponseError{Reason: "event stream ended without a data event"}
}
