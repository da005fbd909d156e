package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kinder is implemented by errors that carry their own classification,
// used to bucket failures in the error breakdown.
type Kinder interface {
	Kind() string
}

const maxKindLen = 40

// Kind classifies an error for the breakdown. Errors implementing Kinder
// name themselves; context errors get stable labels; anything else falls
// back to its Go type name, mirroring how the old Python scripts bucketed
// by exception class name.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "DeadlineExceeded"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	}

	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, "."); idx != -1 {
		name = name[idx+1:]
	}
	if name == "errorString" || name == "wrapError" {
		return "Error"
	}
	if len(name) > maxKindLen {
		name = name[:maxKindLen]
	}
	return name
}
