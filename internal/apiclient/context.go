package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type requestIDKey struct{}

// WithRequestID stores the portal request id so it is forwarded upstream.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Path formats a resource path escaping every identifier segment.
//
//	Path("/student-medications/%s/administer", id)
func Path(format string, ids ...string) string {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(strings.TrimSpace(id))
	}
	return fmt.Sprintf(format, args...)
}

// Blank reports whether a required identifier is missing.
func Blank(id string) bool {
	return strings.TrimSpace(id) == ""
}
