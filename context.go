package authclient

import (
	"context"
	"strconv"
	"time"
)

type requestSourceContextKey struct{}

// WithRequestSource labels the operations run with ctx, for example "cli" or
// "settings-page". The label is copied into audit events.
func WithRequestSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, requestSourceContextKey{}, source)
}

func requestSourceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	source, _ := ctx.Value(requestSourceContextKey{}).(string)
	return source
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
