package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const clientIDKey contextKey = "client_id"

func setClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

// ClientID returns the caller identity set by Authenticate: "key:<prefix>"
// for API keys, "ip:<host>" when auth is disabled.
func ClientID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(clientIDKey).(string)
	return id, ok
}
