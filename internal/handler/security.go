package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/auth"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "api_key"

type ctxKey int

const (
	apiKeyCtxKey ctxKey = iota
	customerCtxKey
)

// requireAPIKey rejects requests without a valid admin API key.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeFail(w, http.StatusUnauthorized, auth.ErrUnauthorized.Error())
			return
		}
		info, err := h.Keys.Authenticate(r.Context(), key)
		if err != nil {
			if statusOf(err) == http.StatusUnauthorized {
				writeFail(w, http.StatusUnauthorized, auth.ErrUnauthorized.Error())
				return
			}
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), apiKeyCtxKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalCustomer identifies the caller from a bearer token when one is
// present. An invalid token is ignored and the request proceeds as a guest.
func (h *Handler) optionalCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || h.Tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := h.Tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			zctx.From(r.Context()).Debug("Ignoring customer token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), customerCtxKey, id)))
	})
}

func customerFrom(ctx context.Context) string {
	id, _ := ctx.Value(customerCtxKey).(string)
	return id
}
