// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/shardgate/shardgate/internal/account"
)

type contextKey int

const claimsKey contextKey = iota

// ClaimsFromContext returns the session claims attached by requireAuth.
func ClaimsFromContext(ctx context.Context) (*account.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*account.Claims)
	return claims, ok
}

// requireAuth wraps a handler with Bearer-token validation. The claims
// are attached to the request context for the wrapped handler.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", oops.Code("TOKEN_INVALID").Errorf("missing authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", oops.Code("TOKEN_INVALID").Errorf("malformed authorization header")
	}
	return token, nil
}
