package api

import (
	"context"
	"net/http"
	"strings"
)

// HeaderUserID — заголовок с идентификатором пользователя (только dev-режим).
const HeaderUserID = "X-User-ID"

type userKey struct{}

// WithUserID добавляет идентификатор пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID возвращает идентификатор пользователя из контекста.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// Authenticator сопоставляет bearer-токены пользователям.
type Authenticator struct {
	tokens      map[string]string
	trustHeader bool
}

// NewAuthenticator создаёт Authenticator.
//
// tokens — токен → пользователь. trustHeader разрешает передавать
// пользователя заголовком X-User-ID без токена.
func NewAuthenticator(tokens map[string]string, trustHeader bool) *Authenticator {
	cp := make(map[string]string, len(tokens))
	for token, user := range tokens {
		cp[token] = user
	}
	return &Authenticator{tokens: cp, trustHeader: trustHeader}
}

// ParseTokens разбирает пары "token:user".
func ParseTokens(pairs []string) map[string]string {
	tokens := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		token, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || token == "" || user == "" {
			continue
		}
		tokens[token] = user
	}
	return tokens
}

// Identify возвращает пользователя запроса или пустую строку.
func (a *Authenticator) Identify(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return ""
		}
		return a.tokens[strings.TrimSpace(token)]
	}
	if a.trustHeader {
		return strings.TrimSpace(r.Header.Get(HeaderUserID))
	}
	return ""
}

// RequireUser отклоняет запросы без пользователя (401).
func RequireUser(a *Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := a.Identify(r)
			if userID == "" {
				Unauthorized(w, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
