// Package auth resolves opaque bearer tokens to owner identities.
//
// Tokens are stored only as SHA-256 hex digests; the raw token exists in the
// database never and in memory only for the duration of a request. Everything
// behind the middleware trusts the resolved owner id unchecked — ownership
// enforcement lives in the storage layer's scoping, not here.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
)

// ctxKey is the private context key type for the authenticated user.
type ctxKey struct{}

// HashToken returns the SHA-256 hex digest of a raw API token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewToken generates a fresh API token: 32 random bytes, hex encoded.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Authenticator resolves bearer tokens against the user store.
type Authenticator struct {
	users memory.UserStore
}

// NewAuthenticator creates an [Authenticator].
func NewAuthenticator(users memory.UserStore) *Authenticator {
	return &Authenticator{users: users}
}

// Register creates an account and issues its API token. The raw token is
// returned exactly once — afterwards only the digest exists server-side. A
// duplicate email surfaces as KindConflict from the store.
func (a *Authenticator) Register(ctx context.Context, email, displayName string) (*memory.User, string, error) {
	if strings.TrimSpace(email) == "" {
		return nil, "", apperr.New(apperr.KindInvalid, "auth: email must not be empty")
	}
	token, err := NewToken()
	if err != nil {
		return nil, "", err
	}
	user := memory.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		TokenDigest: HashToken(token),
		CreatedAt:   time.Now(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("auth: register: %w", err)
	}
	return &user, token, nil
}

// Authenticate resolves a raw bearer token to its user. An empty or unknown
// token is KindUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*memory.User, error) {
	if token == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "auth: missing bearer token")
	}
	user, err := a.users.GetUserByTokenDigest(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("auth: resolve token: %w", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "auth: unknown token")
	}
	return user, nil
}

// Middleware authenticates the Authorization header and injects the user
// into the request context. Unauthenticated requests get a 401 with a
// WWW-Authenticate challenge.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		user, err := a.Authenticate(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="memoroo"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, user *memory.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the authenticated user, or nil when the request
// did not pass the middleware.
func UserFromContext(ctx context.Context) *memory.User {
	user, _ := ctx.Value(ctxKey{}).(*memory.User)
	return user
}

// OwnerID returns the authenticated user's id, or "" when unauthenticated.
func OwnerID(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return ""
}
