package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Private context key type
type contextKey struct{ name string }

var viewerCtxKey = &contextKey{"viewer_id"}

// ViewerClaims are the claims of an access token issued by the identity service.
type ViewerClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Validate returns the viewer id carried by the token (subject, falling back to user_id).
func (a *Authenticator) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*ViewerClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	return "", errors.New("token has no subject")
}

// Middleware resolves the viewer. Listings are public: a request without
// Authorization goes through anonymously, a bad token is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid token format")
			return
		}

		viewerID, err := a.Validate(tokenStr)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), viewerCtxKey, viewerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ViewerFromContext returns the authenticated viewer id, or "" for anonymous requests.
func ViewerFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(viewerCtxKey).(string)
	return raw
}
