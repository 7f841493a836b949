// Package middleware provides HTTP middleware for the certification API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/policy"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

type contextKey int

const actorKey contextKey = iota

// Auth validates bearer tokens and attaches the actor to the request
// context.
type Auth struct {
	secret []byte
	log    *logger.Logger
}

// NewAuth creates the auth middleware.
func NewAuth(secret string, log *logger.Logger) *Auth {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Auth{secret: []byte(secret), log: log}
}

// Handler rejects requests without a valid bearer token.
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.reject(w, r, apperr.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			a.reject(w, r, apperr.Unauthorized("invalid Authorization header format"))
			return
		}

		actor, err := a.parseToken(parts[1])
		if err != nil {
			a.log.WithError(err).WithField("path", r.URL.Path).Warn("token validation failed")
			a.reject(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func (a *Auth) parseToken(tokenString string) (policy.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return policy.Actor{}, apperr.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return policy.Actor{}, apperr.Unauthorized("malformed token claims")
	}

	actor := policy.Actor{
		UserID:      stringClaim(claims, "userId"),
		Role:        user.Role(stringClaim(claims, "role")),
		Email:       stringClaim(claims, "email"),
		DeveloperID: stringClaim(claims, "developerId"),
	}
	if actor.UserID == "" || !actor.Role.Valid() {
		return policy.Actor{}, apperr.Unauthorized("token carries no usable identity")
	}
	return actor, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func (a *Auth) reject(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.StatusFor(err))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": err.Error(),
	})
}

// WithActor stores the authenticated actor in ctx.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom extracts the authenticated actor from ctx.
func ActorFrom(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(policy.Actor)
	return actor, ok
}
