package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/actortoken"
)

type actorKey struct{}

// AccessTokenParam query параметр с токеном для websocket клиентов,
// которые не могут передать заголовок Authorization
const AccessTokenParam = "access_token"

var (
	msgMissingToken = handlers.Message{KO: "인증 토큰이 필요합니다", EN: "Authentication token is required"}
	msgInvalidToken = handlers.Message{KO: "인증 토큰이 유효하지 않습니다", EN: "Authentication token is invalid"}
	msgExpiredToken = handlers.Message{KO: "인증 토큰이 만료되었습니다", EN: "Authentication token has expired"}
)

// WithActor кладёт актора в контекст
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// GetActor достаёт актора, положенного Auth
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// Auth проверяет токен актора и кладёт domain.Actor в контекст запроса.
// Токен берётся из заголовка Authorization: Bearer или из query параметра access_token.
func Auth(verifier TokenVerifier, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				logger.Warn("%s %s - Missing actor token", r.Method, r.URL.Path)
				handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingToken))
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("%s %s - Invalid actor token: %v", r.Method, r.URL.Path, err)
				msg := msgInvalidToken
				if errors.Is(err, actortoken.ErrTokenExpired) {
					msg = msgExpiredToken
				}
				handlers.RespondUnauthorized(w, handlers.Localize(r, msg))
				return
			}

			actor := domain.Actor{
				UserID:     claims.UserID,
				Role:       domain.Role(claims.Role),
				ProviderID: claims.ProviderID,
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(AccessTokenParam)
}
