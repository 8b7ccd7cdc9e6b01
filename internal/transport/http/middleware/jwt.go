package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gopher-auth/internal/app"
	"gopher-auth/internal/pkg/jwtutil"
	"gopher-auth/internal/transport/http/response"
)

const (
	ContextPrincipalKey = "auth.principal"

	MsgNoToken      = "Unauthorized - No Token Provided"
	MsgInvalidToken = "Unauthorized - Invalid Token"
)

type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthJWT resolves the session token into an app.Principal. The token is read
// from the session cookie, then from an "Authorization: Bearer" header.
func AuthJWT(secret, cookieName string, denylist RevocationChecker, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, MsgNoToken)
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, MsgInvalidToken)
			return
		}

		if denylist != nil {
			revoked, err := denylist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error().Err(err).Str("handler", "auth_middleware").Msg("check token revocation failed")
				response.Abort(c, http.StatusInternalServerError, response.MsgInternalServerError)
				return
			}
			if revoked {
				response.Abort(c, http.StatusUnauthorized, MsgInvalidToken)
				return
			}
		}

		c.Set(ContextPrincipalKey, app.Principal{
			UserID:    claims.UserID,
			TokenID:   claims.ID,
			ExpiresAt: claims.Expiry(),
		})
		c.Next()
	}
}

func TokenFromRequest(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}

	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if strings.HasPrefix(authHeader, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	}
	return ""
}

func PrincipalFrom(c *gin.Context) (app.Principal, bool) {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return app.Principal{}, false
	}
	principal, ok := value.(app.Principal)
	if !ok || principal.UserID == "" {
		return app.Principal{}, false
	}
	return principal, true
}
