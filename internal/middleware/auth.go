package middleware

import (
	"net/http"
	"strings"

	"warehouse-service/internal/dto"
	"warehouse-service/internal/service"
	"warehouse-service/internal/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys for user info
const (
	CtxUserID   = "user_id"
	CtxUserRole = "user_role"
)

type TokenVerifier interface {
	ParseAndValidate(token string) (*token.Claims, error)
}

// AuthRequired validates the Bearer access token and attaches the caller's identity
// and capability set to the request context.
func AuthRequired(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		raw, ok := ExtractBearerToken(authz)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("empty token"))
			return
		}

		claims, err := verifier.ParseAndValidate(raw)
		if err != nil {
			log.Warn("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		role := service.Role(strings.ToLower(claims.Role))
		ctx := service.WithUserID(c.Request.Context(), claims.UserID)
		ctx = service.WithCapabilities(ctx, service.CapabilitiesForRole(role))
		c.Request = c.Request.WithContext(ctx)

		c.Set(CtxUserID, claims.UserID.String())
		c.Set(CtxUserRole, string(role))
		c.Next()
	}
}

// ExtractBearerToken pulls the token out of an Authorization header, tolerating quotes
// and trailing junk:
//   - "Bearer abc.def.ghi"
//   - "Bearer \"abc.def.ghi\""
//   - "Bearer abc.def.ghi, extra"
func ExtractBearerToken(authz string) (string, bool) {
	scheme, rest, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(rest), " \"'")
	if head, _, cut := strings.Cut(t, ","); cut {
		t = strings.Trim(head, " \"'")
	}
	if head, _, cut := strings.Cut(t, " "); cut {
		t = head
	}
	return strings.Trim(t, " \"'"), true
}
