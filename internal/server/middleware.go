package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/authorization"
)

const contextIdentityKey = "identity"

// AuthRequired parses the bearer token and stores the identity on the
// request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authSvc.ParseToken(strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

// RequireRoles rejects identities outside the allowed role set.
func RequireRoles(roles ...authdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !authorization.Allowed(identity.Role, roles...) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (authdomain.Identity, bool) {
	value, exists := c.Get(contextIdentityKey)
	if !exists {
		return authdomain.Identity{}, false
	}
	identity, ok := value.(authdomain.Identity)
	return identity, ok
}
