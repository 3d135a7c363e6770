package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mizphses/kips/internal/common"
	"github.com/mizphses/kips/internal/server/auth"
)

// emailKey is the gin context key carrying the authenticated account email.
const emailKey = "email"

// requireAuth authenticates the request via the Authorization header
// (bearer token) or, failing that, an API key header resolved through the
// reverse index. All denials look alike to the client.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if header := c.GetHeader(common.AuthorizationHeaderName); header != "" {
			token, ok := auth.FromAuthHeader(header)
			if !ok {
				s.unauthorized(c)
				return
			}

			email, valid, err := s.accounts.AuthenticateByToken(ctx, token)
			if err != nil {
				s.storeFailure(c, err)
				return
			}
			if !valid {
				s.logger.Debug(ctx, "bearer auth denied", "token", token)
				s.unauthorized(c)
				return
			}

			c.Set(emailKey, email)
			c.Next()
			return
		}

		if apiKey := c.GetHeader(common.APIKeyHeaderName); apiKey != "" {
			email, err := s.accounts.ResolveEmailByAPIKey(ctx, apiKey)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					s.logger.Debug(ctx, "api key auth denied")
					s.unauthorized(c)
					return
				}
				s.storeFailure(c, err)
				return
			}

			c.Set(emailKey, email)
			c.Next()
			return
		}

		s.unauthorized(c)
	}
}

func (s *Server) unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
}

func (s *Server) storeFailure(c *gin.Context, err error) {
	s.logger.Error(c.Request.Context(), "store failure", "error", err.Error())
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}

// authedEmail returns the email set by requireAuth.
func authedEmail(c *gin.Context) string {
	return c.GetString(emailKey)
}
