package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/middleware"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// TokenRequest is the optional body of POST /auth/token. The key may also be
// sent in the X-API-Key header.
type TokenRequest struct {
	APIKey  string `json:"api_key"`
	Subject string `json:"subject"`
}

// AuthHandler exchanges the API key for a bearer token
type AuthHandler struct {
	auth *middleware.Authenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *middleware.Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// IssueToken handles POST /api/v1/auth/token
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	_ = c.ShouldBindJSON(&req)
	key := c.GetHeader(middleware.APIKeyHeader)
	if key == "" {
		key = req.APIKey
	}
	if !h.auth.CheckAPIKey(key) {
		response.Error(c, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}

	token, expires, err := h.auth.IssueToken(req.Subject)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to issue token", nil)
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expires.UTC(),
	})
}
