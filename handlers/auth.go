// File: handlers/auth.go
package handlers

import (
	"net/http"
	"strings"

	"slotwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// MintTokenRequest is the payload the portal backend sends to exchange
// its admin credential for a user-scoped token.
type MintTokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AuthHandler issues and revokes the portal tokens this service
// validates. The portal backend authenticates its users itself and then
// mints a token here on their behalf.
type AuthHandler struct {
	AuthCache *redis.Client
}

func NewAuthHandler(authCache *redis.Client) *AuthHandler {
	return &AuthHandler{AuthCache: authCache}
}

// MintToken issues a signed token for the given user and registers its
// hash so the auth middleware accepts it. Admin-guarded.
func (h *AuthHandler) MintToken(c *gin.Context) {
	var req MintTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	token, err := utils.GenerateToken(req.UserID, utils.AuthTokenTTL)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if err := utils.RegisterAuthToken(h.AuthCache, req.UserID, utils.HashToken(token)); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(utils.AuthTokenTTL.Seconds()),
	})
}

// Logout revokes the caller's own token. Subsequent requests carrying
// it fail the liveness check even though the signature stays valid.
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if err := utils.RevokeAuthToken(h.AuthCache, utils.HashToken(tokenString)); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
