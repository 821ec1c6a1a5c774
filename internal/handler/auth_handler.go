package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-stats-api/internal/models"
	"github.com/noah-isme/lms-stats-api/internal/service"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate dashboard user
// @Description Authenticate by username and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password are required."})
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		// The login page expects the success flag alongside the message.
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, gin.H{"success": false, "error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, res)
}
