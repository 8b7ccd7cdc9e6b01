package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gopher-auth/internal/app"
	"gopher-auth/internal/model"
	"gopher-auth/internal/transport/http/middleware"
	"gopher-auth/internal/transport/http/response"
)

const (
	msgInvalidBody     = "Invalid request body"
	msgUserNotFound    = "Unauthorized - User not found"
	msgLoggedOut       = "Logged out successfully"
	msgAuthorized      = "Authorized"
	msgAccountDeleted  = "Account deleted successfully"
	msgSignupSucceeded = "User %s created sucessfully."
	msgLoginSucceeded  = "Logged as %s sucessfully."
)

type AuthHandler struct {
	authService *app.AuthService
	cookie      CookieConfig
	logger      zerolog.Logger
}

type SignupRequest struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type sessionResponse struct {
	User    *model.User `json:"user"`
	Message string      `json:"message"`
}

func NewAuthHandler(authService *app.AuthService, cookie CookieConfig, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), app.SignupInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput),
			errors.Is(err, app.ErrUsernameExists),
			errors.Is(err, app.ErrEmailExists):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			h.internalError(c, "signup", err)
		}
		return
	}

	setSessionCookie(c, h.cookie, result.Token, result.ExpiresAt)
	response.JSON(c, http.StatusCreated, authResponse{
		UserID:  result.User.ID,
		Message: fmt.Sprintf(msgSignupSucceeded, result.User.Username),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Username: req.Username,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput),
			errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			h.internalError(c, "login", err)
		}
		return
	}

	setSessionCookie(c, h.cookie, result.Token, result.ExpiresAt)
	response.JSON(c, http.StatusCreated, authResponse{
		UserID:  result.User.ID,
		Message: fmt.Sprintf(msgLoginSucceeded, result.User.Username),
	})
}

// Logout needs no authentication and always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.authService.Logout(c.Request.Context(), middleware.TokenFromRequest(c, h.cookie.Name))
	clearSessionCookie(c, h.cookie)
	response.Message(c, http.StatusOK, msgLoggedOut)
}

// Check must run behind middleware.AuthJWT.
func (h *AuthHandler) Check(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, middleware.MsgInvalidToken)
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), principal)
	if err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			clearSessionCookie(c, h.cookie)
			response.Error(c, http.StatusUnauthorized, msgUserNotFound)
			return
		}
		h.internalError(c, "authCheck", err)
		return
	}

	response.JSON(c, http.StatusOK, sessionResponse{User: user, Message: msgAuthorized})
}

// DeleteAccount must run behind middleware.AuthJWT.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, middleware.MsgInvalidToken)
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), principal); err != nil {
		h.internalError(c, "deleteAccount", err)
		return
	}

	clearSessionCookie(c, h.cookie)
	response.Message(c, http.StatusOK, msgAccountDeleted)
}

func (h *AuthHandler) internalError(c *gin.Context, handlerName string, err error) {
	h.logger.Error().Str("handler", handlerName).Err(err).Msg("request failed")
	response.Error(c, http.StatusInternalServerError, response.MsgInternalServerError)
}
