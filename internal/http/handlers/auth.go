package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/Reinhardt254/online-bookstore/internal/auth"
	"github.com/Reinhardt254/online-bookstore/internal/config"
	"github.com/Reinhardt254/online-bookstore/internal/domain/user"
	"github.com/Reinhardt254/online-bookstore/internal/http/middlewares"
	"github.com/Reinhardt254/online-bookstore/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keep these small interfaces so tests can fake them easily.
type AuthService interface {
	ValidateCredentials(ctx context.Context, email, password string) (user.User, error)
	Login(u user.User) (auth.LoginResult, error)
	Register(ctx context.Context, email, password string, firstName, lastName *string) (auth.LoginResult, error)
	GoogleLogin(ctx context.Context, p auth.GoogleProfile) (auth.LoginResult, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	Profile(u user.User) user.User
}

type GoogleFlow interface {
	AuthCodeURL(state string) string
	FetchProfile(ctx context.Context, code string) (auth.GoogleProfile, error)
}

type AuthHandler struct {
	svc     AuthService
	google  GoogleFlow
	metrics *observability.Prom
	cfg     config.Config
}

func NewAuthHandler(svc AuthService, google GoogleFlow, metrics *observability.Prom, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		google:  google,
		metrics: metrics,
		cfg:     cfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=6,max=50"`
	FirstName *string `json:"firstName" binding:"omitempty,max=50"`
	LastName  *string `json:"lastName" binding:"omitempty,max=50"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=50"`
}

func (h *AuthHandler) observeLogin(flow, result string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(flow, result)
	}
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.svc.ValidateCredentials(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.observeLogin("password", "denied")
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		h.observeLogin("password", "error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	result, err := h.svc.Login(foundUser)

	if err != nil {
		h.observeLogin("password", "error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.observeLogin("password", "ok")
	ctx.JSON(http.StatusOK, result)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	result, err := h.svc.Register(cctx, req.Email, req.Password, req.FirstName, req.LastName)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "user_exists", "User already exists.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, result)
}

// Google OAuth handlers

const oauthStateCookie = "oauth_state"

func (h *AuthHandler) GoogleRedirect(ctx *gin.Context) {
	if h.google == nil {
		RespondError(ctx, http.StatusServiceUnavailable, "google_disabled", "Google login is not configured.", nil)
		return
	}

	state := uuid.NewString()

	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/auth", "", secure, true)

	ctx.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

func (h *AuthHandler) GoogleCallback(ctx *gin.Context) {
	if h.google == nil {
		RespondError(ctx, http.StatusServiceUnavailable, "google_disabled", "Google login is not configured.", nil)
		return
	}

	state := ctx.Query("state")
	cookieState, err := ctx.Cookie(oauthStateCookie)

	if err != nil || state == "" || state != cookieState {
		h.observeLogin("google", "denied")
		RespondUnAuthorized(ctx, "invalid_state", "OAuth state mismatch.")
		return
	}

	code := ctx.Query("code")

	if code == "" {
		h.observeLogin("google", "denied")
		RespondBadRequest(ctx, "Missing authorization code", nil)
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	profile, err := h.google.FetchProfile(cctx, code)

	if err != nil {
		h.observeLogin("google", "error")
		RespondUnAuthorized(ctx, "google_auth_failed", "Could not verify Google account.")
		return
	}

	result, err := h.svc.GoogleLogin(cctx, profile)

	if err != nil {
		if errors.Is(err, auth.ErrProfileWithoutEmail) {
			h.observeLogin("google", "denied")
			RespondBadRequest(ctx, "Google profile has no email address", nil)
			return
		}

		h.observeLogin("google", "error")
		RespondInternal(ctx, "Could not log in with Google")
		return
	}

	h.observeLogin("google", "ok")

	// hand the token back to the frontend as a query parameter
	redirect := h.cfg.GoogleSuccessURL + "?" + url.Values{"token": {result.Token}}.Encode()

	ctx.Redirect(http.StatusFound, redirect)
}

func (h *AuthHandler) Profile(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	ctx.JSON(http.StatusOK, h.svc.Profile(u))
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.svc.ChangePassword(cctx, u.ID, req.CurrentPassword, req.NewPassword)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Current password is incorrect.")
			return
		}

		RespondInternal(ctx, "Could not change password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Password updated successfully",
	})
}
