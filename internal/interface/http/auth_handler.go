package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lysnhq/lysn-backend/internal/application"
	"github.com/lysnhq/lysn-backend/internal/interface/middleware"
	"github.com/lysnhq/lysn-backend/pkg/helpers"
	"github.com/lysnhq/lysn-backend/pkg/response"
	"github.com/lysnhq/lysn-backend/pkg/validation"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

// authErrorStatus maps the orchestrator's error taxonomy onto HTTP statuses.
func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, application.ErrInvalidOrExpiredChallenge):
		return http.StatusUnauthorized, "invalid or expired code"
	case errors.Is(err, application.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, application.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, application.ErrUpstreamIdentity):
		return http.StatusBadRequest, "federated login failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	status, msg := authErrorStatus(err)
	if status == http.StatusInternalServerError && h.Logger != nil {
		h.Logger.WithError(err).Error("auth flow failed")
	}
	resp := response.Error[any](c, status, msg, nil)
	c.JSON(resp.Status, resp)
}

func (h *AuthHandler) session(c *gin.Context, res *application.SessionResult, message string) {
	h.Cookies.SetSession(c, res.Token)
	resp := response.Success(c, http.StatusOK, gin.H{
		"session_token": res.Token,
		"email":         res.User.Email,
		"name":          res.User.Name,
		"profile_pic":   res.User.ProfilePicURL,
		"auth_method":   res.User.AuthMethod,
	}, message, nil)
	c.JSON(resp.Status, resp)
}

type requestOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// RequestOTP POST /api/auth/otp/request
// Always 200 for well-formed requests, whether or not the email is known.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	if err := h.Svc.RequestOTP(c.Request.Context(), req.Email, req.Name); err != nil {
		// OTP delivery failure blocks the flow; surface it.
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("email", req.Email).Error("otp issue failed")
		}
		resp := response.Error[any](c, http.StatusInternalServerError, "could not send code", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "OTP sent to email", nil)
	c.JSON(resp.Status, resp)
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
	Name  string `json:"name"`
}

// VerifyOTP POST /api/auth/otp/verify
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	res, err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.session(c, res, "verified")
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.session(c, res, "login successful")
}

type setPasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

// SetPassword POST /api/auth/password (auth required)
func (h *AuthHandler) SetPassword(c *gin.Context) {
	email := c.GetString(middleware.CtxUserEmailKey)
	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), email, req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	resp := response.Success[any](c, http.StatusOK, gin.H{"changed": true}, "password updated", nil)
	c.JSON(resp.Status, resp)
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestReset POST /api/auth/reset/request
// 404 for unregistered emails, unlike the signup flow's always-200.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	resp := response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "reset code sent", nil)
	c.JSON(resp.Status, resp)
}

type resetVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// VerifyReset POST /api/auth/reset/verify
// Confirms possession of the mailed code and returns a single-use ticket;
// no session is issued here.
func (h *AuthHandler) VerifyReset(c *gin.Context) {
	var req resetVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	ticket, err := h.Svc.VerifyPasswordReset(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"reset_ticket": ticket}, "code confirmed", nil)
	c.JSON(resp.Status, resp)
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	ResetTicket string `json:"reset_ticket" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

// CompleteReset POST /api/auth/reset/password
func (h *AuthHandler) CompleteReset(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	if err := h.Svc.CompletePasswordReset(c.Request.Context(), req.Email, req.ResetTicket, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	resp := response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
	c.JSON(resp.Status, resp)
}

// GoogleLogin GET /api/auth/google/login
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := helpers.NewToken(16)
	if err != nil {
		resp := response.Error[any](c, http.StatusInternalServerError, "state generation failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/", h.Cookies.Domain, h.Cookies.Secure, true)
	c.Redirect(http.StatusFound, h.Svc.FederatedLoginURL(state))
}

// GoogleCallback GET /api/auth/google/callback?code=...&state=...
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid oauth state", nil)
		c.JSON(resp.Status, resp)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", h.Cookies.Domain, h.Cookies.Secure, true)

	code := c.Query("code")
	if code == "" {
		resp := response.Error[any](c, http.StatusBadRequest, "missing authorization code", nil)
		c.JSON(resp.Status, resp)
		return
	}
	res, err := h.Svc.FederatedLogin(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.session(c, res, "login successful")
}

// Me POST /api/auth/me (auth required)
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Svc.CurrentUser(c.Request.Context(), middleware.SessionToken(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{
		"email":       u.Email,
		"name":        u.Name,
		"profile_pic": u.ProfilePicURL,
		"auth_method": u.AuthMethod,
		"created_at":  u.CreatedAt,
		"updated_at":  u.UpdatedAt,
	}, "profile", nil)
	c.JSON(resp.Status, resp)
}

// Logout POST /api/auth/logout (auth required). Revocation is idempotent.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil && h.Logger != nil {
		h.Logger.WithError(err).Warn("session revoke failed")
	}
	h.Cookies.Clear(c)
	resp := response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
	c.JSON(resp.Status, resp)
}
