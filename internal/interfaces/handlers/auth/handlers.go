package auth

import (
	"context"
	"errors"
	"strings"

	authsvc "marketplace-backend/internal/application/auth"
	"marketplace-backend/internal/domain"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
	// FrontendURL is where the magic link callback redirects to.
	FrontendURL string
}

type otpRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// RequestOTP POST /api/v1/auth/otp
func (h *Handlers) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, authsvc.ErrEmailRequired.Error())
	}
	if err := h.Service.RequestOTP(c.UserContext(), req.Email); err != nil {
		if errors.Is(err, authsvc.ErrEmailRequired) || errors.Is(err, authsvc.ErrInvalidEmail) {
			return response.BadRequest(c, err.Error())
		}
		middleware.Logger(c).Error().Err(err).Msg("auth: otp request failed")
		return response.Error(c, "Failed to send login code", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Check your email for the login link!", nil, nil)
}

// Verify POST /api/v1/auth/verify
func (h *Handlers) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, authsvc.ErrTokenRequired.Error())
	}
	user, err := h.Service.Verify(c.UserContext(), req.Email, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrTokenRequired):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, authsvc.ErrInvalidToken):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		}
		middleware.Logger(c).Error().Err(err).Msg("auth: verify failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	if err := h.startSession(c, user); err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Signed in successfully", fiber.Map{
		"user": authsvc.SessionUser{UserID: user.ID.String(), Email: user.Email},
	}, nil)
}

// Callback GET /api/v1/auth/callback is the magic link target.
func (h *Handlers) Callback(c *fiber.Ctx) error {
	base := strings.TrimRight(h.FrontendURL, "/")
	user, err := h.Service.Verify(c.UserContext(), c.Query("email"), c.Query("token"))
	if err != nil {
		log.Info().Err(err).Msg("auth: magic link rejected")
		return c.Redirect(base+"/auth/auth-code-error", fiber.StatusSeeOther)
	}
	if err := h.startSession(c, user); err != nil {
		return c.Redirect(base+"/auth/auth-code-error", fiber.StatusSeeOther)
	}
	next := c.Query("next", "/")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	return c.Redirect(base+next, fiber.StatusSeeOther)
}

// startSession issues a fresh session id for user, tracks it under
// user_sessions:<id> and sets the cookie.
func (h *Handlers) startSession(c *fiber.Ctx, user *domain.User) error {
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID: user.ID.String(),
		Email:  user.Email,
	})
	if err := h.Rdb.SAdd(c.UserContext(), middleware.UserSessionsPrefix+user.ID.String(), sessionID).Err(); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("auth: track session failed")
		return err
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)
	return nil
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		if middleware.GetSessionID(c) == "" {
			log.Debug().Bool("cookie_present", c.Cookies(middleware.SessionCookieName) != "").
				Msg("auth/me: no session id")
		}
		return response.Error(c, authsvc.ErrNotAuthenticated.Error(), fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout ends the session and announces it, which
// closes the user's live unread-count connections.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	user, _ := authsvc.VerifyUser(middleware.GetUser(c))

	ctx := context.Background()
	if user != nil && sessionID != "" {
		_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+user.UserID, sessionID).Err()
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)
	h.Service.SignOut(user)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

// LogoutAll DELETE /api/v1/auth/sessions signs the user out on every device.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	n, err := middleware.DestroyUserSessions(c.UserContext(), h.Rdb, user.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID).Msg("auth: destroy sessions failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	middleware.DestroySession(c)
	h.Service.SignOut(user)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Signed out on all devices", fiber.Map{"sessions": n}, nil)
}
