package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/middleware"
	"github.com/iliyamo/user-auth-api/internal/service"
)

const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *zap.Logger
}

func NewAuthHandler(a *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: a, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string      `json:"firstname" form:"firstname"`
	LastName  string      `json:"lastname" form:"lastname"`
	Phone     looseString `json:"phone" form:"phone"`
	Email     string      `json:"email" form:"email"`
	Password  string      `json:"password" form:"password"`
	CountryID looseString `json:"country_id" form:"country_id"`
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type forgotReq struct {
	Email string `json:"email" form:"email"`
}

type resetReq struct {
	Password string `json:"password" form:"password"`
}

type loginData struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userPart  `json:"user"`
}

type userData struct {
	User userPart `json:"user"`
}

// Register: POST /register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "Invalid request body.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     string(req.Phone),
		Email:     req.Email,
		Password:  req.Password,
		CountryID: string(req.CountryID),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, userData{User: publicUser(u)}, "User registered.")
}

// Login: POST /login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "Invalid request body.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, loginData{
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresAt: res.ExpiresAt,
		User:      publicUser(res.User),
	}, "")
}

// Logout: POST /logout (protected).  Revokes the presented token only.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return failMsg(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, p); err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, nil, "Logged out.")
}

// Me: GET /me (protected).
func (h *AuthHandler) Me(c echo.Context) error {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return failMsg(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Auth.CurrentUser(ctx, p)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, userData{User: publicUser(u)}, "")
}

// ForgotPassword: POST /forgot/password.  An unknown email answers 200 with
// result 0 and no error object.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "Invalid request body.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Auth.RequestPasswordReset(ctx, req.Email)
	if errors.Is(err, service.ErrEmailNotFound) {
		return failMsg(c, http.StatusOK, "We can't find a user with that email address.")
	}
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, nil, "We have emailed your password reset link.")
}

// ResetPassword: POST /reset/password/:token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "Invalid request body.")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, c.Param("token"), req.Password); err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, nil, "Your password has been reset.")
}

// fail maps service errors to the response envelope.  Anything unexpected
// is logged and answered with a generic 500.
func (h *AuthHandler) fail(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return failFields(c, http.StatusBadRequest, ve.Fields)
	case errors.Is(err, service.ErrAuthentication):
		return failMsg(c, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, service.ErrUnauthenticated):
		return failMsg(c, http.StatusUnauthorized, "Unauthenticated.")
	case errors.Is(err, service.ErrInvalidToken):
		return failFields(c, http.StatusBadRequest, map[string]string{"token": "Invalid Token"})
	case errors.Is(err, service.ErrExpiredToken):
		return failFields(c, http.StatusBadRequest, map[string]string{"token": "Token Expired"})
	}
	h.Log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return failMsg(c, http.StatusInternalServerError, "Server Error")
}
