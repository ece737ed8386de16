package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trading-network/internal/middleware"
	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/service"
)

// AuthService is the account behaviour the public auth endpoints need.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Verify(ctx context.Context, token string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.TokenPair, error)
	Refresh(ctx context.Context, raw string) (*service.TokenPair, error)
	Logout(ctx context.Context, raw string, userID uint64) error
}

// AuthHandler bundles the registration and session endpoints.
type AuthHandler struct {
	Accounts AuthService
}

func NewAuthHandler(accounts AuthService) *AuthHandler {
	return &AuthHandler{Accounts: accounts}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshReq accepts the token under either key.
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
	Refresh      string `json:"refresh"`
}

func (r refreshReq) token() string {
	if t := strings.TrimSpace(r.RefreshToken); t != "" {
		return t
	}
	return strings.TrimSpace(r.Refresh)
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func pairResponse(p *service.TokenPair) authResp {
	return authResp{
		User:    userPart{ID: p.User.ID, Username: p.User.Username, Email: p.User.Email, Role: p.User.Role},
		Access:  tokenPart{Token: p.Access.Token, Expires: p.Access.Exp},
		Refresh: tokenPart{Token: p.Refresh.Raw, Expires: p.Refresh.Exp}, // raw back to client
	}
}

// Register creates an inactive account; the confirmation link is sent
// through the task queue.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.Register(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"message":  "Registration successful. Check your email to confirm your account.",
	})
}

// Confirm consumes a verification token from the emailed link.
func (h *AuthHandler) Confirm(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.Verify(ctx, c.Param("token"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":      u.ID,
		"email":   u.Email,
		"message": "Email confirmed. You can now log in.",
	})
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pairResponse(p))
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Accounts.Refresh(ctx, req.token())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pairResponse(p))
}

// Logout revokes the given refresh token.  An authenticated caller without
// a token in the body is logged out everywhere.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Accounts.Logout(ctx, req.token(), middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
