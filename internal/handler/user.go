package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trading-network/internal/middleware"
	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
	"github.com/iliyamo/trading-network/internal/service"
)

// UserService is the account behaviour the profile and administration
// endpoints need.
type UserService interface {
	Profile(ctx context.Context, a *policy.Actor, id uint64) (*model.User, policy.ProfileView, error)
	UpdateProfile(ctx context.Context, a *policy.Actor, id uint64, in service.ProfileInput, partial bool) (*model.User, error)
	LinkTelegram(ctx context.Context, a *policy.Actor, in service.TelegramInput) (*model.User, error)
	List(ctx context.Context, a *policy.Actor, page int) (service.Page[model.User], error)
	ToggleBlock(ctx context.Context, a *policy.Actor, id uint64) (*model.User, error)
	SetRole(ctx context.Context, a *policy.Actor, id uint64, role string) (*model.User, error)
	SetOrganization(ctx context.Context, a *policy.Actor, id uint64, org service.OptionalID) (*model.User, error)
}

// UserHandler serves the /users/api profile and administration routes.
type UserHandler struct {
	Accounts UserService
}

func NewUserHandler(accounts UserService) *UserHandler {
	return &UserHandler{Accounts: accounts}
}

// publicProfile is what any authenticated user sees of somebody else.
type publicProfile struct {
	ID        uint64  `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Country   *string `json:"country"`
	City      *string `json:"city"`
}

// privateProfile adds contact, role and account state for the owner and
// privileged actors.
type privateProfile struct {
	publicProfile
	Email                 string    `json:"email"`
	Phone                 *string   `json:"phone"`
	Role                  string    `json:"role"`
	IsStaff               bool      `json:"is_staff"`
	IsActive              bool      `json:"is_active"`
	IsBlocked             bool      `json:"is_blocked"`
	IsVerified            bool      `json:"is_verified"`
	Organization          *uint64   `json:"organization"`
	TelegramChatID        *int64    `json:"telegram_chat_id"`
	TelegramUsername      *string   `json:"telegram_username"`
	TelegramNotifications bool      `json:"telegram_notifications"`
	DateJoined            time.Time `json:"date_joined"`
}

func toPublic(u model.User) publicProfile {
	return publicProfile{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Country:   u.Country,
		City:      u.City,
	}
}

func toPrivate(u model.User) privateProfile {
	return privateProfile{
		publicProfile:         toPublic(u),
		Email:                 u.Email,
		Phone:                 u.Phone,
		Role:                  u.Role,
		IsStaff:               u.IsStaff || u.IsSuperuser,
		IsActive:              u.IsActive,
		IsBlocked:             u.IsBlocked,
		IsVerified:            u.IsVerified,
		Organization:          u.OrganizationID,
		TelegramChatID:        u.TelegramChatID,
		TelegramUsername:      u.TelegramUsername,
		TelegramNotifications: u.TelegramNotifications,
		DateJoined:            u.DateJoined,
	}
}

func profileBody(u *model.User, view policy.ProfileView) any {
	if view == policy.ViewPrivate {
		return toPrivate(*u)
	}
	return toPublic(*u)
}

// MyProfile handles GET /users/api/my-profile/.
func (h *UserHandler) MyProfile(c echo.Context) error {
	return h.profile(c, middleware.Actor(c).UserID)
}

// Profile handles GET /users/api/profile/:id/.
func (h *UserHandler) Profile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	return h.profile(c, id)
}

func (h *UserHandler) profile(c echo.Context, id uint64) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, view, err := h.Accounts.Profile(ctx, middleware.Actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, profileBody(u, view))
}

// UpdateMyProfile handles PUT/PATCH /users/api/my-profile/update/.
func (h *UserHandler) UpdateMyProfile(c echo.Context) error {
	return h.update(c, middleware.Actor(c).UserID)
}

// UpdateProfile handles PUT/PATCH /users/api/profile/:id/update/.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	return h.update(c, id)
}

func (h *UserHandler) update(c echo.Context, id uint64) error {
	var in service.ProfileInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	partial := c.Request().Method == http.MethodPatch
	u, err := h.Accounts.UpdateProfile(ctx, middleware.Actor(c), id, in, partial)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toPrivate(*u))
}

// Telegram handles PUT /users/api/my-profile/telegram/.
func (h *UserHandler) Telegram(c echo.Context) error {
	var in service.TelegramInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.LinkTelegram(ctx, middleware.Actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toPrivate(*u))
}

// List handles GET /users/api/users/.
func (h *UserHandler) List(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Accounts.List(ctx, middleware.Actor(c), page)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, p, toPrivate)
}

// ToggleBlock handles POST /users/api/users/:id/toggle-block/.
func (h *UserHandler) ToggleBlock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.ToggleBlock(ctx, middleware.Actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": u.ID, "is_blocked": u.IsBlocked})
}

// SetRole handles PUT /users/api/users/:id/role/.
func (h *UserHandler) SetRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.SetRole(ctx, middleware.Actor(c), id, req.Role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toPrivate(*u))
}

// SetOrganization handles PUT /users/api/users/:id/organization/.  A null
// organization detaches the user.
func (h *UserHandler) SetOrganization(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Organization service.OptionalID `json:"organization"`
	}
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Accounts.SetOrganization(ctx, middleware.Actor(c), id, req.Organization)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toPrivate(*u))
}
