package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
	"github.com/iliyamo/trading-network/internal/queue"
	"github.com/iliyamo/trading-network/internal/utils"
)

// UserStore is the persistence the accounts service needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	ConsumeToken(ctx context.Context, token string) (uint64, error)
	UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) error
	SetBlocked(ctx context.Context, id uint64, blocked bool) error
	SetRole(ctx context.Context, id uint64, role string) error
	SetOrganization(ctx context.Context, id uint64, orgID *uint64) error
	SetTelegram(ctx context.Context, id uint64, link model.TelegramLink) error
	SetPassword(ctx context.Context, id uint64, password string, cost int) error
	List(ctx context.Context, limit, offset int) ([]model.User, int, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// RegistrationNotifier hands registration events to the task queue.
type RegistrationNotifier interface {
	PublishUserRegistered(ctx context.Context, ev queue.UserRegisteredEvent) error
}

// OrganizationLookup confirms that a network node exists.
type OrganizationLookup interface {
	GetRef(ctx context.Context, id uint64) (model.NodeRef, error)
}

// AccountsConfig holds the token and hashing parameters.
type AccountsConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	BaseURL        string
	PageSize       int
}

// RegisterInput is the public registration body.
type RegisterInput struct {
	Username  string  `json:"username" validate:"required,max=50"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=8,max=128"`
	FirstName string  `json:"first_name" validate:"max=150"`
	LastName  string  `json:"last_name" validate:"max=150"`
	Country   *string `json:"country" validate:"omitempty,max=50"`
	City      *string `json:"city" validate:"omitempty,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,max=35"`
}

// ProfileInput holds the self-editable profile fields.
type ProfileInput struct {
	Username  *string `json:"username" validate:"omitempty,min=1,max=50"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Country   *string `json:"country" validate:"omitempty,max=50"`
	City      *string `json:"city" validate:"omitempty,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,max=35"`
}

// TelegramInput links a Telegram chat to the caller's account.
type TelegramInput struct {
	ChatID        *int64  `json:"telegram_chat_id"`
	Username      *string `json:"telegram_username" validate:"omitempty,max=64"`
	Notifications bool    `json:"telegram_notifications"`
}

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Accounts covers registration, authentication and user administration.
type Accounts struct {
	users     UserStore
	tokens    TokenStore
	orgs      OrganizationLookup
	notifier  RegistrationNotifier
	cfg       AccountsConfig
	logger    zerolog.Logger
	validator *validator.Validate
}

func NewAccounts(users UserStore, tokens TokenStore, orgs OrganizationLookup, notifier RegistrationNotifier, cfg AccountsConfig, logger zerolog.Logger) *Accounts {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Accounts{
		users:     users,
		tokens:    tokens,
		orgs:      orgs,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With().Str("component", "accounts").Logger(),
		validator: newValidator(),
	}
}

// Actor loads the current state of a user as a policy actor.
func (s *Accounts) Actor(ctx context.Context, userID uint64) (*policy.Actor, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return policy.ActorFromUser(u), nil
}

// Register creates an inactive account holding a one-time verification
// token and queues the confirmation message.  A queue failure does not
// fail the registration.
func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	ve := &ValidationError{}
	if err := collect(ve, s.validator.Struct(in)); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	token, err := utils.NewVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("verification token: %w", err)
	}
	u := &model.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Country:   in.Country,
		City:      in.City,
		Phone:     in.Phone,
		Role:      string(policy.RoleUser),
		Token:     &token,
	}
	if err := s.users.Create(ctx, u, in.Password, s.cfg.BcryptCost); err != nil {
		return nil, err
	}
	s.logger.Info().Uint64("user_id", u.ID).Msg("user registered")

	ev := queue.UserRegisteredEvent{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Token:        token,
		ConfirmURL:   s.ConfirmURL(token),
		RegisteredAt: time.Now().UTC(),
	}
	if s.notifier != nil {
		if err := s.notifier.PublishUserRegistered(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Uint64("user_id", u.ID).Msg("registration event not published")
		}
	}
	return u, nil
}

// ConfirmURL is the link a new user follows to verify their email.
func (s *Accounts) ConfirmURL(token string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/users/email-confirm/" + token + "/"
}

// Verify consumes a verification token and activates its user.  A token
// works exactly once; later attempts yield ErrNotFound.
func (s *Accounts) Verify(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	uid, err := s.users.ConsumeToken(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Uint64("user_id", uid).Msg("email verified")
	return &u, nil
}

// Login checks credentials and issues a token pair.
func (s *Accounts) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, &ValidationError{Fields: map[string]string{"email": msgRequired, "password": msgRequired}}
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive || u.IsBlocked {
		return nil, ErrInactive
	}

	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, fmt.Errorf("store refresh: %w", err)
	}
	return s.pair(u, refresh)
}

// Refresh rotates a refresh token and issues a new pair.
func (s *Accounts) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalid("refresh", msgRequired)
	}
	next, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	uid, err := s.tokens.Rotate(ctx, utils.HashRefreshRaw(raw), utils.HashRefreshRaw(next.Raw), next.Exp)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive || u.IsBlocked {
		if err := s.tokens.RevokeAllForUser(ctx, uid); err != nil {
			s.logger.Warn().Err(err).Uint64("user_id", uid).Msg("revoke tokens of inactive user failed")
		}
		return nil, ErrInactive
	}
	return s.pair(u, next)
}

// Logout revokes one refresh token, or every token of userID when no
// token is given.
func (s *Accounts) Logout(ctx context.Context, raw string, userID uint64) error {
	raw = strings.TrimSpace(raw)
	switch {
	case raw != "":
		return s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
	case userID != 0:
		return s.tokens.RevokeAllForUser(ctx, userID)
	default:
		return invalid("refresh", msgRequired)
	}
}

func (s *Accounts) pair(u model.User, refresh utils.RefreshToken) (*TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	return &TokenPair{User: u, Access: access, Refresh: refresh}, nil
}

// Profile returns a user together with the view the actor is entitled to.
func (s *Accounts) Profile(ctx context.Context, a *policy.Actor, id uint64) (*model.User, policy.ProfileView, error) {
	if !policy.CanUser(a, policy.OpRead, id) {
		return nil, policy.ViewPublic, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, policy.ViewPublic, err
	}
	return &u, policy.ProfileViewFor(a, id), nil
}

// UpdateProfile edits the owner-editable fields of a profile.
func (s *Accounts) UpdateProfile(ctx context.Context, a *policy.Actor, id uint64, in ProfileInput, partial bool) (*model.User, error) {
	if !policy.CanUser(a, policy.OpWrite, id) {
		return nil, ErrForbidden
	}
	for _, p := range []*string{in.Username, in.FirstName, in.LastName, in.Country, in.City, in.Phone} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	ve := &ValidationError{}
	if !partial && in.Username == nil {
		ve.Add("username", msgRequired)
	}
	if err := collect(ve, s.validator.Struct(in)); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	err := s.users.UpdateProfile(ctx, id, model.ProfileUpdate{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Country:   in.Country,
		City:      in.City,
		Phone:     in.Phone,
	})
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// LinkTelegram stores the caller's Telegram settings.  Notifications need
// a chat to go to.
func (s *Accounts) LinkTelegram(ctx context.Context, a *policy.Actor, in TelegramInput) (*model.User, error) {
	if a == nil || !policy.CanUser(a, policy.OpWrite, a.UserID) {
		return nil, ErrForbidden
	}
	ve := &ValidationError{}
	if in.Notifications && in.ChatID == nil {
		ve.Add("telegram_chat_id", "A chat id is required to enable notifications.")
	}
	if err := collect(ve, s.validator.Struct(in)); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	err := s.users.SetTelegram(ctx, a.UserID, model.TelegramLink{
		ChatID:        in.ChatID,
		Username:      in.Username,
		Notifications: in.Notifications,
	})
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns one page of users, newest first.
func (s *Accounts) List(ctx context.Context, a *policy.Actor, page int) (Page[model.User], error) {
	if !policy.CanUser(a, policy.OpList, 0) {
		return Page[model.User]{}, ErrForbidden
	}
	limit, offset, err := window(page, s.cfg.PageSize)
	if err != nil {
		return Page[model.User]{}, err
	}
	items, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return Page[model.User]{}, fmt.Errorf("list users: %w", err)
	}
	if err := checkPage(page, limit, total); err != nil {
		return Page[model.User]{}, err
	}
	return Page[model.User]{Items: items, Count: total, Number: page, PageSize: limit}, nil
}

// ToggleBlock flips the blocked flag of a user.  Blocking also revokes the
// user's refresh tokens.
func (s *Accounts) ToggleBlock(ctx context.Context, a *policy.Actor, id uint64) (*model.User, error) {
	if !policy.CanAdministerUsers(a) {
		return nil, ErrForbidden
	}
	if id == a.UserID {
		return nil, invalid("user", "You cannot block yourself.")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	blocked := !u.IsBlocked
	if err := s.users.SetBlocked(ctx, id, blocked); err != nil {
		return nil, err
	}
	if blocked {
		if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
			s.logger.Warn().Err(err).Uint64("user_id", id).Msg("revoke tokens after block failed")
		}
	}
	u.IsBlocked = blocked
	s.logger.Info().Uint64("user_id", id).Bool("blocked", blocked).Uint64("actor_id", a.UserID).Msg("block toggled")
	return &u, nil
}

// SetRole assigns one of the known roles.
func (s *Accounts) SetRole(ctx context.Context, a *policy.Actor, id uint64, role string) (*model.User, error) {
	if !policy.CanAdministerUsers(a) {
		return nil, ErrForbidden
	}
	if !policy.ValidRole(role) {
		return nil, invalid("role", fmt.Sprintf("Must be one of: %s, %s.", policy.RoleUser, policy.RoleManager))
	}
	normalized := string(policy.NormalizeRole(role))
	if err := s.users.SetRole(ctx, id, normalized); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Uint64("user_id", id).Str("role", normalized).Uint64("actor_id", a.UserID).Msg("role changed")
	return &u, nil
}

// SetOrganization attaches a user to a network node, or detaches it when
// org.Value is nil.
func (s *Accounts) SetOrganization(ctx context.Context, a *policy.Actor, id uint64, org OptionalID) (*model.User, error) {
	if !policy.CanAdministerUsers(a) {
		return nil, ErrForbidden
	}
	if !org.Set {
		return nil, invalid("organization", msgRequired)
	}
	if org.Value != nil {
		if _, err := s.orgs.GetRef(ctx, *org.Value); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("organization", msgDoesNotExist)
			}
			return nil, err
		}
	}
	if err := s.users.SetOrganization(ctx, id, org.Value); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateSuperuser creates an active, verified staff account with full
// privileges.  It backs the administrative CLI.
func (s *Accounts) CreateSuperuser(ctx context.Context, username, email, password string) (*model.User, error) {
	in := RegisterInput{Username: strings.TrimSpace(username), Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
	ve := &ValidationError{}
	if err := collect(ve, s.validator.Struct(in)); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	u := &model.User{
		Username:    in.Username,
		Email:       in.Email,
		Role:        string(policy.RoleManager),
		IsStaff:     true,
		IsSuperuser: true,
		IsActive:    true,
		IsVerified:  true,
	}
	if err := s.users.Create(ctx, u, password, s.cfg.BcryptCost); err != nil {
		return nil, err
	}
	s.logger.Info().Uint64("user_id", u.ID).Str("email", u.Email).Msg("superuser created")
	return u, nil
}

// SetPassword replaces the password of the account registered under email
// and revokes its refresh tokens.  It backs the administrative CLI.
func (s *Accounts) SetPassword(ctx context.Context, email, password string) (*model.User, error) {
	if err := s.validator.Var(password, "required,min=8,max=128"); err != nil {
		return nil, invalid("password", "Must be between 8 and 128 characters.")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetPassword(ctx, u.ID, password, s.cfg.BcryptCost); err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		s.logger.Warn().Err(err).Uint64("user_id", u.ID).Msg("revoke tokens after password change failed")
	}
	s.logger.Info().Uint64("user_id", u.ID).Msg("password changed")
	return &u, nil
}
