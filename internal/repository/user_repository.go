package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, username, email, password_hash, first_name, last_name, country, city, phone, role,
	is_staff, is_superuser, is_active, is_blocked, is_verified, token, organization_id,
	telegram_chat_id, telegram_username, telegram_notifications, date_joined`

func scanUser(rs rowScanner) (model.User, error) {
	var (
		u        model.User
		country  sql.NullString
		city     sql.NullString
		phone    sql.NullString
		token    sql.NullString
		orgID    sql.NullInt64
		chatID   sql.NullInt64
		tgHandle sql.NullString
	)
	err := rs.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &country, &city, &phone,
		&u.Role, &u.IsStaff, &u.IsSuperuser, &u.IsActive, &u.IsBlocked, &u.IsVerified, &token, &orgID,
		&chatID, &tgHandle, &u.TelegramNotifications, &u.DateJoined)
	if err != nil {
		return model.User{}, err
	}
	u.Country = nullString(country)
	u.City = nullString(city)
	u.Phone = nullString(phone)
	u.Token = nullString(token)
	u.TelegramUsername = nullString(tgHandle)
	if orgID.Valid {
		id := uint64(orgID.Int64)
		u.OrganizationID = &id
	}
	if chatID.Valid {
		id := chatID.Int64
		u.TelegramChatID = &id
	}
	return u, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Create hashes the password and inserts the user, filling in its ID.
// Duplicate usernames or emails yield ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name, country, city, phone, role,
			is_staff, is_superuser, is_active, is_verified, token)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Country, u.City, u.Phone, u.Role,
		u.IsStaff, u.IsSuperuser, u.IsActive, u.IsVerified, u.Token)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// ConsumeToken activates the user holding the verification token and
// clears the token, so a second call with the same value yields
// ErrNotFound.  The row is locked for the duration of the exchange.
func (r *UserRepo) ConsumeToken(ctx context.Context, token string) (uid uint64, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE token = ? LIMIT 1 FOR UPDATE", token).Scan(&uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return 0, err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE users SET is_active = 1, is_verified = 1, token = NULL WHERE id = ?", uid); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return uid, nil
}

// UpdateProfile writes the non-nil fields of p.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("username", p.Username)
	add("first_name", p.FirstName)
	add("last_name", p.LastName)
	add("country", p.Country)
	add("city", p.City)
	add("phone", p.Phone)
	if len(sets) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	return r.exec(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", id, args...)
}

// SetBlocked stores the blocked flag.
func (r *UserRepo) SetBlocked(ctx context.Context, id uint64, blocked bool) error {
	return r.exec(ctx, "UPDATE users SET is_blocked = ? WHERE id = ?", id, blocked, id)
}

// SetRole stores the role name.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	return r.exec(ctx, "UPDATE users SET role = ? WHERE id = ?", id, role, id)
}

// SetOrganization links the user to a network node, or unlinks it for nil.
func (r *UserRepo) SetOrganization(ctx context.Context, id uint64, orgID *uint64) error {
	return r.exec(ctx, "UPDATE users SET organization_id = ? WHERE id = ?", id, nullableID(orgID), id)
}

// SetTelegram stores the Telegram linkage; chat ids are unique.
func (r *UserRepo) SetTelegram(ctx context.Context, id uint64, link model.TelegramLink) error {
	return r.exec(ctx,
		"UPDATE users SET telegram_chat_id = ?, telegram_username = ?, telegram_notifications = ? WHERE id = ?",
		id, link.ChatID, link.Username, link.Notifications, id)
}

// SetPassword replaces the password hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return r.exec(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", id, hash, id)
}

// List returns one page of users, newest first, and the total count.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	out := []model.User{}
	if total == 0 {
		return out, 0, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY date_joined DESC, id DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// exec runs a single-row update.  Zero affected rows are ambiguous in MySQL
// (the row may be unchanged), so existence is confirmed before reporting
// ErrNotFound.
func (r *UserRepo) exec(ctx context.Context, q string, id uint64, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}
