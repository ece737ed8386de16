package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/utils"
)

var userRowColumns = []string{"id", "username", "email", "password_hash", "first_name", "last_name", "country",
	"city", "phone", "role", "is_staff", "is_superuser", "is_active", "is_blocked", "is_verified", "token",
	"organization_id", "telegram_chat_id", "telegram_username", "telegram_notifications", "date_joined"}

func TestUserRepoCreate(t *testing.T) {
	ctx := context.Background()
	token := "abc123"

	t.Run("Success", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)
		u := &model.User{Username: "alice", Email: " Alice@Example.com ", Role: "user", Token: &token}

		mock.ExpectExec("INSERT INTO users").
			WithArgs("alice", "alice@example.com", sqlmock.AnyArg(), "", "", nil, nil, nil, "user",
				false, false, false, false, "abc123").
			WillReturnResult(sqlmock.NewResult(12, 1))

		require.NoError(t, repo.Create(ctx, u, "s3cret-pass", bcrypt.MinCost))
		assert.Equal(t, uint64(12), u.ID)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.True(t, utils.VerifyPassword(u.PasswordHash, "s3cret-pass"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)

		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice@example.com'"})

		err := repo.Create(ctx, &model.User{Username: "alice", Email: "alice@example.com"}, "pw-long-enough", bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestUserRepoGet(t *testing.T) {
	ctx := context.Background()
	joined := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)

	t.Run("ByEmail", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)

		mock.ExpectQuery("FROM users WHERE email = \\? LIMIT 1").
			WithArgs("bob@example.com").
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
				3, "bob", "bob@example.com", "hash", "Bob", "", "DE", nil, nil, "manager",
				false, false, true, false, true, nil, 5, int64(777), "bobtg", true, joined))

		u, err := repo.GetByEmail(ctx, "  BOB@example.com")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), u.ID)
		require.NotNil(t, u.Country)
		assert.Equal(t, "DE", *u.Country)
		assert.Nil(t, u.City)
		assert.Nil(t, u.Token)
		require.NotNil(t, u.OrganizationID)
		assert.Equal(t, uint64(5), *u.OrganizationID)
		require.NotNil(t, u.TelegramChatID)
		assert.Equal(t, int64(777), *u.TelegramChatID)
		assert.True(t, u.TelegramNotifications)
		assert.Equal(t, joined, u.DateJoined)
	})

	t.Run("ByIDNotFound", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)

		mock.ExpectQuery("FROM users WHERE id = \\? LIMIT 1").
			WithArgs(uint64(9)).
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		_, err := repo.GetByID(ctx, 9)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserRepoConsumeToken(t *testing.T) {
	ctx := context.Background()
	selectToken := regexp.QuoteMeta("SELECT id FROM users WHERE token = ? LIMIT 1 FOR UPDATE")
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectToken).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = 1, is_verified = 1, token = NULL WHERE id = ?")).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uid, err := repo.ConsumeToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), uid)

	// The token was cleared, so a second use finds nothing.
	mock.ExpectBegin()
	mock.ExpectQuery(selectToken).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err = repo.ConsumeToken(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoUpdates(t *testing.T) {
	ctx := context.Background()

	t.Run("ProfileWritesGivenFields", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)
		name, city := "Ann", "Paris"

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET first_name = ?, city = ? WHERE id = ?")).
			WithArgs("Ann", "Paris", uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateProfile(ctx, 2, model.ProfileUpdate{FirstName: &name, City: &city}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)
		username := "taken"

		mock.ExpectExec("UPDATE users SET username = \\?").
			WillReturnError(&mysql.MySQLError{Number: 1062})

		err := repo.UpdateProfile(ctx, 2, model.ProfileUpdate{Username: &username})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("UnchangedRowIsNotMissing", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_blocked = ? WHERE id = ?")).
			WithArgs(true, uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE id = ?")).
			WithArgs(uint64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		require.NoError(t, repo.SetBlocked(ctx, 2, true))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingRow", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = ? WHERE id = ?")).
			WithArgs("manager", uint64(50)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE id = ?")).
			WithArgs(uint64(50)).
			WillReturnRows(sqlmock.NewRows([]string{"1"}))

		assert.ErrorIs(t, repo.SetRole(ctx, 50, "manager"), ErrNotFound)
	})

	t.Run("OrganizationCanBeCleared", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepo(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET organization_id = ? WHERE id = ?")).
			WithArgs(nil, uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SetOrganization(ctx, 2, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepoSetPassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = ? WHERE id = ?")).
		WithArgs(sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPassword(context.Background(), 1, "new-password", bcrypt.MinCost))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	joined := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY date_joined DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs(5, 0).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			1, "root", "root@example.com", "hash", "", "", nil, nil, nil, "manager",
			true, true, true, false, true, nil, nil, nil, nil, false, joined))

	users, total, err := repo.List(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsSuperuser)
	assert.Nil(t, users[0].OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
