package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/queue"
)

// MockNodeStore
type MockNodeStore struct {
	mock.Mock
}

func (m *MockNodeStore) Create(ctx context.Context, n *model.NetworkNode) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockNodeStore) GetByID(ctx context.Context, id uint64) (*model.NetworkNode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NetworkNode), args.Error(1)
}
func (m *MockNodeStore) GetRef(ctx context.Context, id uint64) (model.NodeRef, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.NodeRef), args.Error(1)
}
func (m *MockNodeStore) ListChildren(ctx context.Context, supplierID uint64) ([]model.NodeRef, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NodeRef), args.Error(1)
}
func (m *MockNodeStore) Update(ctx context.Context, n *model.NetworkNode, relevel []model.LevelChange) error {
	args := m.Called(ctx, n, relevel)
	return args.Error(0)
}
func (m *MockNodeStore) Delete(ctx context.Context, id uint64, relevel []model.LevelChange) error {
	args := m.Called(ctx, id, relevel)
	return args.Error(0)
}
func (m *MockNodeStore) List(ctx context.Context, f model.NodeFilter) ([]model.NetworkNode, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.NetworkNode), args.Int(1), args.Error(2)
}
func (m *MockNodeStore) ClearDebt(ctx context.Context, ids []uint64) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductStore
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) Create(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockProductStore) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}
func (m *MockProductStore) Update(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockProductStore) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockProductStore) List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.Product), args.Int(1), args.Error(2)
}
func (m *MockProductStore) GetMany(ctx context.Context, ids []uint64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]model.Product), args.Error(1)
}

// MockUserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, u *model.User, password string, cost int) error {
	args := m.Called(ctx, u, password, cost)
	return args.Error(0)
}
func (m *MockUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *MockUserStore) ConsumeToken(ctx context.Context, token string) (uint64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint64), args.Error(1)
}
func (m *MockUserStore) UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}
func (m *MockUserStore) SetBlocked(ctx context.Context, id uint64, blocked bool) error {
	args := m.Called(ctx, id, blocked)
	return args.Error(0)
}
func (m *MockUserStore) SetRole(ctx context.Context, id uint64, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}
func (m *MockUserStore) SetOrganization(ctx context.Context, id uint64, orgID *uint64) error {
	args := m.Called(ctx, id, orgID)
	return args.Error(0)
}
func (m *MockUserStore) SetTelegram(ctx context.Context, id uint64, link model.TelegramLink) error {
	args := m.Called(ctx, id, link)
	return args.Error(0)
}
func (m *MockUserStore) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	args := m.Called(ctx, id, password, cost)
	return args.Error(0)
}
func (m *MockUserStore) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.User), args.Int(1), args.Error(2)
}

// MockTokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	args := m.Called(ctx, userID, tokenHash, exp)
	return args.Error(0)
}
func (m *MockTokenStore) Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error) {
	args := m.Called(ctx, oldHash, newHash, exp)
	return args.Get(0).(uint64), args.Error(1)
}
func (m *MockTokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}
func (m *MockTokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishUserRegistered(ctx context.Context, ev queue.UserRegisteredEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
