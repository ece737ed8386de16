package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
	"github.com/iliyamo/trading-network/internal/service"
)

// MockNodeService
type MockNodeService struct {
	mock.Mock
}

func (m *MockNodeService) Create(ctx context.Context, a *policy.Actor, in service.NodeInput) (*model.NetworkNode, error) {
	args := m.Called(ctx, a, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NetworkNode), args.Error(1)
}
func (m *MockNodeService) Get(ctx context.Context, a *policy.Actor, id uint64) (*model.NetworkNode, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NetworkNode), args.Error(1)
}
func (m *MockNodeService) Update(ctx context.Context, a *policy.Actor, id uint64, in service.NodeInput, partial bool) (*model.NetworkNode, error) {
	args := m.Called(ctx, a, id, in, partial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NetworkNode), args.Error(1)
}
func (m *MockNodeService) Delete(ctx context.Context, a *policy.Actor, id uint64) error {
	args := m.Called(ctx, a, id)
	return args.Error(0)
}
func (m *MockNodeService) List(ctx context.Context, a *policy.Actor, q service.NodeQuery) (service.Page[model.NetworkNode], error) {
	args := m.Called(ctx, a, q)
	return args.Get(0).(service.Page[model.NetworkNode]), args.Error(1)
}

// MockProductService
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, a *policy.Actor, in service.ProductInput) (*model.Product, error) {
	args := m.Called(ctx, a, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}
func (m *MockProductService) Get(ctx context.Context, a *policy.Actor, id uint64) (*model.Product, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}
func (m *MockProductService) Update(ctx context.Context, a *policy.Actor, id uint64, in service.ProductInput, partial bool) (*model.Product, error) {
	args := m.Called(ctx, a, id, in, partial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}
func (m *MockProductService) Delete(ctx context.Context, a *policy.Actor, id uint64) error {
	args := m.Called(ctx, a, id)
	return args.Error(0)
}
func (m *MockProductService) List(ctx context.Context, a *policy.Actor, q service.ProductQuery) (service.Page[model.Product], error) {
	args := m.Called(ctx, a, q)
	return args.Get(0).(service.Page[model.Product]), args.Error(1)
}

// MockAccounts implements both AuthService and UserService.
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *MockAccounts) Verify(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *MockAccounts) Login(ctx context.Context, email, password string) (*service.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}
func (m *MockAccounts) Refresh(ctx context.Context, raw string) (*service.TokenPair, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}
func (m *MockAccounts) Logout(ctx context.Context, raw string, userID uint64) error {
	args := m.Called(ctx, raw, userID)
	return args.Error(0)
}
func (m *MockAccounts) Profile(ctx context.Context, a *policy.Actor, id uint64) (*model.User, policy.ProfileView, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, policy.ViewPublic, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(policy.ProfileView), args.Error(2)
}
func (m *MockAccounts) UpdateProfile(ctx context.Context, a *policy.Actor, id uint64, in service.ProfileInput, partial bool) (*model.User, error) {
	args := m.Called(ctx, a, id, in, partial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *MockAccounts) LinkTelegram(ctx context.Context, a *policy.Actor, in service.TelegramInput) (*model.User, error) {
	args := m.Called(ctx, a, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *MockAccounts) List(ctx context.Context, a *policy.Actor, page int) (service.Page[model.User], error) {
	args := m.Called(ctx, a, page)
	return args.Get(0).(service.Page[model.User]), args.Error(1)
}
func (m *MockAccounts) ToggleBlock(ctx context.Context, a *policy.Actor, id uint64) (*model.User, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *MockAccounts) SetRole(ctx context.Context, a *policy.Actor, id uint64, role string) (*model.User, error) {
	args := m.Called(ctx, a, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *MockAccounts) SetOrganization(ctx context.Context, a *policy.Actor, id uint64, org service.OptionalID) (*model.User, error) {
	args := m.Called(ctx, a, id, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
