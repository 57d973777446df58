package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
)

// ============================================================================
// Общие моки репозиториев и шлюзов для тестов сервисного слоя
// ============================================================================

// MockAccountRepository реализует repository.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(account *entity.Account) error {
	args := m.Called(account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(id uint) (*entity.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(email string) (*entity.Account, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByVerifyToken(token string) (*entity.Account, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByResetToken(token string) (*entity.Account, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(account *entity.Account) error {
	args := m.Called(account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateFields(accountID uint, updates map[string]interface{}) error {
	args := m.Called(accountID, updates)
	return args.Error(0)
}

func (m *MockAccountRepository) Delete(accountID uint) error {
	args := m.Called(accountID)
	return args.Error(0)
}

func (m *MockAccountRepository) List(limit, offset int) ([]entity.Account, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Account), args.Error(1)
}

func (m *MockAccountRepository) ListPending() ([]entity.Account, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Account), args.Error(1)
}

func (m *MockAccountRepository) Count() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// MockAdminRepository реализует repository.AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) IsAdmin(email string) (bool, error) {
	args := m.Called(email)
	return args.Bool(0), args.Error(1)
}

// MockCodeRepository реализует repository.CodeRepository
type MockCodeRepository struct {
	mock.Mock
}

func (m *MockCodeRepository) Create(code *entity.VerificationCode) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockCodeRepository) GetByCode(code string) (*entity.VerificationCode, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VerificationCode), args.Error(1)
}

func (m *MockCodeRepository) CodeExists(code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCodeRepository) ListAll() ([]entity.VerificationCode, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.VerificationCode), args.Error(1)
}

func (m *MockCodeRepository) MarkUsed(code, email string) (bool, error) {
	args := m.Called(code, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockCodeRepository) DeleteAll() error {
	args := m.Called()
	return args.Error(0)
}

// MockOrderRepository реализует repository.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *entity.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(id uint) (*entity.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockOrderRepository) GetCurrent(email string) (*entity.Order, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockOrderRepository) ListRecent(email string, limit int) ([]entity.Order, error) {
	args := m.Called(email, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Order), args.Error(1)
}

func (m *MockOrderRepository) ListAll() ([]entity.Order, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkPaid(orderID uint) (bool, error) {
	args := m.Called(orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkApproved(orderID uint) (bool, error) {
	args := m.Called(orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkCompleted(orderID uint) (bool, error) {
	args := m.Called(orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SetPickupInstructions(orderID uint, instructions string) error {
	args := m.Called(orderID, instructions)
	return args.Error(0)
}

func (m *MockOrderRepository) AttachCode(orderID, codeID uint) error {
	args := m.Called(orderID, codeID)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteOlderThanNewest(email string, keep int) error {
	args := m.Called(email, keep)
	return args.Error(0)
}

// MockEmailService реализует EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendVerifyEmail(ctx context.Context, toEmail, verifyLink, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, verifyLink, idempotencyKey)
	return args.Error(0)
}

func (m *MockEmailService) SendAdminSignupNotice(ctx context.Context, adminEmail, newUserEmail string) error {
	args := m.Called(ctx, adminEmail, newUserEmail)
	return args.Error(0)
}

func (m *MockEmailService) SendLoginCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, code, idempotencyKey)
	return args.Error(0)
}

func (m *MockEmailService) SendPasswordReset(ctx context.Context, toEmail, resetLink, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, resetLink, idempotencyKey)
	return args.Error(0)
}

func (m *MockEmailService) SendPaymentApprovalRequest(ctx context.Context, adminEmail string, orderID uint, approveLink string) error {
	args := m.Called(ctx, adminEmail, orderID, approveLink)
	return args.Error(0)
}

func (m *MockEmailService) SendDownloadCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, code, idempotencyKey)
	return args.Error(0)
}

func (m *MockEmailService) SendReadyForPickup(ctx context.Context, toEmail, instructions string) error {
	args := m.Called(ctx, toEmail, instructions)
	return args.Error(0)
}

func (m *MockEmailService) SendBroadcast(ctx context.Context, toEmail, subject, body string) error {
	args := m.Called(ctx, toEmail, subject, body)
	return args.Error(0)
}

// MockStorageService реализует StorageService
type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) EnsureFolder(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockStorageService) SharedLink(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *MockStorageService) Upload(ctx context.Context, path string, data []byte) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

func (m *MockStorageService) DeleteFolder(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
