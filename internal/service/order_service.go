package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	"github.com/yourusername/photodrop-api/internal/domain/repository"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/pkg/auth"
)

const orderHistoryLimit = 10

// OrderService ведет заказ по цепочке pending → paid → approved → completed.
// Каждый переход выполняется условным UPDATE по ожидаемому статусу, поэтому
// повторные и конкурирующие запросы не двигают заказ назад и не пропускают шаги.
type OrderService struct {
	orderRepo    repository.OrderRepository
	codeService  *CodeService
	storage      StorageService
	emailService EmailService
	tokenService *auth.TokenService
	baseURL      string
	adminEmail   string
	retention    int
}

// UploadInput содержит файл заказа и контактные данные
type UploadInput struct {
	Email    string
	FileName string
	Data     []byte
	Country  string
	Phone    string
	Address  string
}

// ApproveResult различает реальный переход и повторное одобрение
type ApproveResult struct {
	Order           *entity.Order
	AlreadyApproved bool
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	codeService *CodeService,
	storage StorageService,
	emailService EmailService,
	tokenService *auth.TokenService,
	baseURL string,
	adminEmail string,
	retention int,
) (*OrderService, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("OrderRepository is required for OrderService")
	}
	if codeService == nil {
		return nil, fmt.Errorf("CodeService is required for OrderService")
	}
	if storage == nil {
		return nil, fmt.Errorf("StorageService is required for OrderService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for OrderService")
	}
	if tokenService == nil {
		return nil, fmt.Errorf("TokenService is required for OrderService")
	}
	if retention <= 0 {
		retention = 3
	}
	return &OrderService{
		orderRepo:    orderRepo,
		codeService:  codeService,
		storage:      storage,
		emailService: emailService,
		tokenService: tokenService,
		baseURL:      strings.TrimRight(baseURL, "/"),
		adminEmail:   normalizeEmail(adminEmail),
		retention:    retention,
	}, nil
}

// Upload принимает файл заказа, кладет его в отдельную папку хранилища и
// создает заказ в статусе pending. Валидация идет до обращения к хранилищу.
func (s *OrderService) Upload(ctx context.Context, input UploadInput) (*entity.Order, error) {
	email := normalizeEmail(input.Email)
	fileName := strings.TrimSpace(input.FileName)
	country := strings.TrimSpace(input.Country)
	phone := strings.TrimSpace(input.Phone)

	if fileName == "" || len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: a file is required", apperrors.ErrValidation)
	}
	if country == "" {
		return nil, fmt.Errorf("%w: country is required", apperrors.ErrValidation)
	}
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", apperrors.ErrValidation)
	}

	folderPath := "/orders/" + uuid.NewString()
	if err := s.storage.EnsureFolder(ctx, folderPath); err != nil {
		return nil, fmt.Errorf("failed to create order folder: %w", err)
	}
	if err := s.storage.Upload(ctx, folderPath+"/"+fileName, input.Data); err != nil {
		return nil, fmt.Errorf("failed to upload order file: %w", err)
	}
	link, err := s.storage.SharedLink(ctx, folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared link for order folder: %w", err)
	}

	order := &entity.Order{
		Email:      email,
		Status:     entity.OrderStatusPending,
		FileName:   fileName,
		FolderPath: folderPath,
		SharedLink: link,
		Country:    country,
		Phone:      phone,
		Address:    strings.TrimSpace(input.Address),
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ретеншен: храним только последние заказы клиента.
	// Ошибки очистки не должны ломать успешную загрузку.
	if err := s.orderRepo.DeleteOlderThanNewest(email, s.retention); err != nil {
		log.Printf("[OrderService] Не удалось выполнить очистку старых заказов %s: %v", email, err)
	}

	return order, nil
}

// RequestPayment переводит заказ pending → paid и отправляет администратору
// письмо со ссылкой одобрения. Ссылка несет capability-токен, привязанный
// к конкретному заказу.
func (s *OrderService) RequestPayment(ctx context.Context, userEmail string, orderID uint) error {
	userEmail = normalizeEmail(userEmail)

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if normalizeEmail(order.Email) != userEmail {
		return fmt.Errorf("%w: order belongs to another account", apperrors.ErrForbidden)
	}

	moved, err := s.orderRepo.MarkPaid(orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order as paid: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: order is not awaiting payment", apperrors.ErrConflict)
	}

	approvalToken, err := s.tokenService.GenerateApprovalToken(orderID)
	if err != nil {
		return err
	}
	approveLink := fmt.Sprintf("%s/api/orders/approve?orderId=%d&token=%s", s.baseURL, orderID, approvalToken)

	if s.adminEmail == "" {
		log.Printf("[OrderService] Администраторский email не настроен, ссылка одобрения заказа %d не отправлена", orderID)
		return nil
	}
	if err := s.emailService.SendPaymentApprovalRequest(ctx, s.adminEmail, orderID, approveLink); err != nil {
		return fmt.Errorf("failed to send approval request: %w", err)
	}
	return nil
}

// Approve одобряет заказ по capability-ссылке из письма администратору
func (s *OrderService) Approve(ctx context.Context, orderID uint, token string) (*ApproveResult, error) {
	if _, err := s.tokenService.ParseApprovalToken(token, orderID); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	return s.approve(ctx, orderID)
}

// ApproveAsAdmin одобряет заказ из административной панели без токена:
// вызывающий уже прошел проверку allow-list
func (s *OrderService) ApproveAsAdmin(ctx context.Context, orderID uint) (*ApproveResult, error) {
	return s.approve(ctx, orderID)
}

func (s *OrderService) approve(ctx context.Context, orderID uint) (*ApproveResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	// Повторный клик по ссылке — успех без побочных эффектов
	if order.Status == entity.OrderStatusApproved || order.Status == entity.OrderStatusCompleted {
		return &ApproveResult{Order: order, AlreadyApproved: true}, nil
	}

	moved, err := s.orderRepo.MarkApproved(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order as approved: %w", err)
	}
	if !moved {
		// Состояние сменилось между чтением и обновлением
		fresh, ferr := s.orderRepo.GetByID(orderID)
		if ferr == nil && (fresh.Status == entity.OrderStatusApproved || fresh.Status == entity.OrderStatusCompleted) {
			return &ApproveResult{Order: fresh, AlreadyApproved: true}, nil
		}
		return nil, fmt.Errorf("%w: order has not been paid yet", apperrors.ErrConflict)
	}

	// Реальный переход: выпускаем код выдачи и сообщаем его клиенту
	vc, err := s.codeService.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("order approved but code minting failed: %w", err)
	}
	if err := s.orderRepo.AttachCode(orderID, vc.ID); err != nil {
		return nil, fmt.Errorf("order approved but code attachment failed: %w", err)
	}
	idempotencyKey := fmt.Sprintf("download-code:%d", orderID)
	if err := s.emailService.SendDownloadCode(ctx, order.Email, vc.Code, idempotencyKey); err != nil {
		return nil, fmt.Errorf("order approved but code delivery failed: %w", err)
	}

	updated, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	return &ApproveResult{Order: updated}, nil
}

// SendReady переводит заказ approved → completed и отправляет клиенту письмо
// о готовности. Без инструкций по выдаче письмо уходит в сокращенном виде.
func (s *OrderService) SendReady(ctx context.Context, orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}

	moved, err := s.orderRepo.MarkCompleted(orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order as completed: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: order is not approved", apperrors.ErrConflict)
	}

	instructions := strings.TrimSpace(order.PickupInstructions)
	if instructions == "" {
		log.Printf("[OrderService] Заказ %d завершается без инструкций по выдаче", orderID)
	}
	if err := s.emailService.SendReadyForPickup(ctx, order.Email, instructions); err != nil {
		return fmt.Errorf("failed to send ready-for-pickup email: %w", err)
	}
	return nil
}

// UpdatePickup задает инструкции по выдаче для заказа
func (s *OrderService) UpdatePickup(orderID uint, instructions string) error {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return fmt.Errorf("%w: pickup instructions are required", apperrors.ErrValidation)
	}
	return s.orderRepo.SetPickupInstructions(orderID, instructions)
}

// Status возвращает текущий (новейший незавершенный) заказ пользователя
func (s *OrderService) Status(userEmail string) (*entity.Order, error) {
	order, err := s.orderRepo.GetCurrent(normalizeEmail(userEmail))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active order", apperrors.ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

// History возвращает последние заказы пользователя в любом статусе
func (s *OrderService) History(userEmail string) ([]entity.Order, error) {
	return s.orderRepo.ListRecent(normalizeEmail(userEmail), orderHistoryLimit)
}

// ListAll возвращает все заказы для административного обзора
func (s *OrderService) ListAll() ([]entity.Order, error) {
	return s.orderRepo.ListAll()
}
