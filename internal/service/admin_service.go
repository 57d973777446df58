package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	"github.com/yourusername/photodrop-api/internal/domain/repository"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
)

// AdminService groups the account-management operations behind the admin
// surface. Authorization (the allow-list check) happens in middleware;
// this layer assumes the caller is already an admin.
type AdminService struct {
	accountRepo  repository.AccountRepository
	emailService EmailService
}

// BroadcastResult reports per-recipient delivery outcomes
type BroadcastResult struct {
	Sent   int
	Failed int
}

func NewAdminService(accountRepo repository.AccountRepository, emailService EmailService) (*AdminService, error) {
	if accountRepo == nil {
		return nil, fmt.Errorf("AccountRepository is required for AdminService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for AdminService")
	}
	return &AdminService{accountRepo: accountRepo, emailService: emailService}, nil
}

// PendingUsers lists accounts that verified their email but are still
// waiting for approval.
func (s *AdminService) PendingUsers() ([]entity.Account, error) {
	return s.accountRepo.ListPending()
}

// ApproveUser flips the approval flag for an account.
func (s *AdminService) ApproveUser(accountID uint) error {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return err
	}
	if account.AdminApproved {
		return nil
	}
	if err := s.accountRepo.UpdateFields(accountID, map[string]interface{}{
		"admin_approved": true,
	}); err != nil {
		return fmt.Errorf("failed to approve account: %w", err)
	}
	log.Printf("[AdminService] Account ID=%d approved", accountID)
	return nil
}

// RejectUser removes a pending account entirely. Rejection is a hard
// delete: the email becomes available for a fresh signup.
func (s *AdminService) RejectUser(accountID uint) error {
	if _, err := s.accountRepo.GetByID(accountID); err != nil {
		return err
	}
	if err := s.accountRepo.Delete(accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	log.Printf("[AdminService] Account ID=%d rejected and removed", accountID)
	return nil
}

// AllUsers returns accounts page by page.
func (s *AdminService) AllUsers(limit, offset int) ([]entity.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.accountRepo.List(limit, offset)
}

// UserCount returns the total number of accounts.
func (s *AdminService) UserCount() (int64, error) {
	return s.accountRepo.Count()
}

// Broadcast sends a message to every registered account. Delivery is
// best effort per recipient; failures are counted, not fatal.
func (s *AdminService) Broadcast(ctx context.Context, subject, body string) (*BroadcastResult, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body is required", apperrors.ErrValidation)
	}

	const pageSize = 200
	result := &BroadcastResult{}
	for offset := 0; ; offset += pageSize {
		accounts, err := s.accountRepo.List(pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list broadcast recipients: %w", err)
		}
		if len(accounts) == 0 {
			break
		}
		for _, account := range accounts {
			if err := s.emailService.SendBroadcast(ctx, account.Email, subject, body); err != nil {
				result.Failed++
				log.Printf("[AdminService] Broadcast to %s failed: %v", account.Email, err)
				continue
			}
			result.Sent++
		}
		if len(accounts) < pageSize {
			break
		}
	}
	return result, nil
}
