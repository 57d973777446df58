package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	"github.com/yourusername/photodrop-api/internal/domain/repository"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/pkg/auth"
)

// codeMintAttempts ограничивает число попыток найти свободный код
const codeMintAttempts = 5

// CodeService управляет одноразовыми кодами выдачи: создание кода с папкой
// в облачном хранилище, погашение кода пользователем и массовая очистка
type CodeService struct {
	codeRepo repository.CodeRepository
	storage  StorageService
}

// ClearResult описывает итог массовой очистки кодов
type ClearResult struct {
	Deleted        int
	FolderFailures int
}

func NewCodeService(codeRepo repository.CodeRepository, storage StorageService) (*CodeService, error) {
	if codeRepo == nil {
		return nil, fmt.Errorf("CodeRepository is required for CodeService")
	}
	if storage == nil {
		return nil, fmt.Errorf("StorageService is required for CodeService")
	}
	return &CodeService{codeRepo: codeRepo, storage: storage}, nil
}

// Create выпускает новый код: подбирает свободное шестизначное значение,
// создает папку /codes/<code> в хранилище и сохраняет запись со ссылкой.
// Уникальность проверяется по всем строкам таблицы, включая погашенные.
func (s *CodeService) Create(ctx context.Context) (*entity.VerificationCode, error) {
	code, err := s.mintUniqueCode()
	if err != nil {
		return nil, err
	}

	folderPath := "/codes/" + code
	if err := s.storage.EnsureFolder(ctx, folderPath); err != nil {
		return nil, fmt.Errorf("failed to create code folder: %w", err)
	}
	link, err := s.storage.SharedLink(ctx, folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared link for code folder: %w", err)
	}

	vc := &entity.VerificationCode{
		Code:       code,
		FolderPath: folderPath,
		SharedLink: link,
	}
	if err := s.codeRepo.Create(vc); err != nil {
		return nil, fmt.Errorf("failed to persist verification code: %w", err)
	}

	log.Printf("[CodeService] Выпущен код выдачи, папка %s", folderPath)
	return vc, nil
}

func (s *CodeService) mintUniqueCode() (string, error) {
	for attempt := 0; attempt < codeMintAttempts; attempt++ {
		code, err := auth.GenerateShortCode()
		if err != nil {
			return "", err
		}
		exists, err := s.codeRepo.CodeExists(code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to mint a unique verification code after %d attempts", codeMintAttempts)
}

// Redeem погашает код от имени пользователя и возвращает прямую ссылку
// на скачивание. Повторное использование исключено условным UPDATE:
// при гонке ровно один вызов получает ссылку, остальные — ErrCodeAlreadyUsed.
func (s *CodeService) Redeem(ctx context.Context, code, userEmail string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: code is required", apperrors.ErrValidation)
	}
	userEmail = normalizeEmail(userEmail)

	vc, err := s.codeRepo.GetByCode(code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrCodeNotValid
		}
		return "", err
	}
	if vc.IsUsed() {
		return "", ErrCodeAlreadyUsed
	}
	if strings.TrimSpace(vc.SharedLink) == "" {
		return "", ErrCodeNotConfigured
	}

	marked, err := s.codeRepo.MarkUsed(code, userEmail)
	if err != nil {
		return "", fmt.Errorf("failed to mark code as used: %w", err)
	}
	if !marked {
		// Кто-то успел раньше между чтением и обновлением
		return "", ErrCodeAlreadyUsed
	}

	return DirectDownloadURL(vc.SharedLink), nil
}

// List возвращает все коды для административного обзора
func (s *CodeService) List() ([]entity.VerificationCode, error) {
	return s.codeRepo.ListAll()
}

// ClearAll удаляет все коды. Строки удаляются безусловно; папки в хранилище
// чистятся best effort — неудачи считаются и попадают в итог, но не
// откатывают удаление записей.
func (s *CodeService) ClearAll(ctx context.Context) (*ClearResult, error) {
	codes, err := s.codeRepo.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list codes for cleanup: %w", err)
	}

	if err := s.codeRepo.DeleteAll(); err != nil {
		return nil, fmt.Errorf("failed to delete verification codes: %w", err)
	}

	result := &ClearResult{Deleted: len(codes)}
	for _, vc := range codes {
		if strings.TrimSpace(vc.FolderPath) == "" {
			continue
		}
		if err := s.storage.DeleteFolder(ctx, vc.FolderPath); err != nil {
			result.FolderFailures++
			log.Printf("[CodeService] Не удалось удалить папку %s: %v", vc.FolderPath, err)
		}
	}

	return result, nil
}
