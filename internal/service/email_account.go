package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

var (
	ErrAccountNotFound = errors.New("email account not found")
	ErrAccountExists   = errors.New("email account already exists")
	ErrAuthCodeEmpty   = errors.New("auth code is empty")
)

// EmailAccountService 封装可抓取邮箱账户的管理操作。
type EmailAccountService struct {
	repo storage.EmailAccountRepository
}

// NewEmailAccountService 创建邮箱账户业务服务。
func NewEmailAccountService(repo storage.EmailAccountRepository) *EmailAccountService {
	return &EmailAccountService{repo: repo}
}

// EmailAccountInput 定义创建和更新账户所需的输入。
type EmailAccountInput struct {
	Email    string
	AuthCode string
}

// Create 录入新的邮箱账户。
func (s *EmailAccountService) Create(input EmailAccountInput) (*domain.EmailAccount, error) {
	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	authCode := strings.TrimSpace(input.AuthCode)
	if authCode == "" {
		return nil, ErrAuthCodeEmpty
	}

	account := &domain.EmailAccount{
		ID:       uuid.New().String(),
		Email:    email,
		AuthCode: authCode,
	}
	if err := s.repo.CreateEmailAccount(account); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return nil, ErrAccountExists
		}
		return nil, err
	}
	return account, nil
}

// UpdateAuthCode 更新账户的授权码。
func (s *EmailAccountService) UpdateAuthCode(id, authCode string) (*domain.EmailAccount, error) {
	authCode = strings.TrimSpace(authCode)
	if authCode == "" {
		return nil, ErrAuthCodeEmpty
	}

	account, err := s.repo.GetEmailAccountByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	account.AuthCode = authCode
	if err := s.repo.UpdateEmailAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete 删除账户。
func (s *EmailAccountService) Delete(id string) error {
	if err := s.repo.DeleteEmailAccount(id); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

// List 返回全部账户，授权码由调用方决定是否脱敏。
func (s *EmailAccountService) List() ([]domain.EmailAccount, error) {
	return s.repo.ListEmailAccounts()
}
