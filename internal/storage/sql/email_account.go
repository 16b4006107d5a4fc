package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

// CreateEmailAccount 创建邮箱账户，邮箱重复时返回 storage.ErrAccountExists
func (s *Store) CreateEmailAccount(account *domain.EmailAccount) error {
	account.Email = domain.NormalizeEmail(account.Email)
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.EmailAccount{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("check account exists: %w", err)
		}
		if count > 0 {
			return storage.ErrAccountExists
		}
		if err := tx.Create(account).Error; err != nil {
			return fmt.Errorf("create email account: %w", err)
		}
		return nil
	})
}

// GetEmailAccountByID 按 ID 查询邮箱账户
func (s *Store) GetEmailAccountByID(id string) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	if err := s.gormDB.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get email account by id: %w", err)
	}
	return &account, nil
}

// GetEmailAccountByEmail 按邮箱地址查询账户
func (s *Store) GetEmailAccountByEmail(email string) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	if err := s.gormDB.First(&account, "email = ?", domain.NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get email account by email: %w", err)
	}
	return &account, nil
}

// ListEmailAccounts 返回全部邮箱账户，定时抓取按此顺序逐个执行
func (s *Store) ListEmailAccounts() ([]domain.EmailAccount, error) {
	var accounts []domain.EmailAccount
	if err := s.gormDB.Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("list email accounts: %w", err)
	}
	return accounts, nil
}

// UpdateEmailAccount 更新邮箱账户授权码
func (s *Store) UpdateEmailAccount(account *domain.EmailAccount) error {
	result := s.gormDB.Model(&domain.EmailAccount{}).Where("id = ?", account.ID).Updates(map[string]interface{}{
		"auth_code":  account.AuthCode,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return fmt.Errorf("update email account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// DeleteEmailAccount 删除邮箱账户
func (s *Store) DeleteEmailAccount(id string) error {
	result := s.gormDB.Delete(&domain.EmailAccount{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete email account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}
