package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

// CreateAdmin 创建管理员，用户名重复时返回 storage.ErrAdminExists
func (s *Store) CreateAdmin(admin *domain.Admin) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Admin{}).Where("username = ?", admin.Username).Count(&count).Error; err != nil {
			return fmt.Errorf("check admin exists: %w", err)
		}
		if count > 0 {
			return storage.ErrAdminExists
		}
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		return nil
	})
}

// GetAdminByID 按 ID 查询管理员
func (s *Store) GetAdminByID(id string) (*domain.Admin, error) {
	var admin domain.Admin
	if err := s.gormDB.First(&admin, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin by id: %w", err)
	}
	return &admin, nil
}

// GetAdminByUsername 按用户名查询管理员
func (s *Store) GetAdminByUsername(username string) (*domain.Admin, error) {
	var admin domain.Admin
	if err := s.gormDB.First(&admin, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return &admin, nil
}

// UpdateAdmin 更新管理员记录
func (s *Store) UpdateAdmin(admin *domain.Admin) error {
	result := s.gormDB.Model(&domain.Admin{}).Where("id = ?", admin.ID).Updates(map[string]interface{}{
		"password_hash":  admin.PasswordHash,
		"is_super_admin": admin.IsSuperAdmin,
		"updated_at":     time.Now().UTC(),
	})
	if result.Error != nil {
		return fmt.Errorf("update admin: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrAdminNotFound
	}
	return nil
}

// UpdateAdminLastLogin 记录最近登录时间
func (s *Store) UpdateAdminLastLogin(id string) error {
	now := time.Now().UTC()
	result := s.gormDB.Model(&domain.Admin{}).Where("id = ?", id).Update("last_login_at", &now)
	if result.Error != nil {
		return fmt.Errorf("update admin last login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrAdminNotFound
	}
	return nil
}

// CountAdmins 统计管理员数量，用于首次启动时初始化默认管理员
func (s *Store) CountAdmins() (int64, error) {
	var count int64
	if err := s.gormDB.Model(&domain.Admin{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}
