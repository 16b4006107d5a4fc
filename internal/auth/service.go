package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

var (
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAdminNotFound 管理员不存在
	ErrAdminNotFound = errors.New("admin not found")
	// ErrAdminExists 用户名已存在
	ErrAdminExists = errors.New("admin already exists")
	// ErrWrongOldPassword 旧密码错误
	ErrWrongOldPassword = errors.New("old password does not match")
)

// 默认管理员账号，首次启动数据库为空时创建
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// Service 管理员认证服务
type Service struct {
	admins storage.AdminRepository
}

// NewService 创建认证服务
func NewService(admins storage.AdminRepository) *Service {
	return &Service{admins: admins}
}

// LoginInput 登录输入
type LoginInput struct {
	Username string
	Password string
}

// CreateAdminInput 创建管理员输入
type CreateAdminInput struct {
	Username     string
	Password     string
	IsSuperAdmin bool
}

// Login 管理员登录，凭证无效时统一返回 ErrInvalidCredentials
func (s *Service) Login(input LoginInput) (*domain.Admin, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	admin, err := s.admins.GetAdminByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !CheckPassword(input.Password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	_ = s.admins.UpdateAdminLastLogin(admin.ID)

	return admin, nil
}

// GetAdminByID 根据 ID 获取管理员
func (s *Service) GetAdminByID(id string) (*domain.Admin, error) {
	admin, err := s.admins.GetAdminByID(id)
	if err != nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

// CreateAdmin 创建管理员
func (s *Service) CreateAdmin(input CreateAdminInput) (*domain.Admin, error) {
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.Admin{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: hash,
		IsSuperAdmin: input.IsSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.admins.CreateAdmin(admin); err != nil {
		if errors.Is(err, storage.ErrAdminExists) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

// ResetPassword 按用户名直接重置密码，仅供命令行工具使用
func (s *Service) ResetPassword(username, newPassword string) (*domain.Admin, error) {
	admin, err := s.admins.GetAdminByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, ErrAdminNotFound
	}

	if err := domain.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin.PasswordHash = hash
	admin.UpdatedAt = time.Now().UTC()
	if err := s.admins.UpdateAdmin(admin); err != nil {
		return nil, fmt.Errorf("failed to update admin: %w", err)
	}
	return admin, nil
}

// ChangePassword 修改密码，旧密码校验通过后才更新
func (s *Service) ChangePassword(adminID, oldPassword, newPassword string) error {
	admin, err := s.admins.GetAdminByID(adminID)
	if err != nil {
		return ErrAdminNotFound
	}

	if !CheckPassword(oldPassword, admin.PasswordHash) {
		return ErrWrongOldPassword
	}

	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin.PasswordHash = newHash
	return s.admins.UpdateAdmin(admin)
}

// EnsureDefaultAdmin 管理员表为空时创建默认超级管理员
//
// 返回是否创建了默认账号，用于启动日志提示修改默认密码。
func (s *Service) EnsureDefaultAdmin() (bool, error) {
	count, err := s.admins.CountAdmins()
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := HashPassword(DefaultAdminPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash default password: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.Admin{
		ID:           uuid.New().String(),
		Username:     DefaultAdminUsername,
		PasswordHash: hash,
		IsSuperAdmin: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.admins.CreateAdmin(admin); err != nil {
		// 并发启动时另一实例可能已创建
		if errors.Is(err, storage.ErrAdminExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
