package sql

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

// CreateCustomer 创建客户，邮箱重复时返回 storage.ErrCustomerExists
func (s *Store) CreateCustomer(customer *domain.Customer) error {
	customer.Email = domain.NormalizeEmail(customer.Email)
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Customer{}).Where("email = ?", customer.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("check customer exists: %w", err)
		}
		if count > 0 {
			return storage.ErrCustomerExists
		}
		if err := tx.Create(customer).Error; err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		return nil
	})
}

// GetCustomerByID 按 ID 查询客户
func (s *Store) GetCustomerByID(id string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := s.gormDB.First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by id: %w", err)
	}
	return &customer, nil
}

// GetCustomerByEmail 按邮箱查询客户，按小写邮箱比较
func (s *Store) GetCustomerByEmail(email string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := s.gormDB.First(&customer, "email = ?", domain.NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return &customer, nil
}

// ListCustomers 分页查询客户，支持模糊搜索与品牌/标签过滤
func (s *Store) ListCustomers(query domain.CustomerListQuery) ([]domain.Customer, int64, error) {
	query.Normalize()

	db := s.gormDB.Model(&domain.Customer{})
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		db = db.Where(
			"LOWER(email) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(tag) LIKE ? OR LOWER(remarks) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if query.Brand != "" {
		db = db.Where("brand = ?", query.Brand)
	}
	if query.Tag != "" {
		db = db.Where("tag = ?", query.Tag)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	var customers []domain.Customer
	offset := (query.Page - 1) * query.Limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&customers).Error; err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

// UpdateCustomer 更新客户记录
func (s *Store) UpdateCustomer(customer *domain.Customer) error {
	customer.Email = domain.NormalizeEmail(customer.Email)
	result := s.gormDB.Model(&domain.Customer{}).Where("id = ?", customer.ID).Updates(map[string]interface{}{
		"email":      customer.Email,
		"brand":      customer.Brand,
		"tag":        customer.Tag,
		"add_date":   customer.AddDate,
		"remarks":    customer.Remarks,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return fmt.Errorf("update customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrCustomerNotFound
	}
	return nil
}

// DeleteCustomer 删除客户记录
func (s *Store) DeleteCustomer(id string) error {
	result := s.gormDB.Delete(&domain.Customer{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrCustomerNotFound
	}
	return nil
}

// BatchUpsertCustomers 事务内批量写入客户
//
// 已存在的邮箱（按小写比较）跳过，其余插入。批次内重复邮箱只写入一次。
func (s *Store) BatchUpsertCustomers(customers []*domain.Customer) (*domain.BatchUpsertResult, error) {
	result := &domain.BatchUpsertResult{}
	if len(customers) == 0 {
		return result, nil
	}

	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		emails := make([]string, 0, len(customers))
		for _, c := range customers {
			c.Email = domain.NormalizeEmail(c.Email)
			emails = append(emails, c.Email)
		}

		var existing []string
		if err := tx.Model(&domain.Customer{}).Where("email IN ?", emails).Pluck("email", &existing).Error; err != nil {
			return fmt.Errorf("query existing emails: %w", err)
		}
		seen := make(map[string]bool, len(existing))
		for _, e := range existing {
			seen[domain.NormalizeEmail(e)] = true
		}

		for _, c := range customers {
			if seen[c.Email] {
				result.SkippedCount++
				continue
			}
			if err := tx.Create(c).Error; err != nil {
				return fmt.Errorf("insert customer %s: %w", c.Email, err)
			}
			seen[c.Email] = true
			result.InsertedCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
