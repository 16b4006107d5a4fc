package service

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCustomerExists   = errors.New("customer already exists")
)

// CustomerService 封装客户相关业务操作。
type CustomerService struct {
	repo storage.CustomerRepository
}

// NewCustomerService 创建客户业务服务。
func NewCustomerService(repo storage.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// CustomerInput 定义创建和更新客户所需的输入。
type CustomerInput struct {
	Email   string
	Brand   string
	Tag     string
	AddDate string // YYYY-MM-DD，为空时取当天
	Remarks string
}

// Create 创建新客户，邮箱统一转小写后判重。
func (s *CustomerService) Create(input CustomerInput) (*domain.Customer, error) {
	email, addDate, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		ID:      uuid.New().String(),
		Email:   email,
		Brand:   input.Brand,
		Tag:     input.Tag,
		AddDate: addDate,
		Remarks: input.Remarks,
	}
	if err := s.repo.CreateCustomer(customer); err != nil {
		if errors.Is(err, storage.ErrCustomerExists) {
			return nil, ErrCustomerExists
		}
		return nil, err
	}
	return customer, nil
}

// Get 按 ID 查询客户。
func (s *CustomerService) Get(id string) (*domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

// Update 更新客户资料，邮箱变更时重新判重。
func (s *CustomerService) Update(id string, input CustomerInput) (*domain.Customer, error) {
	customer, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	email, addDate, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	customer.Email = email
	customer.Brand = input.Brand
	customer.Tag = input.Tag
	customer.AddDate = addDate
	customer.Remarks = input.Remarks

	if err := s.repo.UpdateCustomer(customer); err != nil {
		if errors.Is(err, storage.ErrCustomerExists) {
			return nil, ErrCustomerExists
		}
		if errors.Is(err, storage.ErrCustomerNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

// Delete 删除客户。
func (s *CustomerService) Delete(id string) error {
	if err := s.repo.DeleteCustomer(id); err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			return ErrCustomerNotFound
		}
		return err
	}
	return nil
}

// List 分页模糊查询客户列表，返回当前页数据和总数。
func (s *CustomerService) List(query domain.CustomerListQuery) ([]domain.Customer, int64, error) {
	query.Normalize()
	return s.repo.ListCustomers(query)
}

// BatchUpsert 批量写入客户，已存在的邮箱跳过。
// 输入中的非法邮箱整体拒绝，不做部分写入。
func (s *CustomerService) BatchUpsert(inputs []CustomerInput) (*domain.BatchUpsertResult, error) {
	customers := make([]*domain.Customer, 0, len(inputs))
	for _, input := range inputs {
		email, addDate, err := s.normalize(input)
		if err != nil {
			return nil, err
		}
		customers = append(customers, &domain.Customer{
			ID:      uuid.New().String(),
			Email:   email,
			Brand:   input.Brand,
			Tag:     input.Tag,
			AddDate: addDate,
			Remarks: input.Remarks,
		})
	}
	return s.repo.BatchUpsertCustomers(customers)
}

func (s *CustomerService) normalize(input CustomerInput) (email, addDate string, err error) {
	email = domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return "", "", err
	}
	addDate = input.AddDate
	if addDate == "" {
		addDate = time.Now().Format(domain.DateLayout)
	} else if _, err := domain.ParseDate(addDate); err != nil {
		return "", "", err
	}
	return email, addDate, nil
}
