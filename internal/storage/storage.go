package storage

import (
	"errors"

	"github.com/gambey/amz-saas-svr/internal/domain"
)

var (
	// ErrAdminNotFound 管理员未找到
	ErrAdminNotFound = errors.New("admin not found")
	// ErrAdminExists 管理员用户名已存在
	ErrAdminExists = errors.New("admin already exists")
	// ErrCustomerNotFound 客户未找到
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCustomerExists 客户邮箱已存在
	ErrCustomerExists = errors.New("customer already exists")
	// ErrAccountNotFound 邮箱账户未找到
	ErrAccountNotFound = errors.New("email account not found")
	// ErrAccountExists 邮箱账户已存在
	ErrAccountExists = errors.New("email account already exists")
)

// AdminRepository 定义管理员数据存取操作。
type AdminRepository interface {
	CreateAdmin(admin *domain.Admin) error
	GetAdminByID(id string) (*domain.Admin, error)
	GetAdminByUsername(username string) (*domain.Admin, error)
	UpdateAdmin(admin *domain.Admin) error
	UpdateAdminLastLogin(id string) error
	CountAdmins() (int64, error)
}

// CustomerRepository 定义客户数据存取操作。
type CustomerRepository interface {
	CreateCustomer(customer *domain.Customer) error
	GetCustomerByID(id string) (*domain.Customer, error)
	GetCustomerByEmail(email string) (*domain.Customer, error)
	ListCustomers(query domain.CustomerListQuery) ([]domain.Customer, int64, error)
	UpdateCustomer(customer *domain.Customer) error
	DeleteCustomer(id string) error
	// BatchUpsertCustomers 事务内批量写入：已存在的邮箱跳过，其余插入。
	// 去重按小写邮箱比较。
	BatchUpsertCustomers(customers []*domain.Customer) (*domain.BatchUpsertResult, error)
}

// EmailAccountRepository 定义可抓取邮箱账户的数据存取操作。
type EmailAccountRepository interface {
	CreateEmailAccount(account *domain.EmailAccount) error
	GetEmailAccountByID(id string) (*domain.EmailAccount, error)
	GetEmailAccountByEmail(email string) (*domain.EmailAccount, error)
	ListEmailAccounts() ([]domain.EmailAccount, error)
	UpdateEmailAccount(account *domain.EmailAccount) error
	DeleteEmailAccount(id string) error
}

// Store 聚合所有仓储接口，由 SQL 存储和内存存储分别实现。
type Store interface {
	AdminRepository
	CustomerRepository
	EmailAccountRepository

	Health() error
	Close() error
}
