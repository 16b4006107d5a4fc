package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

// Store 使用内存保存管理员、客户与邮箱账户数据，主要用于开发验证与测试。
type Store struct {
	mu sync.RWMutex

	admins     map[string]*domain.Admin // adminID -> admin
	byUsername map[string]string        // username -> adminID

	customers       map[string]*domain.Customer // customerID -> customer
	byCustomerEmail map[string]string           // 小写邮箱 -> customerID

	accounts       map[string]*domain.EmailAccount // accountID -> account
	byAccountEmail map[string]string               // 小写邮箱 -> accountID
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		admins:          make(map[string]*domain.Admin),
		byUsername:      make(map[string]string),
		customers:       make(map[string]*domain.Customer),
		byCustomerEmail: make(map[string]string),
		accounts:        make(map[string]*domain.EmailAccount),
		byAccountEmail:  make(map[string]string),
	}
}

var _ storage.Store = (*Store)(nil)

// Health 内存存储始终健康
func (s *Store) Health() error { return nil }

// Close 内存存储无需释放资源
func (s *Store) Close() error { return nil }

// ---- AdminRepository ----

func (s *Store) CreateAdmin(admin *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[admin.Username]; ok {
		return storage.ErrAdminExists
	}
	cp := *admin
	s.admins[cp.ID] = &cp
	s.byUsername[cp.Username] = cp.ID
	return nil
}

func (s *Store) GetAdminByID(id string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[id]
	if !ok {
		return nil, storage.ErrAdminNotFound
	}
	cp := *admin
	return &cp, nil
}

func (s *Store) GetAdminByUsername(username string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrAdminNotFound
	}
	cp := *s.admins[id]
	return &cp, nil
}

func (s *Store) UpdateAdmin(admin *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.admins[admin.ID]
	if !ok {
		return storage.ErrAdminNotFound
	}
	existing.PasswordHash = admin.PasswordHash
	existing.IsSuperAdmin = admin.IsSuperAdmin
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UpdateAdminLastLogin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, ok := s.admins[id]
	if !ok {
		return storage.ErrAdminNotFound
	}
	now := time.Now().UTC()
	admin.LastLoginAt = &now
	return nil
}

func (s *Store) CountAdmins() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.admins)), nil
}

// ---- CustomerRepository ----

func (s *Store) CreateCustomer(customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.Email = domain.NormalizeEmail(customer.Email)
	if _, ok := s.byCustomerEmail[customer.Email]; ok {
		return storage.ErrCustomerExists
	}
	cp := *customer
	s.customers[cp.ID] = &cp
	s.byCustomerEmail[cp.Email] = cp.ID
	return nil
}

func (s *Store) GetCustomerByID(id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, storage.ErrCustomerNotFound
	}
	cp := *customer
	return &cp, nil
}

func (s *Store) GetCustomerByEmail(email string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCustomerEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, storage.ErrCustomerNotFound
	}
	cp := *s.customers[id]
	return &cp, nil
}

func (s *Store) ListCustomers(query domain.CustomerListQuery) ([]domain.Customer, int64, error) {
	query.Normalize()

	s.mu.RLock()
	matched := make([]domain.Customer, 0, len(s.customers))
	search := strings.ToLower(strings.TrimSpace(query.Search))
	for _, c := range s.customers {
		if query.Brand != "" && c.Brand != query.Brand {
			continue
		}
		if query.Tag != "" && c.Tag != query.Tag {
			continue
		}
		if search != "" && !customerMatches(c, search) {
			continue
		}
		matched = append(matched, *c)
	}
	s.mu.RUnlock()

	// 与 SQL 实现一致，按创建时间倒序
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (query.Page - 1) * query.Limit
	if start >= len(matched) {
		return []domain.Customer{}, total, nil
	}
	end := start + query.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func customerMatches(c *domain.Customer, search string) bool {
	return strings.Contains(strings.ToLower(c.Email), search) ||
		strings.Contains(strings.ToLower(c.Brand), search) ||
		strings.Contains(strings.ToLower(c.Tag), search) ||
		strings.Contains(strings.ToLower(c.Remarks), search)
}

func (s *Store) UpdateCustomer(customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return storage.ErrCustomerNotFound
	}

	newEmail := domain.NormalizeEmail(customer.Email)
	if newEmail != existing.Email {
		if _, taken := s.byCustomerEmail[newEmail]; taken {
			return storage.ErrCustomerExists
		}
		delete(s.byCustomerEmail, existing.Email)
		s.byCustomerEmail[newEmail] = existing.ID
	}
	existing.Email = newEmail
	existing.Brand = customer.Brand
	existing.Tag = customer.Tag
	existing.AddDate = customer.AddDate
	existing.Remarks = customer.Remarks
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteCustomer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	delete(s.byCustomerEmail, customer.Email)
	delete(s.customers, id)
	return nil
}

func (s *Store) BatchUpsertCustomers(customers []*domain.Customer) (*domain.BatchUpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &domain.BatchUpsertResult{}
	for _, customer := range customers {
		customer.Email = domain.NormalizeEmail(customer.Email)
		if _, ok := s.byCustomerEmail[customer.Email]; ok {
			result.SkippedCount++
			continue
		}
		cp := *customer
		s.customers[cp.ID] = &cp
		s.byCustomerEmail[cp.Email] = cp.ID
		result.InsertedCount++
	}
	return result, nil
}

// ---- EmailAccountRepository ----

func (s *Store) CreateEmailAccount(account *domain.EmailAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account.Email = domain.NormalizeEmail(account.Email)
	if _, ok := s.byAccountEmail[account.Email]; ok {
		return storage.ErrAccountExists
	}
	cp := *account
	s.accounts[cp.ID] = &cp
	s.byAccountEmail[cp.Email] = cp.ID
	return nil
}

func (s *Store) GetEmailAccountByID(id string) (*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Store) GetEmailAccountByEmail(email string) (*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAccountEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

func (s *Store) ListEmailAccounts() ([]domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.EmailAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, *a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Store) UpdateEmailAccount(account *domain.EmailAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	existing.AuthCode = account.AuthCode
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteEmailAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	delete(s.byAccountEmail, account.Email)
	delete(s.accounts, id)
	return nil
}
