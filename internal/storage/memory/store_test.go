package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage"
)

func TestAdminCRUD(t *testing.T) {
	store := NewStore()

	admin := &domain.Admin{ID: "a1", Username: "admin", PasswordHash: "hash", IsSuperAdmin: true}
	require.NoError(t, store.CreateAdmin(admin))

	t.Run("重复用户名被拒绝", func(t *testing.T) {
		err := store.CreateAdmin(&domain.Admin{ID: "a2", Username: "admin"})
		assert.ErrorIs(t, err, storage.ErrAdminExists)
	})

	t.Run("按用户名查询", func(t *testing.T) {
		got, err := store.GetAdminByUsername("admin")
		require.NoError(t, err)
		assert.Equal(t, "a1", got.ID)
		assert.True(t, got.IsSuperAdmin)
	})

	t.Run("更新最近登录时间", func(t *testing.T) {
		require.NoError(t, store.UpdateAdminLastLogin("a1"))
		got, err := store.GetAdminByID("a1")
		require.NoError(t, err)
		assert.NotNil(t, got.LastLoginAt)
	})

	t.Run("未知管理员返回未找到", func(t *testing.T) {
		_, err := store.GetAdminByID("missing")
		assert.ErrorIs(t, err, storage.ErrAdminNotFound)
	})
}

func TestCustomerCRUD(t *testing.T) {
	store := NewStore()

	c := &domain.Customer{ID: "c1", Email: "Foo@Bar.com", Brand: "Velolink", Tag: "NS2", AddDate: "2025-06-01"}
	require.NoError(t, store.CreateCustomer(c))

	t.Run("邮箱统一为小写", func(t *testing.T) {
		got, err := store.GetCustomerByEmail("foo@bar.com")
		require.NoError(t, err)
		assert.Equal(t, "foo@bar.com", got.Email)
	})

	t.Run("大小写不同视为重复", func(t *testing.T) {
		err := store.CreateCustomer(&domain.Customer{ID: "c2", Email: "FOO@bar.com"})
		assert.ErrorIs(t, err, storage.ErrCustomerExists)
	})

	t.Run("删除后索引同步清理", func(t *testing.T) {
		require.NoError(t, store.DeleteCustomer("c1"))
		_, err := store.GetCustomerByEmail("foo@bar.com")
		assert.ErrorIs(t, err, storage.ErrCustomerNotFound)
	})
}

func TestListCustomers(t *testing.T) {
	store := NewStore()

	base := time.Now().UTC()
	seed := []*domain.Customer{
		{ID: "c1", Email: "alice@example.com", Brand: "Velolink", Tag: "NS2", Remarks: "批量导入", CreatedAt: base},
		{ID: "c2", Email: "bob@example.com", Brand: "Velolink", Tag: "3in1", CreatedAt: base.Add(time.Second)},
		{ID: "c3", Email: "carol@other.com", Brand: "Acme", Tag: "NS2", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, c := range seed {
		require.NoError(t, store.CreateCustomer(c))
	}

	t.Run("模糊搜索匹配邮箱", func(t *testing.T) {
		got, total, err := store.ListCustomers(domain.CustomerListQuery{Search: "ALICE"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, got, 1)
		assert.Equal(t, "alice@example.com", got[0].Email)
	})

	t.Run("品牌过滤", func(t *testing.T) {
		_, total, err := store.ListCustomers(domain.CustomerListQuery{Brand: "Velolink"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})

	t.Run("分页与倒序", func(t *testing.T) {
		got, total, err := store.ListCustomers(domain.CustomerListQuery{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, got, 2)
		assert.Equal(t, "carol@other.com", got[0].Email)
	})

	t.Run("超出范围的页返回空", func(t *testing.T) {
		got, total, err := store.ListCustomers(domain.CustomerListQuery{Page: 5, Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Empty(t, got)
	})
}

func TestBatchUpsertCustomers(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.CreateCustomer(&domain.Customer{ID: "c1", Email: "existing@example.com"}))

	batch := []*domain.Customer{
		{ID: "b1", Email: "Existing@Example.com"}, // 已存在，跳过
		{ID: "b2", Email: "new1@example.com"},
		{ID: "b3", Email: "new2@example.com"},
		{ID: "b4", Email: "NEW1@example.com"}, // 批次内重复，跳过
	}
	result, err := store.BatchUpsertCustomers(batch)
	require.NoError(t, err)
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 2, result.SkippedCount)

	_, err = store.GetCustomerByEmail("new1@example.com")
	assert.NoError(t, err)
}

func TestEmailAccountCRUD(t *testing.T) {
	store := NewStore()

	acc := &domain.EmailAccount{ID: "e1", Email: "crawl@aol.com", AuthCode: "secret-code"}
	require.NoError(t, store.CreateEmailAccount(acc))

	t.Run("重复邮箱被拒绝", func(t *testing.T) {
		err := store.CreateEmailAccount(&domain.EmailAccount{ID: "e2", Email: "CRAWL@aol.com"})
		assert.ErrorIs(t, err, storage.ErrAccountExists)
	})

	t.Run("更新授权码", func(t *testing.T) {
		acc.AuthCode = "new-code"
		require.NoError(t, store.UpdateEmailAccount(acc))
		got, err := store.GetEmailAccountByID("e1")
		require.NoError(t, err)
		assert.Equal(t, "new-code", got.AuthCode)
	})

	t.Run("列表按创建时间排序", func(t *testing.T) {
		accounts, err := store.ListEmailAccounts()
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	})

	t.Run("删除", func(t *testing.T) {
		require.NoError(t, store.DeleteEmailAccount("e1"))
		_, err := store.GetEmailAccountByEmail("crawl@aol.com")
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})
}
