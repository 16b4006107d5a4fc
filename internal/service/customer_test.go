package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage/memory"
)

func TestCustomerService_Create(t *testing.T) {
	svc := NewCustomerService(memory.NewStore())

	t.Run("创建成功并转小写", func(t *testing.T) {
		customer, err := svc.Create(CustomerInput{
			Email: "Buyer@Example.COM",
			Brand: "velolink",
			Tag:   "order",
		})
		require.NoError(t, err)
		assert.Equal(t, "buyer@example.com", customer.Email)
		assert.NotEmpty(t, customer.ID)
		// 未指定添加日期时取当天
		assert.Len(t, customer.AddDate, len(domain.DateLayout))
	})

	t.Run("重复邮箱冲突", func(t *testing.T) {
		_, err := svc.Create(CustomerInput{Email: "buyer@example.com"})
		assert.ErrorIs(t, err, ErrCustomerExists)
	})

	t.Run("非法邮箱拒绝", func(t *testing.T) {
		_, err := svc.Create(CustomerInput{Email: "not-an-email"})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})

	t.Run("非法添加日期拒绝", func(t *testing.T) {
		_, err := svc.Create(CustomerInput{Email: "other@example.com", AddDate: "2025-02-30"})
		assert.ErrorIs(t, err, domain.ErrInvalidDate)
	})
}

func TestCustomerService_UpdateDelete(t *testing.T) {
	svc := NewCustomerService(memory.NewStore())

	created, err := svc.Create(CustomerInput{Email: "a@example.com", Brand: "old"})
	require.NoError(t, err)

	updated, err := svc.Update(created.ID, CustomerInput{
		Email:   "a@example.com",
		Brand:   "new",
		AddDate: "2025-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Brand)
	assert.Equal(t, "2025-06-01", updated.AddDate)

	require.NoError(t, svc.Delete(created.ID))
	assert.ErrorIs(t, svc.Delete(created.ID), ErrCustomerNotFound)

	_, err = svc.Get(created.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerService_BatchUpsert(t *testing.T) {
	svc := NewCustomerService(memory.NewStore())

	_, err := svc.Create(CustomerInput{Email: "exist@example.com"})
	require.NoError(t, err)

	t.Run("已存在的跳过其余插入", func(t *testing.T) {
		result, err := svc.BatchUpsert([]CustomerInput{
			{Email: "Exist@Example.com"},
			{Email: "new1@example.com"},
			{Email: "new2@example.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.InsertedCount)
		assert.Equal(t, 1, result.SkippedCount)
	})

	t.Run("含非法邮箱整体拒绝", func(t *testing.T) {
		_, err := svc.BatchUpsert([]CustomerInput{
			{Email: "ok@example.com"},
			{Email: "broken"},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})
}

func TestCustomerService_List(t *testing.T) {
	svc := NewCustomerService(memory.NewStore())

	for _, input := range []CustomerInput{
		{Email: "alpha@shop.com", Brand: "velolink", Tag: "order"},
		{Email: "beta@shop.com", Brand: "velolink", Tag: "refund"},
		{Email: "gamma@other.com", Brand: "acme", Tag: "order"},
	} {
		_, err := svc.Create(input)
		require.NoError(t, err)
	}

	customers, total, err := svc.List(domain.CustomerListQuery{Search: "SHOP.COM"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, customers, 2)

	customers, total, err = svc.List(domain.CustomerListQuery{Brand: "acme"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "gamma@other.com", customers[0].Email)
}
