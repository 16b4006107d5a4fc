package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage/memory"
)

func TestEmailAccountService(t *testing.T) {
	svc := NewEmailAccountService(memory.NewStore())

	t.Run("录入账户", func(t *testing.T) {
		account, err := svc.Create(EmailAccountInput{
			Email:    "Crawl@AOL.com",
			AuthCode: "abcd1234",
		})
		require.NoError(t, err)
		assert.Equal(t, "crawl@aol.com", account.Email)
	})

	t.Run("重复邮箱冲突", func(t *testing.T) {
		_, err := svc.Create(EmailAccountInput{Email: "crawl@aol.com", AuthCode: "x1y2z3w4"})
		assert.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("授权码不能为空", func(t *testing.T) {
		_, err := svc.Create(EmailAccountInput{Email: "second@aol.com", AuthCode: "   "})
		assert.ErrorIs(t, err, ErrAuthCodeEmpty)
	})

	t.Run("非法邮箱拒绝", func(t *testing.T) {
		_, err := svc.Create(EmailAccountInput{Email: "broken", AuthCode: "abcd1234"})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})
}

func TestEmailAccountService_UpdateAuthCode(t *testing.T) {
	svc := NewEmailAccountService(memory.NewStore())

	account, err := svc.Create(EmailAccountInput{Email: "crawl@aol.com", AuthCode: "oldcode1"})
	require.NoError(t, err)

	updated, err := svc.UpdateAuthCode(account.ID, "newcode2")
	require.NoError(t, err)
	assert.Equal(t, "newcode2", updated.AuthCode)

	_, err = svc.UpdateAuthCode(account.ID, "")
	assert.ErrorIs(t, err, ErrAuthCodeEmpty)

	_, err = svc.UpdateAuthCode("ghost", "whatever1")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestEmailAccountService_DeleteList(t *testing.T) {
	svc := NewEmailAccountService(memory.NewStore())

	a, err := svc.Create(EmailAccountInput{Email: "a@aol.com", AuthCode: "code1234"})
	require.NoError(t, err)
	_, err = svc.Create(EmailAccountInput{Email: "b@aol.com", AuthCode: "code5678"})
	require.NoError(t, err)

	accounts, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	require.NoError(t, svc.Delete(a.ID))
	assert.ErrorIs(t, svc.Delete(a.ID), ErrAccountNotFound)
}
