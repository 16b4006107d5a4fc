package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/storage/memory"
)

func newServiceWithAdmin(t *testing.T) (*Service, *domain.Admin) {
	t.Helper()
	service := NewService(memory.NewStore())
	admin, err := service.CreateAdmin(CreateAdminInput{
		Username:     "operator",
		Password:     "Sunny-Day42",
		IsSuperAdmin: false,
	})
	require.NoError(t, err)
	return service, admin
}

func TestCreateAdmin(t *testing.T) {
	service := NewService(memory.NewStore())

	admin, err := service.CreateAdmin(CreateAdminInput{
		Username:     "operator",
		Password:     "Sunny-Day42",
		IsSuperAdmin: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, admin.ID)
	assert.True(t, admin.IsSuperAdmin)
	assert.NotEqual(t, "Sunny-Day42", admin.PasswordHash)

	t.Run("重复用户名", func(t *testing.T) {
		_, err := service.CreateAdmin(CreateAdminInput{Username: "operator", Password: "Sunny-Day42"})
		assert.ErrorIs(t, err, ErrAdminExists)
	})

	t.Run("弱密码被拒绝", func(t *testing.T) {
		_, err := service.CreateAdmin(CreateAdminInput{Username: "other", Password: "abcdefgh"})
		assert.ErrorIs(t, err, domain.ErrPasswordTooSimple)
	})
}

func TestLogin(t *testing.T) {
	service, _ := newServiceWithAdmin(t)

	t.Run("登录成功", func(t *testing.T) {
		admin, err := service.Login(LoginInput{Username: "operator", Password: "Sunny-Day42"})
		require.NoError(t, err)
		assert.Equal(t, "operator", admin.Username)
	})

	t.Run("密码错误", func(t *testing.T) {
		_, err := service.Login(LoginInput{Username: "operator", Password: "wrong-pass1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("用户不存在", func(t *testing.T) {
		_, err := service.Login(LoginInput{Username: "ghost", Password: "Sunny-Day42"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("空凭证", func(t *testing.T) {
		_, err := service.Login(LoginInput{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChangePassword(t *testing.T) {
	service, admin := newServiceWithAdmin(t)

	t.Run("旧密码错误", func(t *testing.T) {
		err := service.ChangePassword(admin.ID, "wrong-old", "Rainy-Day43")
		assert.ErrorIs(t, err, ErrWrongOldPassword)
	})

	t.Run("新密码太弱", func(t *testing.T) {
		err := service.ChangePassword(admin.ID, "Sunny-Day42", "aaaaaaaa")
		assert.ErrorIs(t, err, domain.ErrPasswordTooSimple)
	})

	t.Run("修改成功后新密码生效", func(t *testing.T) {
		require.NoError(t, service.ChangePassword(admin.ID, "Sunny-Day42", "Rainy-Day43"))

		_, err := service.Login(LoginInput{Username: "operator", Password: "Sunny-Day42"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = service.Login(LoginInput{Username: "operator", Password: "Rainy-Day43"})
		assert.NoError(t, err)
	})
}

func TestResetPassword(t *testing.T) {
	service, _ := newServiceWithAdmin(t)

	t.Run("用户不存在", func(t *testing.T) {
		_, err := service.ResetPassword("nobody", "Rainy-Day43")
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})

	t.Run("新密码太弱", func(t *testing.T) {
		_, err := service.ResetPassword("operator", "aaaaaaaa")
		assert.ErrorIs(t, err, domain.ErrPasswordTooSimple)
	})

	t.Run("重置后旧密码失效", func(t *testing.T) {
		_, err := service.ResetPassword("operator", "Rainy-Day43")
		require.NoError(t, err)

		_, err = service.Login(LoginInput{Username: "operator", Password: "Sunny-Day42"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = service.Login(LoginInput{Username: "operator", Password: "Rainy-Day43"})
		assert.NoError(t, err)
	})
}

func TestEnsureDefaultAdmin(t *testing.T) {
	service := NewService(memory.NewStore())

	created, err := service.EnsureDefaultAdmin()
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := service.Login(LoginInput{Username: DefaultAdminUsername, Password: DefaultAdminPassword})
	require.NoError(t, err)
	assert.True(t, admin.IsSuperAdmin)

	// 已有管理员时不再创建
	created, err = service.EnsureDefaultAdmin()
	require.NoError(t, err)
	assert.False(t, created)
}
