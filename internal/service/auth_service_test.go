package service

import (
	"testing"
	"time"

	"biostats-go/internal/config"
	"biostats-go/internal/dto"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"
	"biostats-go/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) (*AuthService, *utils.JWTManager) {
	t.Helper()
	jwtManager := utils.NewJWTManager("secret", "HS256", time.Hour)
	admin := config.AdminConfig{Username: "admin", Password: "admin123"}
	return NewAuthService(repository.NewUserRepository(setupTestDB(t)), jwtManager, admin, testLogger()), jwtManager
}

func TestAuthService_InitAdminAndLogin(t *testing.T) {
	auth, jwtManager := newTestAuthService(t)

	require.NoError(t, auth.InitAdmin())
	// 已存在管理员时不重复创建
	require.NoError(t, auth.InitAdmin())

	resp, err := auth.Login(&dto.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	claims, err := jwtManager.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = auth.Login(&dto.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(&dto.LoginRequest{Username: "nobody", Password: "admin123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_InitAdminWithHash(t *testing.T) {
	jwtManager := utils.NewJWTManager("secret", "HS256", time.Hour)
	hash, err := utils.HashPassword("hashed-pass")
	require.NoError(t, err)
	auth := NewAuthService(repository.NewUserRepository(setupTestDB(t)), jwtManager,
		config.AdminConfig{Username: "root", Password: hash}, testLogger())

	require.NoError(t, auth.InitAdmin())
	_, err = auth.Login(&dto.LoginRequest{Username: "root", Password: "hashed-pass"})
	assert.NoError(t, err)
}

func TestAuthService_CreateUser(t *testing.T) {
	auth, _ := newTestAuthService(t)

	info, err := auth.CreateUser(&dto.CreateUserRequest{Username: "curator", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, info.Role)
	assert.True(t, info.IsActive)

	_, err = auth.CreateUser(&dto.CreateUserRequest{Username: "curator", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserExists)

	me, err := auth.GetMe(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "curator", me.Username)

	_, err = auth.GetMe(999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
