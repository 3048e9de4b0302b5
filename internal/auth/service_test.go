package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoflow/insight-engine/internal/auth"
	"github.com/cocoflow/insight-engine/internal/store/memory"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func newTestService(t *testing.T) (*auth.Service, *memory.UserRepo) {
	t.Helper()

	users := memory.NewUserRepo()
	svc := auth.NewService(users, testSecret, 15*time.Minute, 7*24*time.Hour)
	return svc, users
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "maria@cocoflow.com.br", "s3cure-password", "Maria", "manager")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "manager", user.Role)
	assert.NotEqual(t, "s3cure-password", user.PasswordHash)

	access, refresh, err := svc.Login(ctx, "maria@cocoflow.com.br", "s3cure-password")
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	claims, err := auth.ValidateToken(testSecret, access)
	require.NoError(t, err)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "access", claims.TokenType)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao@cocoflow.com.br", "password-one", "João", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "joao@cocoflow.com.br", "password-two", "João 2", "")
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}

func TestRegisterDefaultsRole(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	user, err := svc.Register(context.Background(), "ana@cocoflow.com.br", "secret-password", "Ana", "")
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "maria@cocoflow.com.br", "correct-password", "Maria", "")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "maria@cocoflow.com.br", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@cocoflow.com.br", "whatever")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "maria@cocoflow.com.br", "s3cure-password", "Maria", "admin")
	require.NoError(t, err)

	_, refresh, err := svc.Login(ctx, "maria@cocoflow.com.br", "s3cure-password")
	require.NoError(t, err)

	newAccess, err := svc.RefreshToken(ctx, refresh)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(testSecret, newAccess)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, "admin", claims.Role)
	assert.NotZero(t, user.ID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "maria@cocoflow.com.br", "s3cure-password", "Maria", "")
	require.NoError(t, err)

	access, _, err := svc.Login(ctx, "maria@cocoflow.com.br", "s3cure-password")
	require.NoError(t, err)

	_, err = svc.RefreshToken(ctx, access)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
