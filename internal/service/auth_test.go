package service

import (
	"context"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserStore struct {
	users map[string]*models.User
}

func (s *memUserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, models.ErrUserNotFound
}

func newAuthFixture(t *testing.T, ttl time.Duration) (*AuthService, *models.User) {
	t.Helper()

	hash, err := HashPassword("s3cret-pw")
	require.NoError(t, err)

	user := &models.User{
		UserID:       uuid.New(),
		Username:     "cashier1",
		PasswordHash: hash,
		FullName:     "Anh Nguyen",
		Role:         "cashier",
	}
	store := &memUserStore{users: map[string]*models.User{user.Username: user}}
	return NewAuthService(store, "test-signing-secret", ttl), user
}

func TestLoginAndVerify(t *testing.T) {
	auth, user := newAuthFixture(t, time.Hour)

	resp, err := auth.Login(context.Background(), &LoginRequest{
		Username: "cashier1",
		Password: "s3cret-pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "Anh Nguyen", resp.FullName)
	assert.Equal(t, "cashier", resp.Role)
	require.NotEmpty(t, resp.Token)

	userID, claims, err := auth.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, userID)
	assert.Equal(t, "Anh Nguyen", claims.Name)
	assert.Equal(t, "cashier", claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	auth, _ := newAuthFixture(t, time.Hour)

	_, err := auth.Login(context.Background(), &LoginRequest{
		Username: "cashier1",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	auth, _ := newAuthFixture(t, time.Hour)

	_, err := auth.Login(context.Background(), &LoginRequest{
		Username: "nobody",
		Password: "s3cret-pw",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials,
		"unknown user and wrong password must be indistinguishable")
}

func TestVerifyTokenGarbage(t *testing.T) {
	auth, _ := newAuthFixture(t, time.Hour)

	_, _, err := auth.VerifyToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	auth, _ := newAuthFixture(t, time.Hour)

	resp, err := auth.Login(context.Background(), &LoginRequest{
		Username: "cashier1",
		Password: "s3cret-pw",
	})
	require.NoError(t, err)

	other := NewAuthService(&memUserStore{}, "a-different-secret", time.Hour)
	_, _, err = other.VerifyToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenExpired(t *testing.T) {
	auth, _ := newAuthFixture(t, -time.Minute)

	resp, err := auth.Login(context.Background(), &LoginRequest{
		Username: "cashier1",
		Password: "s3cret-pw",
	})
	require.NoError(t, err)

	_, _, err = auth.VerifyToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
