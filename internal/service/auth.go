package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown usernames and wrong
// passwords so login responses do not leak which one failed.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore is the account lookup the auth service needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthService issues and verifies the bearer tokens terminals use.
type AuthService struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store UserStore, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		store:    store,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   util.GetLogger(),
	}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the signed token and display fields.
type LoginResponse struct {
	Token    string `json:"token"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// Claims are the token claims carried per authenticated terminal session.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login verifies credentials and issues a token.
func (a *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := a.store.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		a.logger.Info("Rejected login", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	token, err := a.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResponse{
		Token:    token,
		FullName: user.FullName,
		Role:     user.Role,
	}, nil
}

// VerifyToken parses a bearer token and returns the actor id.
func (a *AuthService) VerifyToken(tokenString string) (uuid.UUID, *Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, nil, ErrInvalidCredentials
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, ErrInvalidCredentials
	}
	return userID, claims, nil
}

func (a *AuthService) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: user.FullName,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// HashPassword is used by account seeding tooling.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
