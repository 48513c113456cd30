package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/mayumon/utow-mayubot/utils"
)

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthService authenticates the single configured operator and issues the
// JWT the mutating routes require.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (string, error)
}

type authService struct {
	operatorUser string
	operatorHash string
	jwtSecret    []byte
	tokenTTL     time.Duration
}

func NewAuthService(operatorUser, operatorHash string, jwtSecret []byte, tokenTTL time.Duration) AuthService {
	return &authService{
		operatorUser: operatorUser,
		operatorHash: operatorHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
	}
}

func (s *authService) Login(_ context.Context, input LoginInput) (string, error) {
	// Both checks always run so a wrong username costs the same as a wrong
	// password.
	usernameMatch := subtle.ConstantTimeCompare([]byte(input.Username), []byte(s.operatorUser)) == 1
	passwordMatch := utils.CheckPasswordHash(input.Password, s.operatorHash)
	if !usernameMatch || !passwordMatch {
		return "", ErrAuthInvalidCredentials
	}

	token, err := utils.GenerateToken(s.operatorUser, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
