package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"keyclue/internal/model"
)

// AuthService handles host and player authentication
type AuthService struct {
	hostUsername string
	hostPassword string
	jwtSecret    []byte
}

// NewAuthService creates a new auth service
func NewAuthService(hostUsername, hostPassword, jwtSecret string) *AuthService {
	return &AuthService{
		hostUsername: hostUsername,
		hostPassword: hostPassword,
		jwtSecret:    []byte(jwtSecret),
	}
}

// Login validates credentials and returns a host token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if username != s.hostUsername || password != s.hostPassword {
		return nil, ErrInvalidCredentials
	}

	hostID := "host_" + uuid.New().String()[:8]

	claims := &model.HostClaims{
		HostID: hostID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:  tokenString,
		HostID: hostID,
	}, nil
}

// ValidateHostToken validates a host JWT and returns claims
func (s *AuthService) ValidateHostToken(tokenString string) (*model.HostClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.HostClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.HostClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GeneratePlayerToken creates a game-scoped token for a player
func (s *AuthService) GeneratePlayerToken(gameCode, playerID string) (string, error) {
	claims := &model.PlayerClaims{
		GameCode: gameCode,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // 24h for game sessions
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidatePlayerToken validates a player JWT and returns claims
func (s *AuthService) ValidatePlayerToken(tokenString string) (*model.PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
