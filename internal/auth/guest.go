package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// GuestClaims are the JWT claims carried by a guest session token.
type GuestClaims struct {
	GuestID string `json:"guest_id"`
	jwt.RegisteredClaims
}

// GuestTokenService mints and verifies signed guest session tokens. A guest
// token binds an unauthenticated session to a stable guest cart owner id so
// a guest can only reach their own cart.
type GuestTokenService struct {
	secretKey []byte
	expiry    time.Duration
}

// NewGuestTokenService creates a guest token service.
func NewGuestTokenService(secretKey string, expiry time.Duration) *GuestTokenService {
	return &GuestTokenService{secretKey: []byte(secretKey), expiry: expiry}
}

// Expiry returns the configured token lifetime.
func (s *GuestTokenService) Expiry() time.Duration {
	return s.expiry
}

// Issue creates a new token for the guest id.
func (s *GuestTokenService) Issue(guestID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.expiry)

	claims := GuestClaims{
		GuestID: guestID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   guestID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Verify validates a token and returns the guest id it was issued for.
func (s *GuestTokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &GuestClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*GuestClaims)
	if !ok || !token.Valid || claims.GuestID == "" {
		return "", ErrInvalidToken
	}

	return claims.GuestID, nil
}
