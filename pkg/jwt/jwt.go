package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	AdminToken   TokenType = "admin"   // back-office bearer token
	PaymentToken TokenType = "payment" // proof that a booking's payment was verified
)

const issuer = "staylong-rental"

// Claims represents the JWT claims structure
type Claims struct {
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	BookingID string    `json:"booking_id,omitempty"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Service handles JWT operations
type Service struct {
	adminSecret   string
	paymentSecret string
	adminExpiry   time.Duration
	paymentExpiry time.Duration
}

// NewService creates a new JWT service
func NewService(adminSecret, paymentSecret string, adminExpiry, paymentExpiry time.Duration) *Service {
	return &Service{
		adminSecret:   adminSecret,
		paymentSecret: paymentSecret,
		adminExpiry:   adminExpiry,
		paymentExpiry: paymentExpiry,
	}
}

// GenerateAdminToken generates a bearer token for the back office.
// Issuance normally happens in the identity provider; this is used by tooling and tests.
func (s *Service) GenerateAdminToken(subject, email string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     email,
		Roles:     roles,
		TokenType: AdminToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.adminExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subject,
		},
	}

	return sign(claims, s.adminSecret)
}

// GeneratePaymentToken signs a verification token for bookingID with the webhook secret
func (s *Service) GeneratePaymentToken(bookingID string) (string, error) {
	now := time.Now()
	claims := Claims{
		BookingID: bookingID,
		TokenType: PaymentToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.paymentExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   bookingID,
		},
	}

	return sign(claims, s.paymentSecret)
}

func sign(claims Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.TokenType, err)
	}
	return tokenString, nil
}

// ValidateAdminToken validates and parses a back-office token
func (s *Service) ValidateAdminToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, s.adminSecret, AdminToken)
}

// ValidatePaymentToken validates a payment token and checks it was issued for bookingID
func (s *Service) ValidatePaymentToken(tokenString, bookingID string) (*Claims, error) {
	claims, err := s.validateToken(tokenString, s.paymentSecret, PaymentToken)
	if err != nil {
		return nil, err
	}
	if claims.BookingID != bookingID {
		return nil, fmt.Errorf("token issued for booking %s, not %s", claims.BookingID, bookingID)
	}
	return claims, nil
}

// validateToken validates a token with the given secret and type
func (s *Service) validateToken(tokenString, secret string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Verify token type
	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedType, claims.TokenType)
	}

	return claims, nil
}

// IsExpired reports whether err came from an expired token
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
