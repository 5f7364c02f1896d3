package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles understood by the service. Staff are scoped to the hotels in their token.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Claims are issued by the identity service; only the hotel scope matters here.
type Claims struct {
	Role     string   `json:"role"`
	HotelIDs []string `json:"hotel_ids"`
	jwt.RegisteredClaims
}

// CanAccessHotel reports whether the token holder may see data of hotelID.
func (c *Claims) CanAccessHotel(hotelID uuid.UUID) bool {
	if c.Role == RoleAdmin {
		return true
	}
	for _, id := range c.HotelIDs {
		if id == hotelID.String() {
			return true
		}
	}
	return false
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Issue signs a token. Production tokens come from the identity service; this is
// used by tests and local tooling.
func (v *Verifier) Issue(subject, role string, hotelIDs []uuid.UUID, ttl time.Duration) (string, error) {
	ids := make([]string, len(hotelIDs))
	for i, id := range hotelIDs {
		ids[i] = id.String()
	}
	now := time.Now().UTC()
	claims := Claims{
		Role:     role,
		HotelIDs: ids,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses and validates a token string.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
