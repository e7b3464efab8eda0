package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the signed credential payload: subject identity, tenant binding
// and role set. A single-company session carries CompanyID; a multi-company
// worker session carries CompanyIDs; a pre-selection session carries neither.
type Claims struct {
	UserID     uuid.UUID   `json:"user_id"`
	CompanyID  *uuid.UUID  `json:"company_id,omitempty"`
	CompanyIDs []uuid.UUID `json:"company_ids,omitempty"`
	Roles      []string    `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the role set contains any of the wanted roles.
func (c *Claims) HasRole(wanted ...string) bool {
	for _, w := range wanted {
		for _, r := range c.Roles {
			if r == w {
				return true
			}
		}
	}
	return false
}

// TokenService issues and verifies signed session credentials. Verification
// is purely computational: a credential stays valid until natural expiry even
// if the membership behind it was revoked (no revocation store), and rotating
// the secret invalidates all outstanding credentials.
type TokenService struct {
	secret      []byte
	expireHours int
}

// NewTokenService creates a token service. The secret comes from process
// configuration; nothing else reads it.
func NewTokenService(secret string, expireHours int) *TokenService {
	if expireHours <= 0 {
		expireHours = 7 * 24
	}
	return &TokenService{secret: []byte(secret), expireHours: expireHours}
}

// Issue creates a credential bound to a single company.
func (s *TokenService) Issue(userID, companyID uuid.UUID, roles ...string) (string, error) {
	return s.sign(Claims{UserID: userID, CompanyID: &companyID, Roles: roles})
}

// IssueMulti creates a credential bound to a set of companies (multi-company
// worker session).
func (s *TokenService) IssueMulti(userID uuid.UUID, companyIDs []uuid.UUID, roles []string) (string, error) {
	return s.sign(Claims{UserID: userID, CompanyIDs: companyIDs, Roles: roles})
}

// IssueUnbound creates a credential with no tenant binding (independent
// worker, pre-selection).
func (s *TokenService) IssueUnbound(userID uuid.UUID, roles ...string) (string, error) {
	return s.sign(Claims{UserID: userID, Roles: roles})
}

func (s *TokenService) sign(claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expireHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a credential, returning claims or ErrInvalidToken.
// Fails on bad signature, malformed structure, or passed expiry.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
