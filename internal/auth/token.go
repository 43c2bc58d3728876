package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/academia-portal/internal/domain"
)

// TokenManager issues and verifies HS256 session tokens for the dev auth stub.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Subject is everything needed to mint a token for one account.
type Subject struct {
	Login         string
	UserID        int64
	PersonID      int64
	FullName      string
	InstitutionID int64
	Roles         []string
}

// GenerateToken builds and signs a JWT carrying the subject's claims.
func (tm *TokenManager) GenerateToken(s Subject) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	userID, personID, institutionID := s.UserID, s.PersonID, s.InstitutionID
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := &TokenClaims{
		UserID:        &userID,
		PersonID:      &personID,
		FullName:      s.FullName,
		InstitutionID: &institutionID,
		Roles:         roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Login,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates signature and expiry and returns the claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// RoleSet parses the token's role strings.
func (c *TokenClaims) RoleSet() domain.RoleSet {
	return domain.ParseRoleSet(c.Roles)
}
