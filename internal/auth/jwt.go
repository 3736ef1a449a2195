package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/01moynul/storefront-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// SubjectKind tells storefront sessions from admin sessions.
type SubjectKind string

const (
	KindUser  SubjectKind = "user"
	KindAdmin SubjectKind = "admin"
)

// Subject is who a session token was issued to.
type Subject struct {
	ID   int64
	Kind SubjectKind
	Role models.AdminRole
}

// Claims is the payload of a session token.
type Claims struct {
	Kind SubjectKind      `json:"kind"`
	Role models.AdminRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate creates a signed token for sub and returns it with its expiry.
func (m *TokenManager) Generate(sub Subject) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	// 1. Create the claims.
	claims := Claims{
		Kind: sub.Kind,
		Role: sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(sub.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	// 2. Sign with HS256.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expires, nil
}

// Validate parses tokenString and returns its subject.
func (m *TokenManager) Validate(tokenString string) (Subject, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return Subject{}, err
	}
	if !token.Valid {
		return Subject{}, errors.New("invalid token")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Subject{}, errors.New("invalid subject claim")
	}
	switch claims.Kind {
	case KindUser, KindAdmin:
	default:
		return Subject{}, errors.New("invalid kind claim")
	}
	return Subject{ID: id, Kind: claims.Kind, Role: claims.Role}, nil
}
