package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a storefront customer, identified by phone number.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	FullName  *string   `json:"fullName,omitempty" db:"full_name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// AdminRole drives the RBAC checks of the admin routes.
type AdminRole string

const (
	RoleSuperAdmin AdminRole = "super_admin"
	RoleManager    AdminRole = "manager"
	RoleSupport    AdminRole = "support"
)

// Valid reports whether r is one of the known roles.
func (r AdminRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleManager, RoleSupport:
		return true
	}
	return false
}

// Admin is a back-office account. Admins log in with OTP like users but are
// never created implicitly.
type Admin struct {
	ID        int64     `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	FullName  string    `json:"fullName" db:"full_name"`
	Role      AdminRole `json:"role" db:"role"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OTPAudience separates storefront and admin login codes.
type OTPAudience string

const (
	AudienceUser  OTPAudience = "user"
	AudienceAdmin OTPAudience = "admin"
)

// OTPCode is the model for the 'otp_codes' table. Only the bcrypt hash of
// the code is stored.
type OTPCode struct {
	ID         int64       `db:"id"`
	Phone      string      `db:"phone"`
	Audience   OTPAudience `db:"audience"`
	CodeHash   string      `db:"code_hash"`
	Attempts   int         `db:"attempts"`
	ExpiresAt  time.Time   `db:"expires_at"`
	ConsumedAt *time.Time  `db:"consumed_at"`
	CreatedAt  time.Time   `db:"created_at"`
}

// OneTimeCode hashes and checks OTP codes.
type OneTimeCode struct {
	Plaintext *string
	Hash      string
}

func (p *OneTimeCode) Set(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintext
	return nil
}

func (p *OneTimeCode) Matches(plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
