package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
)

// --- users ---

const userColumns = `id, phone, full_name, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var fullName sql.NullString
	if err := row.Scan(&u.ID, &u.Phone, &fullName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err, "user not found")
	}
	u.FullName = stringPtr(fullName)
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", userID))
}

func (s *Store) UserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE phone = ?", phone))
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (phone, full_name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		u.Phone, nullString(u.FullName), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("phone number already registered")
		}
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

// --- admins ---

const adminColumns = `id, phone, full_name, role, is_active, created_at, updated_at`

func scanAdmin(row scanner) (*models.Admin, error) {
	var a models.Admin
	var role string
	if err := row.Scan(&a.ID, &a.Phone, &a.FullName, &role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = models.AdminRole(role)
	return &a, nil
}

func (s *Store) Admin(ctx context.Context, adminID int64) (*models.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx, "SELECT "+adminColumns+" FROM admins WHERE id = ?", adminID))
	if err != nil {
		return nil, notFound(err, "admin not found")
	}
	return a, nil
}

func (s *Store) AdminByPhone(ctx context.Context, phone string) (*models.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx, "SELECT "+adminColumns+" FROM admins WHERE phone = ?", phone))
	if err != nil {
		return nil, notFound(err, "admin not found")
	}
	return a, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+adminColumns+" FROM admins ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []models.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *a)
	}
	return admins, rows.Err()
}

func (s *Store) CreateAdmin(ctx context.Context, a *models.Admin) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO admins (phone, full_name, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.Phone, a.FullName, string(a.Role), a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("an admin with this phone number already exists")
		}
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateAdmin(ctx context.Context, a *models.Admin) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE admins SET full_name = ?, role = ?, is_active = ?, updated_at = ? WHERE id = ?",
		a.FullName, string(a.Role), a.IsActive, a.UpdatedAt, a.ID)
	return err
}

// --- one-time codes ---

func (s *Store) CountOTPSince(ctx context.Context, phone string, audience models.OTPAudience, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM otp_codes WHERE phone = ? AND audience = ? AND created_at >= ?",
		phone, string(audience), since).Scan(&n)
	return n, err
}

func (s *Store) CreateOTP(ctx context.Context, code *models.OTPCode) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO otp_codes (phone, audience, code_hash, attempts, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		code.Phone, string(code.Audience), code.CodeHash, code.Attempts, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return err
	}
	code.ID, err = res.LastInsertId()
	return err
}

func (s *Store) LatestOTP(ctx context.Context, phone string, audience models.OTPAudience) (*models.OTPCode, error) {
	var c models.OTPCode
	var aud string
	var consumed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, phone, audience, code_hash, attempts, expires_at, consumed_at, created_at
		FROM otp_codes WHERE phone = ? AND audience = ?
		ORDER BY id DESC LIMIT 1`, phone, string(audience),
	).Scan(&c.ID, &c.Phone, &aud, &c.CodeHash, &c.Attempts, &c.ExpiresAt, &consumed, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "code not found")
	}
	c.Audience = models.OTPAudience(aud)
	if consumed.Valid {
		t := consumed.Time
		c.ConsumedAt = &t
	}
	return &c, nil
}

// ReserveOTPAttempt increments attempts in a single conditional UPDATE, so
// concurrent callers can never take more than max attempts between them.
func (s *Store) ReserveOTPAttempt(ctx context.Context, id int64, max int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE otp_codes SET attempts = attempts + 1 WHERE id = ? AND attempts < ? AND consumed_at IS NULL", id, max)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ConsumeOTP marks the code used. Only one of two concurrent calls wins.
func (s *Store) ConsumeOTP(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE otp_codes SET consumed_at = ? WHERE id = ? AND consumed_at IS NULL", at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict("code already used")
	}
	return nil
}
