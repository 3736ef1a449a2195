package memory

import (
	"context"
	"sort"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
)

// --- users ---

func (s *Store) UserByID(_ context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	c := *u
	return &c, nil
}

func (s *Store) UserByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Phone == phone {
			c := *u
			return &c, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.users {
		if other.Phone == u.Phone {
			return apperr.Conflict("phone number already registered")
		}
	}
	u.ID = s.nextID("users")
	c := *u
	s.users[u.ID] = &c
	return nil
}

// --- admins ---

func (s *Store) Admin(_ context.Context, adminID int64) (*models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.admins[adminID]
	if !ok {
		return nil, apperr.NotFound("admin not found")
	}
	c := *a
	return &c, nil
}

func (s *Store) AdminByPhone(_ context.Context, phone string) (*models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.admins {
		if a.Phone == phone {
			c := *a
			return &c, nil
		}
	}
	return nil, apperr.NotFound("admin not found")
}

func (s *Store) ListAdmins(_ context.Context) ([]models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateAdmin(_ context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.admins {
		if other.Phone == a.Phone {
			return apperr.Conflict("an admin with this phone number already exists")
		}
	}
	a.ID = s.nextID("admins")
	c := *a
	s.admins[a.ID] = &c
	return nil
}

func (s *Store) UpdateAdmin(_ context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[a.ID]; !ok {
		return apperr.NotFound("admin not found")
	}
	c := *a
	s.admins[a.ID] = &c
	return nil
}

// --- one-time codes ---

func (s *Store) CountOTPSince(_ context.Context, phone string, audience models.OTPAudience, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, o := range s.otps {
		if o.Phone == phone && o.Audience == audience && !o.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateOTP(_ context.Context, code *models.OTPCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code.ID = s.nextID("otp_codes")
	c := *code
	s.otps[code.ID] = &c
	return nil
}

func (s *Store) LatestOTP(_ context.Context, phone string, audience models.OTPAudience) (*models.OTPCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.OTPCode
	for _, o := range s.otps {
		if o.Phone == phone && o.Audience == audience && (latest == nil || o.ID > latest.ID) {
			latest = o
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("code not found")
	}
	c := *latest
	c.ConsumedAt = copyTime(latest.ConsumedAt)
	return &c, nil
}

func (s *Store) ReserveOTPAttempt(_ context.Context, id int64, max int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.otps[id]
	if !ok {
		return false, apperr.NotFound("code not found")
	}
	if o.ConsumedAt != nil || o.Attempts >= max {
		return false, nil
	}
	o.Attempts++
	return true, nil
}

func (s *Store) ConsumeOTP(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.otps[id]
	if !ok {
		return apperr.NotFound("code not found")
	}
	if o.ConsumedAt != nil {
		return apperr.Conflict("code already used")
	}
	consumed := at
	o.ConsumedAt = &consumed
	return nil
}
