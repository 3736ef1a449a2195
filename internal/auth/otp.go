package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"go.uber.org/zap"
)

// CodeStore persists one-time codes.
type CodeStore interface {
	CountOTPSince(ctx context.Context, phone string, audience models.OTPAudience, since time.Time) (int, error)
	CreateOTP(ctx context.Context, code *models.OTPCode) error
	// LatestOTP returns the most recently issued code for the phone, consumed or not.
	LatestOTP(ctx context.Context, phone string, audience models.OTPAudience) (*models.OTPCode, error)
	// ReserveOTPAttempt counts one verification attempt against an unconsumed
	// code. It returns false, without counting, once max attempts were made.
	ReserveOTPAttempt(ctx context.Context, id int64, max int) (bool, error)
	// ConsumeOTP returns a Conflict error when the code was already consumed.
	ConsumeOTP(ctx context.Context, id int64, at time.Time) error
}

// AccountStore resolves the accounts a code logs into.
type AccountStore interface {
	UserByPhone(ctx context.Context, phone string) (*models.User, error)
	// CreateUser returns a Conflict error when the phone is taken.
	CreateUser(ctx context.Context, u *models.User) error
	AdminByPhone(ctx context.Context, phone string) (*models.Admin, error)
}

// Sender delivers codes to phones.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// OTPConfig tunes code lifetime and the abuse limits.
type OTPConfig struct {
	TTL          time.Duration
	Window       time.Duration
	MaxPerWindow int
	MaxAttempts  int
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Subject   Subject
	User      *models.User
	Admin     *models.Admin
}

// OTPService implements phone number login with one-time codes.
type OTPService struct {
	codes    CodeStore
	accounts AccountStore
	sender   Sender
	tokens   *TokenManager
	cfg      OTPConfig
	log      *zap.Logger
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(codes CodeStore, accounts AccountStore, sender Sender, tokens *TokenManager, cfg OTPConfig, log *zap.Logger) *OTPService {
	return &OTPService{
		codes:    codes,
		accounts: accounts,
		sender:   sender,
		tokens:   tokens,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		generate: generateCode,
	}
}

var (
	errInvalidCode     = apperr.Unauthorized("invalid or expired code")
	errTooManyAttempts = apperr.Unauthorized("too many wrong attempts, request a new code")
)

// RequestCode issues and sends a new code. Admin codes are only sent to
// active admins, but the caller cannot tell the difference.
func (s *OTPService) RequestCode(ctx context.Context, audience models.OTPAudience, rawPhone string) error {
	phone, ok := NormalizePhone(rawPhone)
	if !ok {
		return apperr.Validation("invalid mobile number")
	}

	if audience == models.AudienceAdmin {
		admin, err := s.accounts.AdminByPhone(ctx, phone)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return apperr.Wrap(err, "failed to load admin")
		}
		if err != nil || !admin.IsActive {
			s.log.Warn("admin code requested for unknown or inactive phone", zap.String("phone", phone))
			return nil
		}
	}

	// 1. --- Rate limit ---
	now := s.now()
	sent, err := s.codes.CountOTPSince(ctx, phone, audience, now.Add(-s.cfg.Window))
	if err != nil {
		return apperr.Wrap(err, "failed to check code history")
	}
	if sent >= s.cfg.MaxPerWindow {
		return apperr.RateLimited("too many code requests, please try again later")
	}

	// 2. --- Generate and store the hash ---
	plaintext, err := s.generate()
	if err != nil {
		return apperr.Internal("failed to generate code", err)
	}
	var code models.OneTimeCode
	if err := code.Set(plaintext); err != nil {
		return apperr.Internal("failed to hash code", err)
	}

	record := &models.OTPCode{
		Phone:     phone,
		Audience:  audience,
		CodeHash:  code.Hash,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := s.codes.CreateOTP(ctx, record); err != nil {
		return apperr.Wrap(err, "failed to save code")
	}

	// 3. --- Deliver ---
	if err := s.sender.SendOTP(ctx, phone, plaintext); err != nil {
		return apperr.Upstream("failed to send code", err)
	}
	s.log.Info("login code sent", zap.String("phone", phone), zap.String("audience", string(audience)))
	return nil
}

// VerifyUser checks a storefront code and logs the user in, creating the
// account on first login.
func (s *OTPService) VerifyUser(ctx context.Context, rawPhone, code string) (*Session, error) {
	phone, err := s.consume(ctx, models.AudienceUser, rawPhone, code)
	if err != nil {
		return nil, err
	}

	user, err := s.findOrCreateUser(ctx, phone)
	if err != nil {
		return nil, err
	}
	return s.session(Subject{ID: user.ID, Kind: KindUser}, func(sess *Session) { sess.User = user })
}

// VerifyAdmin checks an admin code and logs the admin in.
func (s *OTPService) VerifyAdmin(ctx context.Context, rawPhone, code string) (*Session, error) {
	phone, err := s.consume(ctx, models.AudienceAdmin, rawPhone, code)
	if err != nil {
		return nil, err
	}

	admin, err := s.accounts.AdminByPhone(ctx, phone)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, errInvalidCode
		}
		return nil, apperr.Wrap(err, "failed to load admin")
	}
	if !admin.IsActive {
		return nil, apperr.Forbidden("this admin account is disabled")
	}
	return s.session(Subject{ID: admin.ID, Kind: KindAdmin, Role: admin.Role}, func(sess *Session) { sess.Admin = admin })
}

func (s *OTPService) consume(ctx context.Context, audience models.OTPAudience, rawPhone, plaintext string) (string, error) {
	phone, ok := NormalizePhone(rawPhone)
	if !ok {
		return "", apperr.Validation("invalid mobile number")
	}

	record, err := s.codes.LatestOTP(ctx, phone, audience)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", errInvalidCode
		}
		return "", apperr.Wrap(err, "failed to load code")
	}

	now := s.now()
	if record.ConsumedAt != nil || now.After(record.ExpiresAt) {
		return "", errInvalidCode
	}

	// The attempt is taken before comparing so parallel guesses share the limit.
	reserved, err := s.codes.ReserveOTPAttempt(ctx, record.ID, s.cfg.MaxAttempts)
	if err != nil {
		return "", apperr.Wrap(err, "failed to save attempt")
	}
	if !reserved {
		return "", errTooManyAttempts
	}

	hash := models.OneTimeCode{Hash: record.CodeHash}
	match, err := hash.Matches(plaintext)
	if err != nil {
		return "", apperr.Internal("failed to check code", err)
	}
	if !match {
		return "", errInvalidCode
	}

	if err := s.codes.ConsumeOTP(ctx, record.ID, now); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return "", errInvalidCode
		}
		return "", apperr.Wrap(err, "failed to consume code")
	}
	return phone, nil
}

func (s *OTPService) findOrCreateUser(ctx context.Context, phone string) (*models.User, error) {
	user, err := s.accounts.UserByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Wrap(err, "failed to load user")
	}

	now := s.now()
	user = &models.User{Phone: phone, CreatedAt: now, UpdatedAt: now}
	if err := s.accounts.CreateUser(ctx, user); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return s.accounts.UserByPhone(ctx, phone)
		}
		return nil, apperr.Wrap(err, "failed to create user")
	}
	s.log.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *OTPService) session(sub Subject, fill func(*Session)) (*Session, error) {
	token, expires, err := s.tokens.Generate(sub)
	if err != nil {
		return nil, apperr.Internal("failed to issue session", err)
	}
	sess := &Session{Token: token, ExpiresAt: expires, Subject: sub}
	fill(sess)
	return sess, nil
}

// generateCode returns a random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
