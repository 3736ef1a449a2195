package auth

import (
	"context"
	"strings"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"go.uber.org/zap"
)

// AdminStore is the persistence of back-office accounts.
type AdminStore interface {
	Admin(ctx context.Context, adminID int64) (*models.Admin, error)
	AdminByPhone(ctx context.Context, phone string) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, a *models.Admin) error
	UpdateAdmin(ctx context.Context, a *models.Admin) error
}

// AdminService manages admin accounts. Only super admins reach it through
// the API; Bootstrap is used at startup.
type AdminService struct {
	store AdminStore
	log   *zap.Logger
	now   func() time.Time
}

func NewAdminService(store AdminStore, log *zap.Logger) *AdminService {
	return &AdminService{store: store, log: log, now: time.Now}
}

// CreateAdminInput defines the JSON for creating an admin.
type CreateAdminInput struct {
	Phone    string           `json:"phone" binding:"required,iranphone"`
	FullName string           `json:"fullName" binding:"max=100"`
	Role     models.AdminRole `json:"role" binding:"required,oneof=super_admin manager support"`
}

// UpdateAdminInput patches an admin. Nil fields are left alone.
type UpdateAdminInput struct {
	FullName *string           `json:"fullName" binding:"omitempty,max=100"`
	Role     *models.AdminRole `json:"role" binding:"omitempty,oneof=super_admin manager support"`
	IsActive *bool             `json:"isActive"`
}

func (s *AdminService) List(ctx context.Context) ([]models.Admin, error) {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list admins")
	}
	if admins == nil {
		admins = []models.Admin{}
	}
	return admins, nil
}

func (s *AdminService) Create(ctx context.Context, in CreateAdminInput) (*models.Admin, error) {
	phone, ok := NormalizePhone(in.Phone)
	if !ok {
		return nil, apperr.Validation("invalid mobile number")
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("invalid role")
	}

	now := s.now().UTC()
	a := &models.Admin{
		Phone:     phone,
		FullName:  strings.TrimSpace(in.FullName),
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAdmin(ctx, a); err != nil {
		return nil, apperr.Wrap(err, "failed to create admin")
	}
	s.log.Info("admin created", zap.Int64("admin_id", a.ID), zap.String("role", string(a.Role)))
	return a, nil
}

// Update applies in to the admin adminID on behalf of actorID. Admins cannot
// demote or disable themselves, so at least one super admin always remains.
func (s *AdminService) Update(ctx context.Context, actorID, adminID int64, in UpdateAdminInput) (*models.Admin, error) {
	a, err := s.store.Admin(ctx, adminID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load admin")
	}

	if actorID == adminID {
		if (in.IsActive != nil && !*in.IsActive) || (in.Role != nil && *in.Role != a.Role) {
			return nil, apperr.Validation("you cannot demote or disable your own account")
		}
	}

	if in.FullName != nil {
		a.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation("invalid role")
		}
		a.Role = *in.Role
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	a.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateAdmin(ctx, a); err != nil {
		return nil, apperr.Wrap(err, "failed to update admin")
	}
	return a, nil
}

// Bootstrap makes sure rawPhone belongs to an active super admin. It does
// nothing when the phone is empty or an admin with that phone exists.
func (s *AdminService) Bootstrap(ctx context.Context, rawPhone string) error {
	if rawPhone == "" {
		return nil
	}
	phone, ok := NormalizePhone(rawPhone)
	if !ok {
		return apperr.Validation("invalid bootstrap admin phone")
	}

	_, err := s.store.AdminByPhone(ctx, phone)
	if err == nil {
		return nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return apperr.Wrap(err, "failed to look up bootstrap admin")
	}

	_, err = s.Create(ctx, CreateAdminInput{Phone: phone, FullName: "Owner", Role: models.RoleSuperAdmin})
	if apperr.Is(err, apperr.KindConflict) {
		return nil
	}
	if err == nil {
		s.log.Info("bootstrap super admin created", zap.String("phone", phone))
	}
	return err
}
