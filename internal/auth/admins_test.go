package auth

import (
	"context"
	"testing"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBootstrapCreatesSuperAdminOnce(t *testing.T) {
	s := memory.New()
	svc := NewAdminService(s, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "+989121234567"))
	require.NoError(t, svc.Bootstrap(ctx, "09121234567"))
	require.NoError(t, svc.Bootstrap(ctx, ""))

	admins, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "09121234567", admins[0].Phone)
	assert.Equal(t, models.RoleSuperAdmin, admins[0].Role)
	assert.True(t, admins[0].IsActive)

	assert.True(t, apperr.Is(svc.Bootstrap(ctx, "123"), apperr.KindValidation))
}

func TestCreateAdminDuplicatePhone(t *testing.T) {
	svc := NewAdminService(memory.New(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateAdminInput{Phone: "09121234567", Role: models.RoleManager})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateAdminInput{Phone: "+98 912 123 4567", Role: models.RoleSupport})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUpdateAdmin(t *testing.T) {
	svc := NewAdminService(memory.New(), zap.NewNop())
	ctx := context.Background()

	owner, err := svc.Create(ctx, CreateAdminInput{Phone: "09121111111", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	staff, err := svc.Create(ctx, CreateAdminInput{Phone: "09122222222", Role: models.RoleSupport})
	require.NoError(t, err)

	role := models.RoleManager
	off := false
	got, err := svc.Update(ctx, owner.ID, staff.ID, UpdateAdminInput{Role: &role, IsActive: &off})
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, got.Role)
	assert.False(t, got.IsActive)

	_, err = svc.Update(ctx, owner.ID, owner.ID, UpdateAdminInput{IsActive: &off})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	name := "Sara"
	got, err = svc.Update(ctx, owner.ID, owner.ID, UpdateAdminInput{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Sara", got.FullName)

	_, err = svc.Update(ctx, owner.ID, 999, UpdateAdminInput{FullName: &name})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
