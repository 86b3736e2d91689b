package service

import (
	"testing"

	"fleetshop/internal/apperr"
	"fleetshop/internal/model"
	"fleetshop/internal/permission"
	"fleetshop/pkg/jwtutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "joe-s-garage", Slugify("Joe's Garage"))
	assert.Equal(t, "abc-123", Slugify("ABC 123"))
}

func TestSignUpSeedsTenant(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.SignUp(SignUpInput{
		CompanyName: "Fleet Works",
		Email:       " Owner@Example.com ",
		Password:    "password123",
		FirstName:   "Olive",
		LastName:    "Owner",
	})
	require.NoError(t, err)

	assert.Equal(t, "fleet-works", res.Tenant.Slug)
	assert.Equal(t, model.TierBasic, res.Tenant.SubscriptionTier)
	assert.Equal(t, model.TenantStatusActive, res.Tenant.Status)
	assert.Equal(t, "owner@example.com", res.User.Email)
	assert.Equal(t, permission.RoleAdmin, res.User.Role)
	assert.NotEqual(t, "password123", res.User.Password)

	var statuses int64
	require.NoError(t, f.db.Model(&model.JobStatus{}).Where("tenant_id = ?", res.Tenant.ID).Count(&statuses).Error)
	assert.Equal(t, int64(9), statuses)

	assert.Equal(t, "15.00", f.settings.TaxRate(nil, res.Tenant.ID).StringFixed(2))
	assert.Equal(t, 30, f.settings.InvoiceDueDays(nil, res.Tenant.ID))

	var logs int64
	require.NoError(t, f.db.Model(&model.ActivityLog{}).Where("tenant_id = ? AND entity_type = ?", res.Tenant.ID, "tenant").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestSignUpRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	in := SignUpInput{CompanyName: "Fleet Works", Email: "a@example.com", Password: "password123", FirstName: "A", LastName: "B"}

	_, err := f.auth.SignUp(in)
	require.NoError(t, err)

	_, err = f.auth.SignUp(in)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	in.Email = "b@example.com"
	_, err = f.auth.SignUp(in)
	assert.ErrorIs(t, err, apperr.ErrConflict, "same company slug")

	var tenants int64
	require.NoError(t, f.db.Model(&model.Tenant{}).Count(&tenants).Error)
	assert.Equal(t, int64(1), tenants)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")

	res, err := f.auth.Login("OWNER1@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, admin.UserID, res.User.ID)
	assert.Contains(t, res.Permissions, permission.UserManagement)
	assert.IsIncreasing(t, res.Permissions)
	assert.Contains(t, res.Routes, "/admin")
	assert.NotContains(t, res.Routes, "/super-admin")

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, jwtutil.ScopeStaff, claims.Scope)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, admin.TenantID, *claims.TenantID)
	assert.Equal(t, "Fleet Works", claims.TenantName)

	var user model.User
	require.NoError(t, f.db.First(&user, admin.UserID).Error)
	assert.NotNil(t, user.LastLoginAt)

	_, err = f.auth.Login("owner1@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.auth.Login("nobody@example.com", "password123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.auth.Login("", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginRefusesSuspendedTenantAndDisabledUser(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	tech := f.staff(t, admin, permission.RoleTechnician)

	_, err := f.auth.SetUserStatus(admin, tech.UserID, model.UserStatusDisabled)
	require.NoError(t, err)

	var techUser model.User
	require.NoError(t, f.db.First(&techUser, tech.UserID).Error)
	require.NoError(t, f.db.Model(&techUser).Update("password", mustHash(t, "password123")).Error)

	_, err = f.auth.Login(techUser.Email, "password123")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.db.Model(&model.Tenant{}).Where("id = ?", admin.TenantID).Update("status", model.TenantStatusSuspended).Error)
	_, err = f.auth.Login("owner1@example.com", "password123")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	hashed, err := hashPassword(plain)
	require.NoError(t, err)
	return hashed
}

func TestInviteUser(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")

	res, err := f.auth.InviteUser(admin, InviteUserInput{Email: "tech@example.com", FirstName: "Tia", LastName: "Tech", Role: permission.RoleTechnician})
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusInvited, res.User.Status)
	assert.Len(t, res.TempPassword, 12)

	_, err = f.auth.Login("tech@example.com", res.TempPassword)
	require.NoError(t, err)

	var user model.User
	require.NoError(t, f.db.First(&user, res.User.ID).Error)
	assert.Equal(t, model.UserStatusActive, user.Status, "first login activates an invited user")

	_, err = f.auth.InviteUser(admin, InviteUserInput{Email: "tech@example.com", FirstName: "T", LastName: "T", Role: permission.RoleTechnician})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.auth.InviteUser(admin, InviteUserInput{Email: "boss@example.com", FirstName: "B", LastName: "B", Role: permission.RoleSuperAdmin})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	tech := Actor{UserID: res.User.ID, TenantID: admin.TenantID, Role: permission.RoleTechnician}
	_, err = f.auth.InviteUser(tech, InviteUserInput{Email: "x@example.com", FirstName: "X", LastName: "X", Role: permission.RoleManager})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSetUserStatus(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	other := f.tenant(t, "Other Shop")
	tech := f.staff(t, admin, permission.RoleTechnician)

	_, err := f.auth.SetUserStatus(admin, admin.UserID, model.UserStatusDisabled)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.auth.SetUserStatus(admin, tech.UserID, "archived")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.auth.SetUserStatus(other, tech.UserID, model.UserStatusDisabled)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "users of another tenant are invisible")

	user, err := f.auth.SetUserStatus(admin, tech.UserID, model.UserStatusDisabled)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusDisabled, user.Status)

	users, err := f.auth.ListUsers(admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCreateSuperAdmin(t *testing.T) {
	f := newFixture(t)

	user, err := f.auth.CreateSuperAdmin(" Ops@Fleetshop.example ", "s3cret-pass", "Ops", "Team")
	require.NoError(t, err)
	assert.Equal(t, "ops@fleetshop.example", user.Email)
	assert.Equal(t, permission.RoleSuperAdmin, user.Role)
	assert.Nil(t, user.TenantID)

	res, err := f.auth.Login("ops@fleetshop.example", "s3cret-pass")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)
	assert.Equal(t, permission.RoleSuperAdmin, claims.Role)

	_, err = f.auth.CreateSuperAdmin("ops@fleetshop.example", "s3cret-pass", "", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.auth.CreateSuperAdmin("short@fleetshop.example", "short", "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProfileListsReachableRoutes(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	tech := f.staff(t, admin, permission.RoleTechnician)

	profile, err := f.auth.Profile(tech)
	require.NoError(t, err)
	assert.Equal(t, tech.UserID, profile.User.ID)
	assert.Equal(t, []string{"/dashboard", "/jobs"}, profile.Routes)
	assert.Equal(t, permission.ForRole(permission.RoleTechnician), profile.Permissions)
}
