package admins

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/policy"
	"github.com/taimoor511/certiqas-backend/internal/app/storage/memory"
)

const testSecret = "test-secret"

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, Config{JWTSecret: testSecret}, nil), store
}

func seedUser(t *testing.T, store *memory.Store, u user.User, password string) user.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	u.PasswordHash = string(hash)
	created, err := store.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return created
}

func TestLoginIssuesToken(t *testing.T) {
	service, store := newService(t)
	seedUser(t, store, user.User{
		Name:  "Root",
		Email: "root@example.com",
		Role:  user.RoleSuperAdmin,
	}, "hunter2")

	session, err := service.Login(context.Background(), "root@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.RoleSuperAdmin, session.User.Role)

	token, err := jwt.Parse(session.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, session.User.ID, claims["userId"])
	assert.Equal(t, "SuperAdmin", claims["role"])
	assert.Equal(t, "root@example.com", claims["email"])

	exp := int64(claims["exp"].(float64))
	iat := int64(claims["iat"].(float64))
	assert.Equal(t, int64((7*24*time.Hour).Seconds()), exp-iat)
}

func TestLoginWrongPassword(t *testing.T) {
	service, store := newService(t)
	seedUser(t, store, user.User{Name: "Root", Email: "root@example.com", Role: user.RoleSuperAdmin}, "hunter2")

	_, err := service.Login(context.Background(), "root@example.com", "wrong")
	assert.True(t, apperr.IsValidation(err))
}

func TestLoginUnknownEmail(t *testing.T) {
	service, _ := newService(t)
	_, err := service.Login(context.Background(), "ghost@example.com", "x")
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateDeveloperBySuperAdmin(t *testing.T) {
	service, store := newService(t)
	admin := seedUser(t, store, user.User{Name: "Root", Email: "root@example.com", Role: user.RoleSuperAdmin}, "x")

	created, err := service.Create(context.Background(),
		policy.Actor{UserID: admin.ID, Role: user.RoleSuperAdmin},
		CreateInput{
			Name:        "Dev One",
			Email:       "dev@example.com",
			Password:    "secret",
			CompanyName: "Emaar Properties",
			Role:        user.RoleDeveloper,
		})
	require.NoError(t, err)
	assert.Equal(t, user.RoleDeveloper, created.Role)
	assert.Equal(t, "Emaar Properties", created.CompanyName)
	assert.Empty(t, created.DeveloperID)
}

func TestCreateDeveloperRequiresCompanyName(t *testing.T) {
	service, _ := newService(t)
	_, err := service.Create(context.Background(),
		policy.Actor{Role: user.RoleSuperAdmin},
		CreateInput{Name: "Dev", Email: "d@example.com", Password: "x", Role: user.RoleDeveloper})
	assert.True(t, apperr.IsValidation(err))
}

func TestCreateAssistantByDeveloper(t *testing.T) {
	service, store := newService(t)
	dev := seedUser(t, store, user.User{
		Name: "Dev One", Email: "dev@example.com",
		CompanyName: "Emaar Properties", Role: user.RoleDeveloper,
	}, "x")

	created, err := service.Create(context.Background(),
		policy.Actor{UserID: dev.ID, Role: user.RoleDeveloper},
		CreateInput{Name: "Helper", Email: "helper@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAssistant, created.Role)
	assert.Equal(t, dev.ID, created.DeveloperID)
}

func TestCreateDuplicateEmail(t *testing.T) {
	service, store := newService(t)
	seedUser(t, store, user.User{
		Name: "Dev One", Email: "dev@example.com",
		CompanyName: "Emaar Properties", Role: user.RoleDeveloper,
	}, "x")

	_, err := service.Create(context.Background(),
		policy.Actor{Role: user.RoleSuperAdmin},
		CreateInput{
			Name: "Other", Email: "dev@example.com", Password: "x",
			CompanyName: "DAMAC", Role: user.RoleDeveloper,
		})
	assert.True(t, apperr.IsConflict(err))
}

func TestCreateForbiddenForAssistant(t *testing.T) {
	service, _ := newService(t)
	_, err := service.Create(context.Background(),
		policy.Actor{Role: user.RoleAssistant},
		CreateInput{Name: "X", Email: "x@example.com", Password: "x"})
	assert.True(t, apperr.IsForbidden(err))
}

func TestListScoping(t *testing.T) {
	service, store := newService(t)
	seedUser(t, store, user.User{Name: "Root", Email: "root@example.com", Role: user.RoleSuperAdmin}, "x")
	dev := seedUser(t, store, user.User{
		Name: "Dev One", Email: "dev@example.com",
		CompanyName: "Emaar Properties", Role: user.RoleDeveloper,
	}, "x")
	otherDev := seedUser(t, store, user.User{
		Name: "Dev Two", Email: "dev2@example.com",
		CompanyName: "DAMAC", Role: user.RoleDeveloper,
	}, "x")
	seedUser(t, store, user.User{
		Name: "Helper", Email: "helper@example.com",
		Role: user.RoleAssistant, DeveloperID: dev.ID,
	}, "x")

	all, err := service.List(context.Background(), policy.Actor{Role: user.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 3, "super admin sees every non-admin account")

	mine, err := service.List(context.Background(), policy.Actor{UserID: dev.ID, Role: user.RoleDeveloper})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "helper@example.com", mine[0].Email)

	none, err := service.List(context.Background(), policy.Actor{UserID: otherDev.ID, Role: user.RoleDeveloper})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateRehashesPassword(t *testing.T) {
	service, store := newService(t)
	dev := seedUser(t, store, user.User{
		Name: "Dev One", Email: "dev@example.com",
		CompanyName: "Emaar Properties", Role: user.RoleDeveloper,
	}, "old-pass")

	_, err := service.Update(context.Background(),
		policy.Actor{Role: user.RoleSuperAdmin}, dev.ID,
		UpdateInput{Password: "new-pass"})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), "dev@example.com", "new-pass")
	assert.NoError(t, err)
	_, err = service.Login(context.Background(), "dev@example.com", "old-pass")
	assert.Error(t, err)
}

func TestDeveloperCannotTouchForeignAssistant(t *testing.T) {
	service, store := newService(t)
	dev := seedUser(t, store, user.User{
		Name: "Dev One", Email: "dev@example.com",
		CompanyName: "Emaar Properties", Role: user.RoleDeveloper,
	}, "x")
	other := seedUser(t, store, user.User{
		Name: "Dev Two", Email: "dev2@example.com",
		CompanyName: "DAMAC", Role: user.RoleDeveloper,
	}, "x")
	helper := seedUser(t, store, user.User{
		Name: "Helper", Email: "helper@example.com",
		Role: user.RoleAssistant, DeveloperID: other.ID,
	}, "x")

	err := service.Delete(context.Background(),
		policy.Actor{UserID: dev.ID, Role: user.RoleDeveloper}, helper.ID)
	assert.True(t, apperr.IsForbidden(err))
}

func TestSuperAdminAccountIsUntouchable(t *testing.T) {
	service, store := newService(t)
	root := seedUser(t, store, user.User{Name: "Root", Email: "root@example.com", Role: user.RoleSuperAdmin}, "x")

	err := service.Delete(context.Background(),
		policy.Actor{Role: user.RoleSuperAdmin}, root.ID)
	assert.True(t, apperr.IsForbidden(err))
}
