package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"monitoring-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth() (*AuthService, *fakeUserStore) {
	users := newFakeUserStore()
	return NewAuthService(users, NewJWTService("test-secret", time.Hour), "Root@Example.org"), users
}

func TestAuthService_RegisterLoginAndVerify(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	registered, err := auth.Register(ctx, models.RegisterRequest{
		Email:     "Ana@Example.org",
		Password:  "correct horse",
		FirstName: "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", registered.User.Email)
	assert.Equal(t, models.RolePublic, registered.User.Role)
	assert.NotEqual(t, "correct horse", registered.User.PasswordHash)

	loggedIn, err := auth.Login(ctx, models.LoginRequest{Email: "ana@example.org", Password: "correct horse"})
	require.NoError(t, err)

	caller, err := auth.VerifyToken(loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, caller.UserID)
	assert.Equal(t, models.RolePublic, caller.Role)

	me, err := auth.Me(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "Ana", me.FirstName)
}

func TestAuthService_BootstrapAdmin(t *testing.T) {
	auth, _ := newTestAuth()
	resp, err := auth.Register(context.Background(), models.RegisterRequest{Email: "root@example.org", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

func TestAuthService_Rejections(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, models.RegisterRequest{Email: "not-an-email", Password: "supersecret"})
	requireValidationField(t, err, "email")

	_, err = auth.Register(ctx, models.RegisterRequest{Email: "a@b.org", Password: "short"})
	requireValidationField(t, err, "password")

	_, err = auth.Register(ctx, models.RegisterRequest{Email: "a@b.org", Password: "supersecret"})
	require.NoError(t, err)
	_, err = auth.Register(ctx, models.RegisterRequest{Email: "A@B.org", Password: "supersecret"})
	assert.True(t, models.IsConflict(err))

	_, err = auth.Login(ctx, models.LoginRequest{Email: "a@b.org", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, models.LoginRequest{Email: "nobody@b.org", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.VerifyToken("garbage")
	assert.Error(t, err)

	other := NewJWTService("other-secret", time.Hour)
	token, err := other.GenerateToken(&models.User{Email: "x@y.org", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = auth.VerifyToken(token)
	assert.Error(t, err)
}

func TestAuthService_AssignRole(t *testing.T) {
	auth, users := newTestAuth()
	ctx := context.Background()

	resp, err := auth.Register(ctx, models.RegisterRequest{Email: "r@b.org", Password: "supersecret"})
	require.NoError(t, err)

	var forbidden *models.ForbiddenError
	assert.ErrorAs(t, auth.AssignRole(ctx, researcherCaller, resp.User.ID, models.RoleAdmin), &forbidden)

	err = auth.AssignRole(ctx, adminCaller, resp.User.ID, "superuser")
	requireValidationField(t, err, "role")

	require.NoError(t, auth.AssignRole(ctx, adminCaller, resp.User.ID, models.RoleResearcher))
	assert.Equal(t, models.RoleResearcher, users.users[resp.User.ID].Role)
}

func TestAuthService_LoginNormalizesEmail(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, models.RegisterRequest{Email: "Foo@Example.org", Password: "supersecret"})
	require.NoError(t, err)

	resp, err := auth.Login(ctx, models.LoginRequest{Email: "  Foo@Example.org ", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, "foo@example.org", resp.User.Email)
}

func TestAuthService_RejectsOverlongPassword(t *testing.T) {
	auth, users := newTestAuth()

	_, err := auth.Register(context.Background(), models.RegisterRequest{Email: "long@b.org", Password: strings.Repeat("p", 73)})
	requireValidationField(t, err, "password")
	assert.Empty(t, users.users)

	_, err = auth.Register(context.Background(), models.RegisterRequest{Email: "long@b.org", Password: strings.Repeat("p", 72)})
	require.NoError(t, err)
}
