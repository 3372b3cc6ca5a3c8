package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrina/internal/domain"
	"vitrina/internal/repos"
	"vitrina/internal/services"
)

func newAuthService(t *testing.T) *services.AuthService {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	return services.NewAuthService(repos.NewOperatorRepo(db))
}

func TestSignIn(t *testing.T) {
	auth := newAuthService(t)

	_, err := auth.SignIn("s1", "caja@vitrina.test", "Wrong-pass1")
	assert.ErrorIs(t, err, services.ErrBadCreds)
	_, err = auth.SignIn("s1", "nadie@vitrina.test", "Passw0rd!")
	assert.ErrorIs(t, err, services.ErrBadCreds)
	_, err = auth.Operator("s1")
	assert.ErrorIs(t, err, services.ErrNoOperator, "failed sign-in must not bind the session")

	u, err := auth.SignIn("s1", "CAJA@vitrina.test", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCashier, u.Role)
	got, err := auth.Operator("s1")
	require.NoError(t, err)
	assert.Equal(t, "u-caja", got.ID)

	require.NoError(t, auth.SignOut("s1"))
	_, err = auth.Operator("s1")
	assert.ErrorIs(t, err, services.ErrNoOperator)
}

func TestAuthorizeByRole(t *testing.T) {
	auth := newAuthService(t)
	_, err := auth.SignIn("admin", "admin@vitrina.test", "Passw0rd!")
	require.NoError(t, err)
	_, err = auth.SignIn("caja", "caja@vitrina.test", "Passw0rd!")
	require.NoError(t, err)

	u, err := auth.Authorize("caja")
	require.NoError(t, err)
	assert.Equal(t, "u-caja", u.ID)

	u, err = auth.Authorize("caja", domain.RoleAdmin)
	assert.ErrorIs(t, err, services.ErrForbidden)
	require.NotNil(t, u, "a denied operator is still identified")
	assert.Equal(t, domain.RoleCashier, u.Role)

	u, err = auth.Authorize("admin", domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, err = auth.Authorize("", domain.RoleAdmin)
	assert.ErrorIs(t, err, services.ErrNoOperator)
	_, err = auth.Authorize("nobody")
	assert.ErrorIs(t, err, services.ErrNoOperator)
}
