package access_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/access"
	"teamhub/internal/domain"
)

func TestNewSession(t *testing.T) {
	t.Run("MissingUser", func(t *testing.T) {
		_, err := access.NewSession(0, access.RoleUser, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("CopiesPermissions", func(t *testing.T) {
		perms := []string{access.PermChatUse}
		s, err := access.NewSession(7, access.RoleUser, perms)
		require.NoError(t, err)
		perms[0] = access.PermAdminOverride
		assert.Equal(t, []string{access.PermChatUse}, s.Permissions)
	})
}

func TestCan(t *testing.T) {
	cases := []struct {
		name    string
		session access.Session
		want    bool
	}{
		{"FineGrained", access.Session{UserID: 1, Role: access.RoleUser, Permissions: []string{access.PermFriendsManage}}, true},
		{"Override", access.Session{UserID: 1, Role: access.RoleUser, Permissions: []string{access.PermAdminOverride}}, true},
		{"AdminRole", access.Session{UserID: 1, Role: access.RoleAdmin}, true},
		{"Nothing", access.Session{UserID: 1, Role: access.RoleUser, Permissions: []string{access.PermChatUse}}, false},
		{"RoleIsExact", access.Session{UserID: 1, Role: "Admin"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, access.Can(tc.session, access.PermFriendsManage))
		})
	}
}

func TestRequire(t *testing.T) {
	s := access.Session{UserID: 1, Role: access.RoleGuest}
	err := access.Require(s, access.PermTeamsCreate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	s.Permissions = []string{access.PermTeamsCreate}
	assert.NoError(t, access.Require(s, access.PermTeamsCreate))
}
