package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

func TestNewUser(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	guid := id.UserGUIDFrom(uuid.New())
	biz := uuid.New()

	t.Run("bceid user is industry", func(t *testing.T) {
		u, err := NewUser(guid, ProviderBCeIDBusiness, " Ada ", "Lovelace", "ADA@example.com", "", "", &biz, now)
		require.NoError(t, err)
		assert.Equal(t, RoleIndustryUser, u.AppRole)
		assert.Equal(t, "ada@example.com", u.Email)
		assert.Equal(t, "Ada Lovelace", u.FullName())
	})

	t.Run("idir user starts pending", func(t *testing.T) {
		u, err := NewUser(guid, ProviderIDIR, "Grace", "Hopper", "grace@gov.bc.ca", "", "", nil, now)
		require.NoError(t, err)
		assert.Equal(t, RoleCasPending, u.AppRole)
		assert.False(t, u.AppRole.IsCasUser())
	})

	t.Run("invariants", func(t *testing.T) {
		_, err := NewUser(id.UserGUID{}, ProviderIDIR, "a", "b", "a@b.c", "", "", nil, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		_, err = NewUser(guid, ProviderIDIR, "a", "b", "not-an-email", "", "", nil, now)
		assert.ErrorContains(t, err, "email")
		_, err = NewUser(guid, ProviderBCeIDBusiness, "a", "b", "a@b.c", "", "", nil, now)
		assert.ErrorContains(t, err, "business guid")
		_, err = NewUser(guid, "github", "a", "b", "a@b.c", "", "", nil, now)
		assert.ErrorContains(t, err, "identity provider")
	})
}

func TestCanAssignRole(t *testing.T) {
	pending := &User{AppRole: RoleCasPending}
	assert.NoError(t, pending.CanAssignRole(RoleCasAnalyst))
	assert.Error(t, pending.CanAssignRole(RoleIndustryUser))
	assert.Error(t, pending.CanAssignRole("root"))

	industry := &User{AppRole: RoleIndustryUser}
	assert.Error(t, industry.CanAssignRole(RoleCasAdmin))
}

func TestAppRole(t *testing.T) {
	assert.True(t, RoleCasDirector.IsCasUser())
	assert.True(t, RoleCasDirector.IsCasDirector())
	assert.True(t, RoleIndustryUser.IsIndustryUser())
	assert.False(t, RoleIndustryUser.IsCasUser())
	assert.False(t, AppRole("nobody").IsValid())
}
