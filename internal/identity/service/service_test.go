package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bciers/internal/identity/models"
	"bciers/internal/identity/store"
	"bciers/internal/platform/cache"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	cache   *cache.Local
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.cache = cache.NewLocal(time.Minute)
	s.service = New(s.store, WithCache(s.cache))
	s.now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) ctxFor(guid id.UserGUID, role models.AppRole) context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	return requestcontext.WithUser(ctx, guid, string(role))
}

func (s *ServiceSuite) registerIDIR() id.UserGUID {
	guid := id.UserGUIDFrom(uuid.New())
	ctx := requestcontext.WithUserGUID(context.Background(), guid)
	_, err := s.service.Register(ctx, RegisterInput{
		Provider: models.ProviderIDIR, FirstName: "Cas", LastName: "Staff", Email: "cas@gov.bc.ca",
	})
	s.Require().NoError(err)
	return guid
}

// =============================================================================
// Register
// =============================================================================

func (s *ServiceSuite) TestRegister() {
	s.Run("bceid user registers as industry user", func() {
		guid := id.UserGUIDFrom(uuid.New())
		biz := uuid.New()
		user, err := s.service.Register(s.ctxFor(guid, ""), RegisterInput{
			Provider: models.ProviderBCeIDBusiness, BusinessGUID: &biz,
			FirstName: "Ind", LastName: "User", Email: "ind@example.com",
		})
		s.Require().NoError(err)
		s.Equal(models.RoleIndustryUser, user.AppRole)
		s.Equal(s.now, user.CreatedAt)
	})

	s.Run("duplicate registration is a conflict", func() {
		guid := s.registerIDIR()
		ctx := requestcontext.WithUserGUID(context.Background(), guid)
		_, err := s.service.Register(ctx, RegisterInput{
			Provider: models.ProviderIDIR, FirstName: "Cas", LastName: "Staff", Email: "cas@gov.bc.ca",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("model invariants surface as validation errors", func() {
		ctx := requestcontext.WithUserGUID(context.Background(), id.UserGUIDFrom(uuid.New()))
		_, err := s.service.Register(ctx, RegisterInput{Provider: models.ProviderIDIR, FirstName: "A", LastName: "B", Email: "bad"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// GetByGUID
// =============================================================================

func (s *ServiceSuite) TestGetByGUID() {
	s.Run("not found", func() {
		_, err := s.service.GetByGUID(context.Background(), id.UserGUIDFrom(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("served from cache after first lookup", func() {
		guid := s.registerIDIR()
		first, err := s.service.GetByGUID(context.Background(), guid)
		s.Require().NoError(err)

		// a direct store write is invisible until the cache entry is dropped
		s.Require().NoError(s.store.UpdateRole(context.Background(), guid, models.RoleCasAnalyst))
		second, err := s.service.GetByGUID(context.Background(), guid)
		s.Require().NoError(err)
		s.Equal(first.AppRole, second.AppRole)
	})
}

// =============================================================================
// ChangeRole
// =============================================================================

func (s *ServiceSuite) TestChangeRole() {
	admin := id.UserGUIDFrom(uuid.New())

	s.Run("cas admin assigns a role and the cache is invalidated", func() {
		guid := s.registerIDIR()
		_, err := s.service.GetByGUID(context.Background(), guid)
		s.Require().NoError(err)

		user, err := s.service.ChangeRole(s.ctxFor(admin, models.RoleCasAdmin), guid, models.RoleCasAnalyst)
		s.Require().NoError(err)
		s.Equal(models.RoleCasAnalyst, user.AppRole)

		fresh, err := s.service.GetByGUID(context.Background(), guid)
		s.Require().NoError(err)
		s.Equal(models.RoleCasAnalyst, fresh.AppRole)
	})

	s.Run("non admin is forbidden", func() {
		guid := s.registerIDIR()
		_, err := s.service.ChangeRole(s.ctxFor(admin, models.RoleCasAnalyst), guid, models.RoleCasDirector)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("cannot promote to industry user", func() {
		guid := s.registerIDIR()
		_, err := s.service.ChangeRole(s.ctxFor(admin, models.RoleCasAdmin), guid, models.RoleIndustryUser)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown user", func() {
		_, err := s.service.ChangeRole(s.ctxFor(admin, models.RoleCasAdmin), id.UserGUIDFrom(uuid.New()), models.RoleCasAnalyst)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListByRoles() {
	guid := s.registerIDIR()
	users, err := s.service.ListByRoles(context.Background(), models.RoleCasPending)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(guid, users[0].GUID)
}
