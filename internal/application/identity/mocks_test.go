package identity

import (
	"context"
	"testing"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

var _ identity.UserRepository = (*MockUserRepository)(nil)

// MockTeamRepository is a mock implementation of identity.TeamRepository
type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *identity.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) Update(ctx context.Context, team *identity.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Team), args.Error(1)
}

func (m *MockTeamRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Team, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]identity.Team), args.Get(1).(int64), args.Error(2)
}

var _ identity.TeamRepository = (*MockTeamRepository)(nil)

// MockMemberRepository is a mock implementation of identity.MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *identity.Membership) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) SaveWithLock(ctx context.Context, member *identity.Membership) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Membership), args.Error(1)
}

func (m *MockMemberRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*identity.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Membership), args.Error(1)
}

func (m *MockMemberRepository) FindByTeamAndUser(ctx context.Context, teamID, userID uuid.UUID) (*identity.Membership, error) {
	args := m.Called(ctx, teamID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Membership), args.Error(1)
}

func (m *MockMemberRepository) FindByTeam(ctx context.Context, teamID uuid.UUID, filter shared.Filter) ([]identity.Membership, int64, error) {
	args := m.Called(ctx, teamID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]identity.Membership), args.Get(1).(int64), args.Error(2)
}

func (m *MockMemberRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Membership), args.Error(1)
}

var _ identity.MemberRepository = (*MockMemberRepository)(nil)

type passThroughTx struct {
	calls int
}

func (p *passThroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

const testPassword = "correct-horse-1"

func newTestUser(t *testing.T, email string, role identity.PrimaryRole) *identity.User {
	t.Helper()
	u, err := identity.NewUser(email, "Test User", testPassword, role)
	require.NoError(t, err)
	return u
}

func ownerPrincipal() identity.Principal {
	return identity.NewPrincipal(uuid.New(), identity.Owner{})
}
