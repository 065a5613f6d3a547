// Package testutil seeds the accounts, team and category most fulfilment
// tests need, through the real repositories so foreign keys hold on both
// SQLite and PostgreSQL.
package testutil

import (
	"context"
	"fmt"
	"testing"

	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/category"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Password is the password of every seeded account
const Password = "fixture-pass-1"

// Fixture is a seeded installation: one owner, a team with an admin and a
// default member, a number of staff pickers and one active category.
type Fixture struct {
	Owner    *identity.User
	Admin    *identity.User
	Member   *identity.User
	Staff    []*identity.User
	Team     *identity.Team
	Category *category.Category
}

// Seed writes a fixture with staffCount staff accounts
func Seed(t *testing.T, db *gorm.DB, staffCount int) *Fixture {
	t.Helper()
	ctx := context.Background()

	users := persistence.NewGormUserRepository(db)
	teams := persistence.NewGormTeamRepository(db)
	members := persistence.NewGormMemberRepository(db)
	categories := persistence.NewGormCategoryRepository(db)

	newUser := func(email string, role identity.PrimaryRole) *identity.User {
		u, err := identity.NewUser(email, email, Password, role)
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, u))
		return u
	}

	suffix := uuid.NewString()[:8]
	f := &Fixture{
		Owner:  newUser("owner-"+suffix+"@fixture.test", identity.PrimaryRoleOwner),
		Admin:  newUser("admin-"+suffix+"@fixture.test", identity.PrimaryRoleReseller),
		Member: newUser("member-"+suffix+"@fixture.test", identity.PrimaryRoleReseller),
	}
	for i := range staffCount {
		f.Staff = append(f.Staff, newUser(fmt.Sprintf("staff%d-%s@fixture.test", i, suffix), identity.PrimaryRoleStaff))
	}

	team, err := identity.NewTeam("Fixture Team "+suffix, f.Owner.ID)
	require.NoError(t, err)
	require.NoError(t, teams.Create(ctx, team))
	require.NoError(t, members.Create(ctx, identity.NewFoundingAdmin(team.ID, f.Admin.ID, f.Owner.ID)))
	require.NoError(t, members.Create(ctx, identity.NewDefaultMembership(team.ID, f.Member.ID)))
	f.Team = team

	cat, err := category.NewCategory("Fixture "+suffix, "")
	require.NoError(t, err)
	require.NoError(t, categories.Create(ctx, cat))
	f.Category = cat

	return f
}

// OwnerPrincipal returns the owner as an authenticated caller
func (f *Fixture) OwnerPrincipal() identity.Principal {
	return identity.NewPrincipal(f.Owner.ID, identity.Owner{})
}

// AdminPrincipal returns the team admin as an authenticated caller
func (f *Fixture) AdminPrincipal() identity.Principal {
	return identity.NewPrincipal(f.Admin.ID, identity.ResellerAdmin{Team: f.Team.ID})
}

// MemberPrincipal returns the default member as an authenticated caller
func (f *Fixture) MemberPrincipal() identity.Principal {
	return identity.NewPrincipal(f.Member.ID, identity.ResellerDefault{Team: f.Team.ID})
}

// StaffPrincipal returns the i-th staff account as an authenticated caller
func (f *Fixture) StaffPrincipal(i int) identity.Principal {
	return identity.NewPrincipal(f.Staff[i].ID, identity.Staff{})
}

// OrderRequest returns a valid order submission for the fixture's team
func (f *Fixture) OrderRequest() fulfilmentapp.CreateOrderRequest {
	return fulfilmentapp.CreateOrderRequest{
		TeamID:       f.Team.ID,
		CategoryID:   f.Category.ID,
		SLA:          "today",
		CartValueUSD: decimal.RequireFromString("74.20"),
		Merchant:     "Fixture Mart",
		ItemsSummary: "3x notebooks",
	}
}
