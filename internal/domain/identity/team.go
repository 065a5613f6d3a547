package identity

import (
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Team is a reseller organisation. Orders belong to exactly one team.
type Team struct {
	shared.BaseAggregateRoot
	Name            string
	CreatedByUserID uuid.UUID
	Active          bool
}

// NewTeam creates an active team
func NewTeam(name string, createdBy uuid.UUID) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_TEAM_NAME", "Team name cannot be empty")
	}
	if len(name) > 120 {
		return nil, shared.NewDomainError("INVALID_TEAM_NAME", "Team name cannot exceed 120 characters")
	}
	return &Team{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		CreatedByUserID:   createdBy,
		Active:            true,
	}, nil
}

// Rename changes the display name
func (t *Team) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_TEAM_NAME", "Team name cannot be empty")
	}
	t.Name = name
	t.Touch(time.Now().UTC())
	return nil
}
