package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// MembershipStore persists people, teams, projects and the relations between
// them that access control derives project roles from.
type MembershipStore interface {
	SavePerson(ctx context.Context, person *domain.Person) error
	SaveTeam(ctx context.Context, team *domain.Team) error
	SaveProject(ctx context.Context, project *domain.Project) error
	SaveMembership(ctx context.Context, m domain.TeamMembership) error
	AssignTeam(ctx context.Context, a domain.ProjectAssignment) error

	// MembershipsForPerson returns every team membership of a person.
	MembershipsForPerson(ctx context.Context, personID string) ([]domain.TeamMembership, error)

	// ProjectsForTeam returns the IDs of projects the team is assigned to.
	ProjectsForTeam(ctx context.Context, teamID string) ([]string, error)
}

// UserStore persists authentication accounts.
type UserStore interface {
	SaveUser(ctx context.Context, user *domain.User) error

	// GetUser returns domain.ErrNotFound if the user does not exist.
	GetUser(ctx context.Context, id string) (*domain.User, error)
}
