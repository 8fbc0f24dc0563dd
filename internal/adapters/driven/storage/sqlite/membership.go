package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// ==================== Membership Store ====================

// membershipStore implements driven.MembershipStore.
type membershipStore struct {
	store *Store
}

var _ driven.MembershipStore = (*membershipStore)(nil)

// SavePerson stores or updates a person.
func (s *membershipStore) SavePerson(ctx context.Context, person *domain.Person) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO people (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, person.ID, person.Name)
	if err != nil {
		return fmt.Errorf("saving person: %w", err)
	}
	return nil
}

// SaveTeam stores or updates a team.
func (s *membershipStore) SaveTeam(ctx context.Context, team *domain.Team) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO teams (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, team.ID, team.Name)
	if err != nil {
		return fmt.Errorf("saving team: %w", err)
	}
	return nil
}

// SaveProject stores or updates a project.
func (s *membershipStore) SaveProject(ctx context.Context, project *domain.Project) error {
	state := project.State
	if state == "" {
		state = domain.ProjectActive
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO projects (id, parent_id, name, state) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			state = excluded.state
	`, project.ID, nullString(project.ParentID), project.Name, string(state))
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	return nil
}

// SaveMembership adds a membership or updates its role.
func (s *membershipStore) SaveMembership(ctx context.Context, m domain.TeamMembership) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO team_memberships (team_id, person_id, role) VALUES (?, ?, ?)
		ON CONFLICT(team_id, person_id) DO UPDATE SET role = excluded.role
	`, m.TeamID, m.PersonID, string(m.Role))
	if err != nil {
		return fmt.Errorf("saving membership: %w", err)
	}
	return nil
}

// AssignTeam assigns a team to a project. Repeated assignments are ignored.
func (s *membershipStore) AssignTeam(ctx context.Context, a domain.ProjectAssignment) error {
	_, err := s.store.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO project_teams (project_id, team_id) VALUES (?, ?)", a.ProjectID, a.TeamID)
	if err != nil {
		return fmt.Errorf("assigning team: %w", err)
	}
	return nil
}

// MembershipsForPerson returns every team membership of a person.
func (s *membershipStore) MembershipsForPerson(ctx context.Context, personID string) ([]domain.TeamMembership, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT team_id, person_id, role FROM team_memberships
		WHERE person_id = ? ORDER BY team_id
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	defer rows.Close()

	var memberships []domain.TeamMembership //nolint:prealloc // size unknown from query
	for rows.Next() {
		var m domain.TeamMembership
		var role string
		if err := rows.Scan(&m.TeamID, &m.PersonID, &role); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		m.Role = domain.TeamRole(role)
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memberships: %w", err)
	}
	return memberships, nil
}

// ProjectsForTeam returns the IDs of projects the team is assigned to.
func (s *membershipStore) ProjectsForTeam(ctx context.Context, teamID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT project_id FROM project_teams WHERE team_id = ? ORDER BY project_id", teamID)
	if err != nil {
		return nil, fmt.Errorf("querying project teams: %w", err)
	}
	defer rows.Close()

	var projects []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning project team: %w", err)
		}
		projects = append(projects, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project teams: %w", err)
	}
	return projects, nil
}

// ==================== User Store ====================

// userStore implements driven.UserStore.
type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

// SaveUser stores or updates a user.
func (s *userStore) SaveUser(ctx context.Context, user *domain.User) error {
	scopesJSON, err := json.Marshal(nonNil(user.Scopes))
	if err != nil {
		return fmt.Errorf("marshalling scopes: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO users (id, person_id, scopes) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_id = excluded.person_id,
			scopes = excluded.scopes
	`, user.ID, nullString(user.PersonID), string(scopesJSON))
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *userStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	var personID sql.NullString
	var scopesJSON string

	err := s.store.db.QueryRowContext(ctx,
		"SELECT id, person_id, scopes FROM users WHERE id = ?", id,
	).Scan(&user.ID, &personID, &scopesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	user.PersonID = personID.String
	if scopesJSON != "" {
		if err := json.Unmarshal([]byte(scopesJSON), &user.Scopes); err != nil {
			return nil, fmt.Errorf("unmarshalling scopes: %w", err)
		}
	}
	return &user, nil
}
