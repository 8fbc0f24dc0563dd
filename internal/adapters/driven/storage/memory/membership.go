package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure MembershipStore and UserStore implement the interfaces.
var (
	_ driven.MembershipStore = (*MembershipStore)(nil)
	_ driven.UserStore       = (*UserStore)(nil)
)

// MembershipStore is an in-memory implementation of driven.MembershipStore.
type MembershipStore struct {
	mu          sync.RWMutex
	people      map[string]domain.Person
	teams       map[string]domain.Team
	projects    map[string]domain.Project
	memberships []domain.TeamMembership
	assignments []domain.ProjectAssignment
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		people:   make(map[string]domain.Person),
		teams:    make(map[string]domain.Team),
		projects: make(map[string]domain.Project),
	}
}

// SavePerson stores or updates a person.
func (s *MembershipStore) SavePerson(_ context.Context, person *domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[person.ID] = *person
	return nil
}

// SaveTeam stores or updates a team.
func (s *MembershipStore) SaveTeam(_ context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[team.ID] = *team
	return nil
}

// SaveProject stores or updates a project.
func (s *MembershipStore) SaveProject(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = *project
	return nil
}

// SaveMembership adds a membership or updates its role.
func (s *MembershipStore) SaveMembership(_ context.Context, m domain.TeamMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.memberships, func(e domain.TeamMembership) bool {
		return e.TeamID == m.TeamID && e.PersonID == m.PersonID
	})
	if i >= 0 {
		s.memberships[i] = m
		return nil
	}
	s.memberships = append(s.memberships, m)
	return nil
}

// AssignTeam assigns a team to a project. Repeated assignments are ignored.
func (s *MembershipStore) AssignTeam(_ context.Context, a domain.ProjectAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.assignments, a) {
		s.assignments = append(s.assignments, a)
	}
	return nil
}

// MembershipsForPerson returns every team membership of a person.
func (s *MembershipStore) MembershipsForPerson(_ context.Context, personID string) ([]domain.TeamMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.TeamMembership
	for _, m := range s.memberships {
		if m.PersonID == personID {
			result = append(result, m)
		}
	}
	return result, nil
}

// ProjectsForTeam returns the projects a team is assigned to.
func (s *MembershipStore) ProjectsForTeam(_ context.Context, teamID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []string
	for _, a := range s.assignments {
		if a.TeamID == teamID {
			result = append(result, a.ProjectID)
		}
	}
	return result, nil
}

// UserStore is an in-memory implementation of driven.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

// SaveUser stores or updates a user.
func (s *UserStore) SaveUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

// GetUser retrieves a user by ID.
func (s *UserStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}
