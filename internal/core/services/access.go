package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

var errMembershipsUnavailable = errors.New("membership store unavailable")

// Ensure AccessControlEngine implements the interface.
var _ driving.AccessService = (*AccessControlEngine)(nil)

// AccessControlEngine derives project roles from team membership and
// answers read, edit and create questions. It holds no per-request state.
type AccessControlEngine struct {
	memberships driven.MembershipStore
	log         logger.Scope
}

// NewAccessControlEngine creates an access engine over the membership store.
func NewAccessControlEngine(memberships driven.MembershipStore) *AccessControlEngine {
	return &AccessControlEngine{
		memberships: memberships,
		log:         logger.For("access"),
	}
}

// DeriveProjectRoles joins the subject's person memberships to each team's
// project assignments. When several teams grant the same project the
// highest-priority role wins. A subject without a linked person has no roles.
func (a *AccessControlEngine) DeriveProjectRoles(
	ctx context.Context, subject domain.Subject,
) (map[string]domain.ProjectRole, error) {
	roles := make(map[string]domain.ProjectRole)
	if subject == nil {
		return roles, domain.ErrIdentityRequired
	}
	personID := subject.LinkedPersonID()
	if personID == "" {
		return roles, nil
	}
	if a.memberships == nil {
		return roles, errMembershipsUnavailable
	}

	memberships, err := a.memberships.MembershipsForPerson(ctx, personID)
	if err != nil {
		return map[string]domain.ProjectRole{}, fmt.Errorf("memberships for %s: %w", personID, err)
	}

	for _, m := range memberships {
		role, ok := m.Role.ProjectRole()
		if !ok {
			a.log.Warn("ignoring unknown team role %q on team %s", m.Role, m.TeamID)
			continue
		}
		projects, err := a.memberships.ProjectsForTeam(ctx, m.TeamID)
		if err != nil {
			return map[string]domain.ProjectRole{}, fmt.Errorf("projects for team %s: %w", m.TeamID, err)
		}
		for _, p := range projects {
			if current, ok := roles[p]; !ok || role.Priority() > current.Priority() {
				roles[p] = role
			}
		}
	}
	return roles, nil
}

// CanAccess reports whether subject may read resource.
// Unclassified resources are never visible through project roles.
func (a *AccessControlEngine) CanAccess(
	subject domain.Subject, resource domain.Resource, roles map[string]domain.ProjectRole,
) bool {
	if subject == nil {
		return resource.ResourceSensitivity() == domain.SensitivityPublic
	}
	if subject.HasScope(domain.ScopeSuperadmin) {
		return true
	}
	if isCreator(subject, resource) {
		return true
	}
	if person := subject.LinkedPersonID(); person != "" && slices.Contains(resource.AttachedPeople(), person) {
		return true
	}
	if resource.ResourceSensitivity() == domain.SensitivityPublic {
		return true
	}
	project := resource.ResourceProject()
	if project == "" {
		return false
	}
	role, ok := roles[project]
	return ok && role.Allows(resource.ResourceSensitivity())
}

// BuildFilter returns the retrieval predicate for subject. Superadmins get
// nil, meaning no filtering. A missing subject gets a public-only filter.
func (a *AccessControlEngine) BuildFilter(
	subject domain.Subject, roles map[string]domain.ProjectRole,
) *domain.AccessFilter {
	if subject == nil {
		return &domain.AccessFilter{IncludePublic: true}
	}
	if subject.HasScope(domain.ScopeSuperadmin) {
		return nil
	}

	projects := make([]string, 0, len(roles))
	for p := range roles {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	conditions := make([]domain.AccessCondition, 0, len(projects))
	for _, p := range projects {
		allowed := roles[p].AllowedSensitivities()
		if len(allowed) == 0 {
			continue
		}
		conditions = append(conditions, domain.AccessCondition{ProjectID: p, Allowed: allowed})
	}

	return &domain.AccessFilter{
		Conditions:    conditions,
		PersonID:      subject.LinkedPersonID(),
		CreatorID:     subject.SubjectID(),
		IncludePublic: true,
	}
}

// FilterFor derives roles and builds the filter in one step. If roles cannot
// be derived the subject keeps only public, created-by-me and attached access.
func (a *AccessControlEngine) FilterFor(ctx context.Context, subject domain.Subject) *domain.AccessFilter {
	if subject == nil {
		a.log.Warn("no identity on request, restricting to public content")
		return a.BuildFilter(nil, nil)
	}
	if subject.HasScope(domain.ScopeSuperadmin) {
		return nil
	}
	roles, err := a.DeriveProjectRoles(ctx, subject)
	if err != nil {
		a.log.Warn("role derivation failed for %s, no project access: %v", subject.SubjectID(), err)
		roles = nil
	}
	return a.BuildFilter(subject, roles)
}

// CanEdit reports whether subject may edit resource.
func (a *AccessControlEngine) CanEdit(subject domain.Subject, resource domain.Resource) bool {
	if subject == nil {
		return false
	}
	return subject.HasScope(domain.ScopeSuperadmin) || isCreator(subject, resource)
}

// CanDelete reports whether subject may delete resource.
func (a *AccessControlEngine) CanDelete(subject domain.Subject, resource domain.Resource) bool {
	return a.CanEdit(subject, resource)
}

// CanCreateIn reports whether subject may create content at the given
// sensitivity inside a project.
func (a *AccessControlEngine) CanCreateIn(
	subject domain.Subject,
	projectID string,
	sensitivity domain.SensitivityLevel,
	roles map[string]domain.ProjectRole,
) bool {
	if subject == nil {
		return false
	}
	if subject.HasScope(domain.ScopeSuperadmin) {
		return true
	}
	role, ok := roles[projectID]
	return ok && role.Allows(sensitivity)
}

func isCreator(subject domain.Subject, resource domain.Resource) bool {
	creator := resource.ResourceCreator()
	return creator != "" && creator == subject.SubjectID()
}
