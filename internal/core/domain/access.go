package domain

import (
	"fmt"
	"slices"
	"strings"
)

// ScopeSuperadmin grants unfiltered access to all content.
const ScopeSuperadmin = "*"

// SensitivityLevel is a content classification tier. Levels are ordered:
// PUBLIC < BASIC < INTERNAL < CONFIDENTIAL.
type SensitivityLevel int

// Sensitivity levels.
const (
	SensitivityPublic SensitivityLevel = iota
	SensitivityBasic
	SensitivityInternal
	SensitivityConfidential
)

// AllSensitivities returns every level in ascending order.
func AllSensitivities() []SensitivityLevel {
	return []SensitivityLevel{
		SensitivityPublic,
		SensitivityBasic,
		SensitivityInternal,
		SensitivityConfidential,
	}
}

// String returns the lowercase name used in storage and configuration.
func (s SensitivityLevel) String() string {
	switch s {
	case SensitivityPublic:
		return "public"
	case SensitivityBasic:
		return "basic"
	case SensitivityInternal:
		return "internal"
	case SensitivityConfidential:
		return "confidential"
	default:
		return fmt.Sprintf("sensitivity(%d)", int(s))
	}
}

// ParseSensitivity converts a name into a SensitivityLevel.
func ParseSensitivity(s string) (SensitivityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return SensitivityPublic, nil
	case "basic":
		return SensitivityBasic, nil
	case "internal":
		return SensitivityInternal, nil
	case "confidential":
		return SensitivityConfidential, nil
	default:
		return 0, fmt.Errorf("%w: unknown sensitivity %q", ErrInvalidInput, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SensitivityLevel) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SensitivityLevel) UnmarshalText(text []byte) error {
	level, err := ParseSensitivity(string(text))
	if err != nil {
		return err
	}
	*s = level
	return nil
}

// ProjectRole is the effective role a user holds on a project.
type ProjectRole string

// Project roles, in increasing order of privilege.
const (
	ProjectRoleContributor ProjectRole = "contributor"
	ProjectRoleManager     ProjectRole = "manager"
	ProjectRoleAdmin       ProjectRole = "admin"
)

// AllowedSensitivities returns the levels the role may read.
// Each role's set contains the previous role's set.
func (r ProjectRole) AllowedSensitivities() []SensitivityLevel {
	switch r {
	case ProjectRoleContributor:
		return []SensitivityLevel{SensitivityPublic, SensitivityBasic}
	case ProjectRoleManager:
		return []SensitivityLevel{SensitivityPublic, SensitivityBasic, SensitivityInternal}
	case ProjectRoleAdmin:
		return AllSensitivities()
	default:
		return nil
	}
}

// Allows reports whether the role may read content at the given level.
func (r ProjectRole) Allows(level SensitivityLevel) bool {
	return slices.Contains(r.AllowedSensitivities(), level)
}

// Priority orders roles; higher wins when several teams grant access.
func (r ProjectRole) Priority() int {
	switch r {
	case ProjectRoleContributor:
		return 1
	case ProjectRoleManager:
		return 2
	case ProjectRoleAdmin:
		return 3
	default:
		return 0
	}
}

// ProjectRole maps a team role onto the project role it grants.
func (r TeamRole) ProjectRole() (ProjectRole, bool) {
	switch r {
	case TeamRoleMember:
		return ProjectRoleContributor, true
	case TeamRoleLead:
		return ProjectRoleManager, true
	case TeamRoleAdmin:
		return ProjectRoleAdmin, true
	default:
		return "", false
	}
}

// Subject is the requesting identity as seen by access checks.
type Subject interface {
	SubjectID() string
	HasScope(scope string) bool
	LinkedPersonID() string
}

// Resource is anything whose visibility is gated by access control.
// An empty ResourceProject means the resource is unclassified.
type Resource interface {
	ResourceSensitivity() SensitivityLevel
	ResourceProject() string
	ResourceCreator() string
	AttachedPeople() []string
}

// AccessCondition grants read access to a project at a set of sensitivities.
type AccessCondition struct {
	ProjectID string
	Allowed   []SensitivityLevel
}

// AccessFilter is the derived authorisation context for one request.
// A nil *AccessFilter means no filtering (superadmin).
type AccessFilter struct {
	// Conditions are OR-ed together.
	Conditions []AccessCondition

	// PersonID matches resources the person is attached to. Empty matches nothing.
	PersonID string

	// CreatorID matches resources created by the user. Empty matches nothing.
	CreatorID string

	// IncludePublic admits PUBLIC resources regardless of project.
	IncludePublic bool
}

// Unrestricted reports whether the filter grants full access.
func (f *AccessFilter) Unrestricted() bool {
	return f == nil
}

// Permits evaluates the filter predicate against a resource. The predicate is
// the OR of: public, created-by-me, person-attached, and per-project conditions.
// Unclassified resources only pass through the first three.
func (f *AccessFilter) Permits(r Resource) bool {
	if f == nil {
		return true
	}
	if f.IncludePublic && r.ResourceSensitivity() == SensitivityPublic {
		return true
	}
	if f.CreatorID != "" && r.ResourceCreator() == f.CreatorID {
		return true
	}
	if f.PersonID != "" && slices.Contains(r.AttachedPeople(), f.PersonID) {
		return true
	}
	project := r.ResourceProject()
	if project == "" {
		return false
	}
	for _, cond := range f.Conditions {
		if cond.ProjectID == project && slices.Contains(cond.Allowed, r.ResourceSensitivity()) {
			return true
		}
	}
	return false
}
