package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// AccessService answers authorisation questions about items and projects.
type AccessService interface {
	// DeriveProjectRoles returns the subject's effective role per project.
	DeriveProjectRoles(ctx context.Context, subject domain.Subject) (map[string]domain.ProjectRole, error)

	// CanAccess reports whether the subject may read the resource.
	CanAccess(subject domain.Subject, resource domain.Resource, roles map[string]domain.ProjectRole) bool

	// BuildFilter returns the retrieval predicate for the subject, or nil for superadmins.
	BuildFilter(subject domain.Subject, roles map[string]domain.ProjectRole) *domain.AccessFilter

	// FilterFor derives roles and builds the filter, failing closed on error.
	FilterFor(ctx context.Context, subject domain.Subject) *domain.AccessFilter

	CanEdit(subject domain.Subject, resource domain.Resource) bool
	CanDelete(subject domain.Subject, resource domain.Resource) bool
	CanCreateIn(subject domain.Subject, projectID string, sensitivity domain.SensitivityLevel, roles map[string]domain.ProjectRole) bool
}
