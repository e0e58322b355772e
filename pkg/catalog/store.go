package catalog

import (
	"context"

	"github.com/openbiome/coral/pkg/permission"
)

// Store is the record-store contract consumed by the access resolver and
// the propagator. Implementations must eager-load the related grant lists
// on reads so a single call yields the full access-control picture.
type Store interface {
	// GetProject returns the project with its direct grants and every
	// group it belongs to (including those groups' grants). Returns
	// ErrNotFound if the id does not exist.
	GetProject(ctx context.Context, id int64) (*Project, error)

	// GetProjectGroup returns the group with its grants.
	GetProjectGroup(ctx context.Context, id int64) (*ProjectGroup, error)

	// GetSample returns the sample. Sample access is always delegated to
	// the owning project.
	GetSample(ctx context.Context, id int64) (*Sample, error)

	// GetUser returns the user record for the given id.
	GetUser(ctx context.Context, id int64) (*User, error)

	// CreateProject inserts the project and grants its creator Owner.
	CreateProject(ctx context.Context, p *Project, creatorID int64) error

	// DeleteProject removes the project along with its direct grants and
	// group memberships.
	DeleteProject(ctx context.Context, id int64) error

	// ReplaceProjectGrant deletes any existing grant for the
	// (project, user) pair and inserts the new one.
	ReplaceProjectGrant(ctx context.Context, projectID, userID int64, level permission.Level) error

	// RemoveProjectGrant deletes the grant for the (project, user) pair.
	RemoveProjectGrant(ctx context.Context, projectID, userID int64) error

	// ReplaceGroupGrant deletes any existing grant for the (group, user)
	// pair and inserts the new one.
	ReplaceGroupGrant(ctx context.Context, groupID, userID int64, level permission.Level) error

	// RemoveGroupGrant deletes the grant for the (group, user) pair.
	RemoveGroupGrant(ctx context.Context, groupID, userID int64) error

	// ListGroupProjects returns every project that belongs to the group.
	ListGroupProjects(ctx context.Context, groupID int64) ([]*Project, error)

	// ListProjectFiles returns every file of every sample of the project.
	ListProjectFiles(ctx context.Context, projectID int64) ([]File, error)

	// ListProjectGrants returns every direct project grant in the
	// catalog, for reconciliation sweeps.
	ListProjectGrants(ctx context.Context) ([]GrantRef, error)
}
