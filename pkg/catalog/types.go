package catalog

import (
	"time"

	"github.com/openbiome/coral/pkg/permission"
)

// User is an investigator account known to the catalog.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Grant attaches a permission level for one user directly to a project or
// project group. The (user, resource) pair is unique; replacing a grant
// deletes any existing row for the pair first.
type Grant struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Username  string           `json:"username"`
	Level     permission.Level `json:"level"`
	GrantedAt time.Time        `json:"granted_at"`
}

// Project is the root access-controlled resource. Samples delegate their
// access to the owning project, and group membership extends the grant
// set with every member group's grants.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserGrants are the direct (user, level) grants on the project.
	UserGrants []Grant `json:"user_grants,omitempty"`

	// Groups are the project groups this project belongs to, with each
	// group's own grants eager-loaded.
	Groups []ProjectGroup `json:"groups,omitempty"`
}

// ProjectGroup is a flat sharing group; groups do not nest.
type ProjectGroup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`

	UserGrants []Grant `json:"user_grants,omitempty"`
}

// Sample belongs to exactly one project and carries no access-control
// list of its own.
type Sample struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
}

// File is a data file attached to a sample, identified by its path in the
// external file store.
type File struct {
	ID       int64  `json:"id"`
	SampleID int64  `json:"sample_id"`
	Path     string `json:"path"`
}

// GrantRef identifies one (project, user) grant without loading the full
// records. Used by the reconciliation sweep.
type GrantRef struct {
	ProjectID int64            `json:"project_id"`
	UserID    int64            `json:"user_id"`
	Level     permission.Level `json:"level"`
}
