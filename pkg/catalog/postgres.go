package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/openbiome/coral/pkg/permission"
)

// PostgresStore implements Store on top of PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects to PostgreSQL, verifies the connection and configures the
// pool.
func Open(url string, maxConns int, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}

	return db, nil
}

// GetProject retrieves a project with its grants and member groups.
func (s *PostgresStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	query := `
		SELECT id, name, private, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	p := &Project{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Private, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p.UserGrants, err = s.projectGrants(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Groups, err = s.projectGroups(ctx, id)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// projectGrants loads the direct grants of a project in one query.
func (s *PostgresStore) projectGrants(ctx context.Context, projectID int64) ([]Grant, error) {
	query := `
		SELECT g.id, g.user_id, u.username, g.permission, g.granted_at
		FROM project_grants g
		JOIN users u ON u.id = g.user_id
		WHERE g.project_id = $1
		ORDER BY g.id
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project grants: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

// projectGroups loads every group the project belongs to together with
// each group's grants in a single query, so resolving access for a
// project in many groups stays one roundtrip.
func (s *PostgresStore) projectGroups(ctx context.Context, projectID int64) ([]ProjectGroup, error) {
	query := `
		SELECT pg.id, pg.name, pg.private, pg.created_at,
		       g.id, g.user_id, u.username, g.permission, g.granted_at
		FROM project_group_members m
		JOIN project_groups pg ON pg.id = m.group_id
		LEFT JOIN project_group_grants g ON g.group_id = pg.id
		LEFT JOIN users u ON u.id = g.user_id
		WHERE m.project_id = $1
		ORDER BY pg.id, g.id
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project groups: %w", err)
	}
	defer rows.Close()

	var groups []ProjectGroup
	index := make(map[int64]int)

	for rows.Next() {
		var (
			group     ProjectGroup
			grantID   sql.NullInt64
			userID    sql.NullInt64
			username  sql.NullString
			perm      sql.NullString
			grantedAt sql.NullTime
		)

		if err := rows.Scan(
			&group.ID, &group.Name, &group.Private, &group.CreatedAt,
			&grantID, &userID, &username, &perm, &grantedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project group: %w", err)
		}

		pos, ok := index[group.ID]
		if !ok {
			pos = len(groups)
			index[group.ID] = pos
			groups = append(groups, group)
		}

		// LEFT JOIN yields NULL grant columns for groups with no grants.
		if grantID.Valid {
			groups[pos].UserGrants = append(groups[pos].UserGrants, Grant{
				ID:        grantID.Int64,
				UserID:    userID.Int64,
				Username:  username.String,
				Level:     permission.Parse(perm.String),
				GrantedAt: grantedAt.Time,
			})
		}
	}

	return groups, rows.Err()
}

// GetProjectGroup retrieves a project group with its grants.
func (s *PostgresStore) GetProjectGroup(ctx context.Context, id int64) (*ProjectGroup, error) {
	query := `
		SELECT id, name, private, created_at
		FROM project_groups
		WHERE id = $1
	`

	pg := &ProjectGroup{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&pg.ID, &pg.Name, &pg.Private, &pg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project group: %w", err)
	}

	grantQuery := `
		SELECT g.id, g.user_id, u.username, g.permission, g.granted_at
		FROM project_group_grants g
		JOIN users u ON u.id = g.user_id
		WHERE g.group_id = $1
		ORDER BY g.id
	`

	rows, err := s.db.QueryContext(ctx, grantQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list group grants: %w", err)
	}
	defer rows.Close()

	pg.UserGrants, err = scanGrants(rows)
	if err != nil {
		return nil, err
	}

	return pg, nil
}

// GetSample retrieves a sample.
func (s *PostgresStore) GetSample(ctx context.Context, id int64) (*Sample, error) {
	query := `
		SELECT id, project_id, name
		FROM samples
		WHERE id = $1
	`

	sample := &Sample{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sample.ID, &sample.ProjectID, &sample.Name,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}

	return sample, nil
}

// GetUser retrieves a user.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, email, created_at
		FROM users
		WHERE id = $1
	`

	u := &User{}
	var email sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &email, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Email = email.String

	return u, nil
}

// CreateProject inserts a project and grants its creator Owner in the
// same transaction.
func (s *PostgresStore) CreateProject(ctx context.Context, p *Project, creatorID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO projects (name, private)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRowContext(ctx, query, p.Name, p.Private).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	grantQuery := `
		INSERT INTO project_grants (project_id, user_id, permission, granted_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := tx.ExecContext(ctx, grantQuery, p.ID, creatorID, permission.Owner.String()); err != nil {
		return fmt.Errorf("failed to grant owner to creator: %w", err)
	}

	return tx.Commit()
}

// DeleteProject removes a project, cascading its grants and group
// memberships.
func (s *PostgresStore) DeleteProject(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_grants WHERE project_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete project grants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_group_members WHERE project_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete group memberships: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ReplaceProjectGrant replaces the grant for a (project, user) pair.
func (s *PostgresStore) ReplaceProjectGrant(ctx context.Context, projectID, userID int64, level permission.Level) error {
	return s.replaceGrant(ctx, "project_grants", "project_id", projectID, userID, level)
}

// RemoveProjectGrant deletes the grant for a (project, user) pair.
func (s *PostgresStore) RemoveProjectGrant(ctx context.Context, projectID, userID int64) error {
	query := `DELETE FROM project_grants WHERE project_id = $1 AND user_id = $2`
	if _, err := s.db.ExecContext(ctx, query, projectID, userID); err != nil {
		return fmt.Errorf("failed to remove project grant: %w", err)
	}
	return nil
}

// ReplaceGroupGrant replaces the grant for a (group, user) pair.
func (s *PostgresStore) ReplaceGroupGrant(ctx context.Context, groupID, userID int64, level permission.Level) error {
	return s.replaceGrant(ctx, "project_group_grants", "group_id", groupID, userID, level)
}

// RemoveGroupGrant deletes the grant for a (group, user) pair.
func (s *PostgresStore) RemoveGroupGrant(ctx context.Context, groupID, userID int64) error {
	query := `DELETE FROM project_group_grants WHERE group_id = $1 AND user_id = $2`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("failed to remove group grant: %w", err)
	}
	return nil
}

// replaceGrant implements the delete-then-insert replace semantics shared
// by project and group grants.
func (s *PostgresStore) replaceGrant(ctx context.Context, table, resourceColumn string, resourceID, userID int64, level permission.Level) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := fmt.Sprintf(
		`DELETE FROM %s WHERE %s = $1 AND user_id = $2`, table, resourceColumn)
	if _, err := tx.ExecContext(ctx, deleteQuery, resourceID, userID); err != nil {
		return fmt.Errorf("failed to delete existing grant: %w", err)
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO %s (%s, user_id, permission, granted_at) VALUES ($1, $2, $3, NOW())`,
		table, resourceColumn)
	if _, err := tx.ExecContext(ctx, insertQuery, resourceID, userID, level.String()); err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}

	return tx.Commit()
}

// ListGroupProjects lists the projects belonging to a group.
func (s *PostgresStore) ListGroupProjects(ctx context.Context, groupID int64) ([]*Project, error) {
	query := `
		SELECT p.id, p.name, p.private, p.created_at, p.updated_at
		FROM projects p
		JOIN project_group_members m ON m.project_id = p.id
		WHERE m.group_id = $1
		ORDER BY p.id
	`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Private, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// ListProjectFiles lists every file of every sample of a project.
func (s *PostgresStore) ListProjectFiles(ctx context.Context, projectID int64) ([]File, error) {
	query := `
		SELECT f.id, f.sample_id, f.path
		FROM sample_files f
		JOIN samples s ON s.id = f.sample_id
		WHERE s.project_id = $1
		ORDER BY f.id
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.SampleID, &f.Path); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

// ListProjectGrants lists every direct project grant in the catalog.
func (s *PostgresStore) ListProjectGrants(ctx context.Context) ([]GrantRef, error) {
	query := `
		SELECT project_id, user_id, permission
		FROM project_grants
		ORDER BY project_id, user_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var refs []GrantRef
	for rows.Next() {
		var ref GrantRef
		var perm string
		if err := rows.Scan(&ref.ProjectID, &ref.UserID, &perm); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		ref.Level = permission.Parse(perm)
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

// scanGrants scans grant rows in (id, user_id, username, permission,
// granted_at) order.
func scanGrants(rows *sql.Rows) ([]Grant, error) {
	var grants []Grant
	for rows.Next() {
		var g Grant
		var perm string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Username, &perm, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		g.Level = permission.Parse(perm)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
