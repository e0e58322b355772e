package propagate

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbiome/coral/pkg/access"
	"github.com/openbiome/coral/pkg/catalog"
	"github.com/openbiome/coral/pkg/observability"
	"github.com/openbiome/coral/pkg/permission"
)

// fakeStore implements the store methods the propagator touches.
type fakeStore struct {
	catalog.Store

	users    map[int64]*catalog.User
	files    map[int64][]catalog.File
	projects map[int64][]*catalog.Project
	grants   []catalog.GrantRef
}

func (f *fakeStore) GetUser(ctx context.Context, id int64) (*catalog.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListProjectFiles(ctx context.Context, projectID int64) ([]catalog.File, error) {
	return f.files[projectID], nil
}

func (f *fakeStore) ListGroupProjects(ctx context.Context, groupID int64) ([]*catalog.Project, error) {
	return f.projects[groupID], nil
}

func (f *fakeStore) ListProjectGrants(ctx context.Context) ([]catalog.GrantRef, error) {
	return f.grants, nil
}

// fakeAuth is an in-memory file-authorization service.
type fakeAuth struct {
	mu    sync.Mutex
	perms map[string]permission.Remote

	gets, sets int

	getErr map[string]error
	setErr map[string]error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		perms:  make(map[string]permission.Remote),
		getErr: make(map[string]error),
		setErr: make(map[string]error),
	}
}

func key(path, username string) string { return username + ":" + path }

func (f *fakeAuth) GetPermission(ctx context.Context, path, username, token string) (permission.Remote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if err := f.getErr[path]; err != nil {
		return permission.RemoteNone, err
	}
	if p, ok := f.perms[key(path, username)]; ok {
		return p, nil
	}
	return permission.RemoteNone, nil
}

func (f *fakeAuth) SetPermission(ctx context.Context, path, username string, perm permission.Remote, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if err := f.setErr[path]; err != nil {
		return err
	}
	f.perms[key(path, username)] = perm
	return nil
}

func (f *fakeAuth) permission(path, username string) permission.Remote {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.perms[key(path, username)]; ok {
		return p
	}
	return permission.RemoteNone
}

func testLogger() *observability.Logger {
	return observability.NewLogger("error", io.Discard)
}

func testStore() *fakeStore {
	return &fakeStore{
		users: map[int64]*catalog.User{
			1: {ID: 1, Username: "alice"},
		},
		files: map[int64][]catalog.File{
			10: {
				{ID: 1, Path: "projects/10/run1/reads.fastq"},
				{ID: 2, Path: "projects/10/run1/reads.bam"},
				{ID: 3, Path: "projects/10/qc/report.html"},
			},
		},
	}
}

func TestPropagateProjectExpandsAccess(t *testing.T) {
	store := testStore()
	auth := newFakeAuth()
	// One file already carries READ, one already carries READ_WRITE.
	auth.perms[key("projects/10/run1/reads.fastq", "alice")] = permission.RemoteRead
	auth.perms[key("projects/10/run1/reads.bam", "alice")] = permission.RemoteReadWrite

	p := NewPropagator(store, auth, testLogger())
	err := p.PropagateProject(context.Background(), 10, 1, permission.ReadWrite, "token")
	require.NoError(t, err)

	// All three files were read, but only the two not already at
	// READ_WRITE were written.
	assert.Equal(t, 3, auth.gets)
	assert.Equal(t, 2, auth.sets)
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/10/run1/reads.fastq", "alice"))
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/10/run1/reads.bam", "alice"))
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/10/qc/report.html", "alice"))
}

func TestPropagateProjectNeverDowngrades(t *testing.T) {
	store := testStore()
	auth := newFakeAuth()
	for _, f := range store.files[10] {
		auth.perms[key(f.Path, "alice")] = permission.RemoteReadWrite
	}

	p := NewPropagator(store, auth, testLogger())
	err := p.PropagateProject(context.Background(), 10, 1, permission.ReadOnly, "token")
	require.NoError(t, err)

	// Every file already carried a wider permission, so no writes.
	assert.Equal(t, 3, auth.gets)
	assert.Equal(t, 0, auth.sets)
	for _, f := range store.files[10] {
		assert.Equal(t, permission.RemoteReadWrite, auth.permission(f.Path, "alice"))
	}
}

func TestPropagateProjectIdempotent(t *testing.T) {
	store := testStore()
	auth := newFakeAuth()

	p := NewPropagator(store, auth, testLogger())
	ctx := context.Background()

	require.NoError(t, p.PropagateProject(ctx, 10, 1, permission.Owner, "token"))
	setsAfterFirst := auth.sets
	assert.Equal(t, 3, setsAfterFirst)

	// A second identical run reads but writes nothing.
	require.NoError(t, p.PropagateProject(ctx, 10, 1, permission.Owner, "token"))
	assert.Equal(t, setsAfterFirst, auth.sets)
}

func TestPropagateProjectOwnerMapsToReadWrite(t *testing.T) {
	store := testStore()
	auth := newFakeAuth()

	p := NewPropagator(store, auth, testLogger())
	require.NoError(t, p.PropagateProject(context.Background(), 10, 1, permission.Owner, "token"))

	for _, f := range store.files[10] {
		assert.Equal(t, permission.RemoteReadWrite, auth.permission(f.Path, "alice"))
	}
}

func TestPropagateProjectSkipsSharedPrefixes(t *testing.T) {
	store := testStore()
	store.files[10] = append(store.files[10], catalog.File{ID: 4, Path: "shared/references/hg38.fa"})
	auth := newFakeAuth()

	p := NewPropagator(store, auth, testLogger(), WithSharedPrefixes([]string{"shared/"}))
	require.NoError(t, p.PropagateProject(context.Background(), 10, 1, permission.ReadWrite, "token"))

	// The shared file is never even read.
	assert.Equal(t, 3, auth.gets)
	assert.Equal(t, permission.RemoteNone, auth.permission("shared/references/hg38.fa", "alice"))
}

func TestPropagateProjectExplicitFileList(t *testing.T) {
	store := testStore()
	auth := newFakeAuth()

	p := NewPropagator(store, auth, testLogger())
	err := p.PropagateProject(context.Background(), 10, 1, permission.ReadWrite, "token",
		catalog.File{ID: 1, Path: "projects/10/run1/reads.fastq"})
	require.NoError(t, err)

	// Only the listed file is touched, not the project's full set.
	assert.Equal(t, 1, auth.gets)
	assert.Equal(t, 1, auth.sets)
}

func TestPropagateProjectValidation(t *testing.T) {
	p := NewPropagator(testStore(), newFakeAuth(), testLogger())
	ctx := context.Background()

	err := p.PropagateProject(ctx, 10, 0, permission.ReadWrite, "token")
	assert.ErrorIs(t, err, access.ErrBadRequest)

	err = p.PropagateProject(ctx, 10, 1, permission.ReadWrite, "")
	assert.ErrorIs(t, err, access.ErrBadRequest)
}

func TestPropagateProjectUnknownUser(t *testing.T) {
	p := NewPropagator(testStore(), newFakeAuth(), testLogger())
	err := p.PropagateProject(context.Background(), 10, 99, permission.ReadWrite, "token")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPropagateProjectPartialFailure(t *testing.T) {
	store := testStore()
	auth := newFakeAuth()
	boom := errors.New("upstream timeout")
	auth.setErr["projects/10/run1/reads.bam"] = boom

	p := NewPropagator(store, auth, testLogger())
	err := p.PropagateProject(context.Background(), 10, 1, permission.ReadWrite, "token")

	// The failing file surfaces with its context; the others were still
	// attempted and updated.
	require.Error(t, err)
	var extErr *ExternalError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "alice", extErr.Username)
	assert.Equal(t, "projects/10/run1/reads.bam", extErr.Path)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 3, auth.gets)
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/10/run1/reads.fastq", "alice"))
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/10/qc/report.html", "alice"))
}

func TestPropagateGroup(t *testing.T) {
	store := testStore()
	store.files[20] = []catalog.File{{ID: 5, Path: "projects/20/assembly.fa"}}
	store.projects = map[int64][]*catalog.Project{
		5: {{ID: 10}, {ID: 20}},
	}
	auth := newFakeAuth()

	p := NewPropagator(store, auth, testLogger())
	err := p.PropagateGroup(context.Background(), 5, 1, "read-write", "token")
	require.NoError(t, err)

	// Files of both member projects were updated.
	assert.Equal(t, 4, auth.sets)
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/20/assembly.fa", "alice"))
}

func TestPropagateGroupContinuesPastFailures(t *testing.T) {
	store := testStore()
	store.files[20] = []catalog.File{{ID: 5, Path: "projects/20/assembly.fa"}}
	store.projects = map[int64][]*catalog.Project{
		5: {{ID: 10}, {ID: 20}},
	}
	auth := newFakeAuth()
	auth.getErr["projects/10/run1/reads.fastq"] = errors.New("upstream timeout")

	p := NewPropagator(store, auth, testLogger())
	err := p.PropagateGroup(context.Background(), 5, 1, "owner", "token")

	require.Error(t, err)
	// The second project was still propagated after the first failed.
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/20/assembly.fa", "alice"))
}

func TestReconcilerSweep(t *testing.T) {
	store := testStore()
	store.grants = []catalog.GrantRef{
		{ProjectID: 10, UserID: 1, Level: permission.ReadWrite},
	}
	auth := newFakeAuth()
	auth.perms[key("projects/10/run1/reads.fastq", "alice")] = permission.RemoteReadWrite

	p := NewPropagator(store, auth, testLogger())
	r := NewReconciler(p, testLogger(), "service-token")

	require.NoError(t, r.Sweep(context.Background()))

	// The already-correct file was left alone, the drifted ones healed.
	assert.Equal(t, 2, auth.sets)
	assert.Equal(t, permission.RemoteReadWrite, auth.permission("projects/10/qc/report.html", "alice"))
}
