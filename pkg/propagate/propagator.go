package propagate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openbiome/coral/pkg/access"
	"github.com/openbiome/coral/pkg/audit"
	"github.com/openbiome/coral/pkg/catalog"
	"github.com/openbiome/coral/pkg/fileauth"
	"github.com/openbiome/coral/pkg/observability"
	"github.com/openbiome/coral/pkg/permission"
)

// Propagator pushes permission grants out to the external
// file-authorization service.
type Propagator struct {
	store          catalog.Store
	auth           fileauth.Client
	sharedPrefixes []string
	logger         *observability.Logger
	metrics        *observability.Metrics
	audit          audit.Logger
	concurrency    int
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithSharedPrefixes sets the globally shared path prefixes excluded
// from propagation.
func WithSharedPrefixes(prefixes []string) Option {
	return func(p *Propagator) { p.sharedPrefixes = prefixes }
}

// WithConcurrency caps the number of in-flight file updates per run.
func WithConcurrency(n int) Option {
	return func(p *Propagator) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMetrics attaches propagation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Propagator) { p.metrics = m }
}

// WithAudit attaches an audit sink for run and failure events.
func WithAudit(logger audit.Logger) Option {
	return func(p *Propagator) { p.audit = logger }
}

// NewPropagator creates a propagator over the store and client.
func NewPropagator(store catalog.Store, auth fileauth.Client, logger *observability.Logger, opts ...Option) *Propagator {
	p := &Propagator{
		store:       store,
		auth:        auth,
		logger:      logger,
		audit:       audit.NopLogger{},
		concurrency: 16,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PropagateProject mirrors a user's grant on a project to every file
// the project holds. When files is non-empty only those files are
// updated, otherwise the project's full file list is loaded from the
// store. The caller's token is forwarded to the external service on
// every call.
func (p *Propagator) PropagateProject(ctx context.Context, projectID, userID int64, level permission.Level, token string, files ...catalog.File) error {
	if userID == 0 {
		return fmt.Errorf("missing user id: %w", access.ErrBadRequest)
	}
	if token == "" {
		return fmt.Errorf("missing token: %w", access.ErrBadRequest)
	}

	user, err := p.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	if len(files) == 0 {
		files, err = p.store.ListProjectFiles(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to list files for project %d: %w", projectID, err)
		}
	}

	runID := uuid.NewString()
	logger := p.logger.WithFields(map[string]interface{}{
		"run_id":     runID,
		"project_id": projectID,
		"username":   user.Username,
		"level":      level.String(),
	})

	start := time.Now()
	err = p.propagateFiles(ctx, logger, user.Username, level.Remote(), token, files)
	p.finishRun(ctx, logger, runID, start, err)
	return err
}

// PropagateGroup mirrors a user's grant on a project group to the files
// of every project in the group. The permission arrives in its string
// form as stored on the group grant.
func (p *Propagator) PropagateGroup(ctx context.Context, groupID, userID int64, perm, token string) error {
	level := permission.Parse(perm)

	projects, err := p.store.ListGroupProjects(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list projects for group %d: %w", groupID, err)
	}

	// Projects are walked sequentially, each run fans out over its own
	// files. The first failing run is reported; later runs still execute.
	var firstErr error
	for _, project := range projects {
		if err := p.PropagateProject(ctx, project.ID, userID, level, token); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// propagateFiles runs the per-file get-then-set fan-out. Every
// dispatched update runs to completion even when a sibling fails; the
// first error is returned as representative.
func (p *Propagator) propagateFiles(ctx context.Context, logger *observability.Logger, username string, target permission.Remote, token string, files []catalog.File) error {
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, f := range files {
		if p.isShared(f.Path) {
			if p.metrics != nil {
				p.metrics.PropagationSkippedTotal.Inc()
			}
			continue
		}

		file := f
		g.Go(func() error {
			return p.updateFile(ctx, logger, username, file.Path, target, token)
		})
	}

	return g.Wait()
}

// updateFile reads the current permission and overwrites it only when
// the target strictly expands access.
func (p *Propagator) updateFile(ctx context.Context, logger *observability.Logger, username, path string, target permission.Remote, token string) error {
	current, err := p.auth.GetPermission(ctx, path, username, token)
	p.observeCall("get", err)
	if err != nil {
		return p.fail(ctx, logger, username, path, err)
	}

	if !target.Expands(current) {
		if p.metrics != nil {
			p.metrics.PropagationSkippedTotal.Inc()
		}
		return nil
	}

	err = p.auth.SetPermission(ctx, path, username, target, token)
	p.observeCall("set", err)
	if err != nil {
		return p.fail(ctx, logger, username, path, err)
	}

	logger.WithFields(map[string]interface{}{
		"path": path,
		"from": string(current),
		"to":   string(target),
	}).Debug("file permission expanded")
	return nil
}

// isShared reports whether the path falls under a globally shared
// prefix.
func (p *Propagator) isShared(path string) bool {
	for _, prefix := range p.sharedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// fail wraps an external failure with its file and user context and
// records it.
func (p *Propagator) fail(ctx context.Context, logger *observability.Logger, username, path string, err error) error {
	extErr := &ExternalError{Username: username, Path: path, Err: err}
	logger.WithError(extErr).Error("file authorization update failed")

	event := audit.NewEvent(ctx, audit.EventTypePropagationFailure, audit.EventStatusFailure)
	event.Username = username
	event.ResourceType = audit.ResourceTypeFile
	event.ResourceID = path
	event.ErrorMessage = err.Error()
	_ = p.audit.Append(ctx, event)

	return extErr
}

// finishRun records the run outcome in logs, metrics and the audit
// trail.
func (p *Propagator) finishRun(ctx context.Context, logger *observability.Logger, runID string, start time.Time, err error) {
	status := audit.EventStatusSuccess
	if err != nil {
		status = audit.EventStatusFailure
	}

	if p.metrics != nil {
		p.metrics.PropagationRunsTotal.WithLabelValues(string(status)).Inc()
		p.metrics.PropagationDuration.Observe(time.Since(start).Seconds())
	}

	event := audit.NewEvent(ctx, audit.EventTypePropagationRun, status)
	event.ResourceID = runID
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	_ = p.audit.Append(ctx, event)

	if err != nil {
		logger.WithError(err).Warn("propagation run finished with failures")
		return
	}
	logger.Info("propagation run finished")
}

// observeCall counts one call to the external service.
func (p *Propagator) observeCall(operation string, err error) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.PropagationCallsTotal.WithLabelValues(operation, status).Inc()
}
