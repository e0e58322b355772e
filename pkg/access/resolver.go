package access

import (
	"context"
	"errors"
	"time"

	"github.com/openbiome/coral/pkg/catalog"
	"github.com/openbiome/coral/pkg/observability"
	"github.com/openbiome/coral/pkg/permission"
)

// Resolver computes effective permission levels from the record store.
// It never consults the external file-authorization mirror; the
// relational grant model is the only ground truth for access decisions.
type Resolver struct {
	store   catalog.Store
	metrics *observability.Metrics
}

// NewResolver creates a resolver over the given store. metrics may be
// nil.
func NewResolver(store catalog.Store, metrics *observability.Metrics) *Resolver {
	return &Resolver{store: store, metrics: metrics}
}

// ResolveProject computes the principal's effective permission on a
// project.
func (r *Resolver) ResolveProject(ctx context.Context, projectID int64, p *Principal) (permission.Level, error) {
	start := time.Now()
	level, err := r.resolveProject(ctx, projectID, p)
	r.observe(ctx, "project", start, err)
	return level, err
}

func (r *Resolver) resolveProject(ctx context.Context, projectID int64, p *Principal) (permission.Level, error) {
	proj, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return permission.None, err
	}

	// Public projects are readable by anyone, anonymous included, at
	// exactly ReadOnly.
	if !proj.Private {
		return permission.ReadOnly, nil
	}

	if p == nil {
		return permission.None, ErrPermissionDenied
	}

	userLevel := lowestGrant(proj.UserGrants, p.UserID)

	groupLevel := permission.None
	for _, group := range proj.Groups {
		groupLevel = permission.Min(groupLevel, lowestGrant(group.UserGrants, p.UserID))
	}

	if userLevel == permission.None && groupLevel == permission.None {
		return permission.None, ErrPermissionDenied
	}

	// Direct and group-derived access are independent grants of
	// opportunity; the most permissive channel wins.
	return permission.Min(userLevel, groupLevel), nil
}

// ResolveSample computes the principal's effective permission on a
// sample, which always mirrors its owning project.
func (r *Resolver) ResolveSample(ctx context.Context, sampleID int64, p *Principal) (permission.Level, error) {
	start := time.Now()
	sample, err := r.store.GetSample(ctx, sampleID)
	if err != nil {
		r.observe(ctx, "sample", start, err)
		return permission.None, err
	}

	level, err := r.resolveProject(ctx, sample.ProjectID, p)
	r.observe(ctx, "sample", start, err)
	return level, err
}

// ResolveGroup computes the principal's effective permission on a
// project group. A direct grant wins exactly; otherwise public groups
// are readable and private groups are denied.
func (r *Resolver) ResolveGroup(ctx context.Context, groupID int64, p *Principal) (permission.Level, error) {
	start := time.Now()
	level, err := r.resolveGroup(ctx, groupID, p)
	r.observe(ctx, "project_group", start, err)
	return level, err
}

func (r *Resolver) resolveGroup(ctx context.Context, groupID int64, p *Principal) (permission.Level, error) {
	group, err := r.store.GetProjectGroup(ctx, groupID)
	if err != nil {
		return permission.None, err
	}

	if p != nil {
		for _, g := range group.UserGrants {
			if g.UserID == p.UserID {
				return g.Level, nil
			}
		}
	}

	if !group.Private {
		return permission.ReadOnly, nil
	}

	return permission.None, ErrPermissionDenied
}

// FilterReadableProjects resolves each project id and keeps the ones the
// principal can read. Denied and missing entries are dropped rather than
// failing the listing; store failures abort.
func (r *Resolver) FilterReadableProjects(ctx context.Context, projectIDs []int64, p *Principal) ([]int64, error) {
	readable := make([]int64, 0, len(projectIDs))
	for _, id := range projectIDs {
		_, err := r.ResolveProject(ctx, id, p)
		if err != nil {
			if errors.Is(err, ErrPermissionDenied) || errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, err
		}
		readable = append(readable, id)
	}
	return readable, nil
}

// lowestGrant returns the most permissive grant level among the grants
// matching userID, or None when there is no match.
func lowestGrant(grants []catalog.Grant, userID int64) permission.Level {
	level := permission.None
	for _, g := range grants {
		if g.UserID == userID {
			level = permission.Min(level, g.Level)
		}
	}
	return level
}

// observe records one resolution in the metrics, when configured.
func (r *Resolver) observe(ctx context.Context, resource string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}

	outcome := "granted"
	switch {
	case errors.Is(err, ErrPermissionDenied):
		outcome = "denied"
	case errors.Is(err, catalog.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}

	r.metrics.AccessChecksTotal.WithLabelValues(resource, outcome).Inc()
	r.metrics.AccessCheckDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
}
