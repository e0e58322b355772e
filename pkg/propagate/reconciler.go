package propagate

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/openbiome/coral/pkg/observability"
)

// Reconciler periodically replays every project grant through the
// propagator. Because propagation only ever expands access, a sweep is
// idempotent; it exists to heal files that missed an update while the
// external service was unavailable.
type Reconciler struct {
	propagator   *Propagator
	logger       *observability.Logger
	serviceToken string
	cron         *cron.Cron
}

// NewReconciler creates a reconciler using the given service token for
// its calls to the external service.
func NewReconciler(propagator *Propagator, logger *observability.Logger, serviceToken string) *Reconciler {
	return &Reconciler{
		propagator:   propagator,
		logger:       logger,
		serviceToken: serviceToken,
		cron:         cron.New(),
	}
}

// Start schedules the sweep on the given cron spec and starts the
// scheduler.
func (r *Reconciler) Start(spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		if err := r.Sweep(context.Background()); err != nil {
			r.logger.WithError(err).Warn("reconciliation sweep finished with failures")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	r.cron.Start()
	r.logger.WithField("schedule", spec).Info("reconciler started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep replays all project grants once. Individual failures are
// collected per grant; the first one is returned after the full sweep
// completes.
func (r *Reconciler) Sweep(ctx context.Context) error {
	grants, err := r.propagator.store.ListProjectGrants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list project grants: %w", err)
	}

	r.logger.WithField("grants", len(grants)).Info("reconciliation sweep started")

	var firstErr error
	for _, grant := range grants {
		err := r.propagator.PropagateProject(ctx, grant.ProjectID, grant.UserID, grant.Level, r.serviceToken)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
