package access

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbiome/coral/pkg/audit"
	"github.com/openbiome/coral/pkg/catalog"
	"github.com/openbiome/coral/pkg/observability"
	"github.com/openbiome/coral/pkg/permission"
)

// recordingAudit captures appended events for assertions.
type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *recordingAudit) Append(ctx context.Context, e *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) Close() error { return nil }

func resolveAs(level permission.Level, err error) ResolveFunc {
	return func(ctx context.Context) (permission.Level, error) {
		return level, err
	}
}

func TestGateRequire(t *testing.T) {
	tests := []struct {
		name     string
		resolved permission.Level
		required permission.Level
		allowed  bool
	}{
		{"owner meets owner", permission.Owner, permission.Owner, true},
		{"readwrite fails owner", permission.ReadWrite, permission.Owner, false},
		{"readonly fails owner", permission.ReadOnly, permission.Owner, false},
		{"owner meets readwrite", permission.Owner, permission.ReadWrite, true},
		{"readwrite meets readwrite", permission.ReadWrite, permission.ReadWrite, true},
		{"readonly fails readwrite", permission.ReadOnly, permission.ReadWrite, false},
		{"readonly meets readonly", permission.ReadOnly, permission.ReadOnly, true},
		{"none fails readonly", permission.None, permission.ReadOnly, false},
	}

	g := NewGate(nil)
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := g.Require(ctx, resolveAs(tt.resolved, nil), tt.required)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.resolved, level)
			} else {
				assert.ErrorIs(t, err, ErrPermissionDenied)
			}
		})
	}
}

func TestGateRequireOwner(t *testing.T) {
	g := NewGate(nil)
	ctx := context.Background()

	level, err := g.RequireOwner(ctx, resolveAs(permission.Owner, nil))
	require.NoError(t, err)
	assert.Equal(t, permission.Owner, level)

	for _, l := range []permission.Level{permission.ReadWrite, permission.ReadOnly, permission.None} {
		_, err := g.RequireOwner(ctx, resolveAs(l, nil))
		assert.ErrorIs(t, err, ErrPermissionDenied, "level %s", l)
	}
}

func TestGateRequireEditor(t *testing.T) {
	g := NewGate(nil)
	ctx := context.Background()

	for _, l := range []permission.Level{permission.Owner, permission.ReadWrite} {
		level, err := g.RequireEditor(ctx, resolveAs(l, nil))
		require.NoError(t, err)
		assert.Equal(t, l, level)
	}

	for _, l := range []permission.Level{permission.ReadOnly, permission.None} {
		_, err := g.RequireEditor(ctx, resolveAs(l, nil))
		assert.ErrorIs(t, err, ErrPermissionDenied, "level %s", l)
	}
}

func TestGatePassesResolutionErrorsThrough(t *testing.T) {
	g := NewGate(nil)
	ctx := context.Background()

	_, err := g.RequireOwner(ctx, resolveAs(permission.None, catalog.ErrNotFound))
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.NotErrorIs(t, err, ErrPermissionDenied)

	storeErr := errors.New("connection reset")
	_, err = g.RequireEditor(ctx, resolveAs(permission.None, storeErr))
	assert.ErrorIs(t, err, storeErr)
}

func TestGateAuditsDenials(t *testing.T) {
	sink := &recordingAudit{}
	g := NewGate(sink)
	ctx := context.Background()

	_, err := g.RequireOwner(ctx, resolveAs(permission.ReadOnly, nil))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.Len(t, sink.events, 1)
	assert.Equal(t, audit.EventTypeAccessDenied, sink.events[0].EventType)
	assert.Equal(t, audit.EventStatusDenied, sink.events[0].Status)

	// Granted checks and upstream errors do not produce denial events.
	_, err = g.RequireOwner(ctx, resolveAs(permission.Owner, nil))
	require.NoError(t, err)
	_, _ = g.RequireOwner(ctx, resolveAs(permission.None, catalog.ErrNotFound))
	assert.Len(t, sink.events, 1)
}

func TestGateDenialCarriesRequestID(t *testing.T) {
	sink := &recordingAudit{}
	g := NewGate(sink)
	ctx := observability.WithRequestID(context.Background(), "req-42")

	_, err := g.RequireOwner(ctx, resolveAs(permission.ReadOnly, nil))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "req-42", sink.events[0].RequestID)
}
