package access

import (
	"context"
	"fmt"

	"github.com/openbiome/coral/pkg/audit"
	"github.com/openbiome/coral/pkg/permission"
)

// ResolveFunc resolves the effective permission for one resource. The
// gate takes a closure so the same enforcement path serves projects,
// groups and samples.
type ResolveFunc func(ctx context.Context) (permission.Level, error)

// Gate enforces a minimum required permission level in front of mutating
// operations. Every mutating route handler must pass the gate before
// writing; read handlers use the bare resolver and filter instead.
type Gate struct {
	audit audit.Logger
}

// NewGate creates a gate writing denials to the audit sink. logger may
// be nil.
func NewGate(logger audit.Logger) *Gate {
	if logger == nil {
		logger = audit.NopLogger{}
	}
	return &Gate{audit: logger}
}

// Require resolves the level and fails with ErrPermissionDenied when it
// is worse than required. On success the resolved level is returned so
// callers can make finer-grained decisions without resolving twice.
func (g *Gate) Require(ctx context.Context, resolve ResolveFunc, required permission.Level) (permission.Level, error) {
	level, err := resolve(ctx)
	if err != nil {
		return permission.None, err
	}

	if !level.BetterOrEqual(required) {
		g.logDenial(ctx, level, required)
		return permission.None, fmt.Errorf("required %s, resolved %s: %w", required, level, ErrPermissionDenied)
	}

	return level, nil
}

// RequireOwner enforces Owner, for destructive and membership-managing
// actions.
func (g *Gate) RequireOwner(ctx context.Context, resolve ResolveFunc) (permission.Level, error) {
	return g.Require(ctx, resolve, permission.Owner)
}

// RequireEditor enforces ReadWrite, for metadata updates and child
// record changes.
func (g *Gate) RequireEditor(ctx context.Context, resolve ResolveFunc) (permission.Level, error) {
	return g.Require(ctx, resolve, permission.ReadWrite)
}

// logDenial appends a denial to the audit sink, best-effort.
func (g *Gate) logDenial(ctx context.Context, resolved, required permission.Level) {
	event := audit.NewEvent(ctx, audit.EventTypeAccessDenied, audit.EventStatusDenied)
	event.Message = fmt.Sprintf("required %s, resolved %s", required, resolved)
	_ = g.audit.Append(ctx, event)
}
