// Package audit is the append-only audit sink for permission decisions
// and grant changes.
//
// Audit writes are off the critical path: the gate and the propagator log
// best-effort and never fail a permission decision because the sink is
// unavailable. The database logger appends to a single audit_events table
// it creates on startup.
package audit
