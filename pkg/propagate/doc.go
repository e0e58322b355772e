// Package propagate mirrors relational permission grants into the
// external file-authorization service that fronts raw data files.
//
// Propagation is one-way and monotonic. For every file in a project it
// reads the permission currently recorded for the user and overwrites
// it only when the new value strictly expands access; it never narrows
// or revokes. Files under globally shared path prefixes are excluded,
// they stay readable through a blanket rule managed elsewhere.
//
// A propagation run fans out over files concurrently. Failures do not
// cancel in-flight updates and do not roll back the relational grant;
// the first failure is reported as representative and the relational
// model remains the ground truth for access decisions.
package propagate
