// Package catalog provides the relational record store for the data
// catalog's access-control model: projects, project groups, samples,
// sample files, users and the grants that attach permission levels to
// them.
//
// The PostgreSQL store is the source of truth for every access decision.
// Reads that feed the access resolver eager-load the full grant picture
// (direct grants plus every group the project belongs to, with that
// group's grants) in a fixed number of queries, so resolving access for a
// project in many groups never degrades into per-group roundtrips.
//
// Grant replacement uses delete-then-insert semantics: a (user, resource)
// pair holds at most one grant, and re-granting replaces rather than
// duplicates.
package catalog
