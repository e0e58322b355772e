// Package fileauth talks to the external file-authorization service
// that fronts raw data files. The service keeps its own per-file,
// per-user permission table in a three-value vocabulary (READ_WRITE,
// READ, NONE); this package mirrors relational grants into it but never
// reads it back for access decisions.
package fileauth
