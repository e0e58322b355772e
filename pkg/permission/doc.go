// Package permission defines the ordered permission vocabulary shared by
// the access resolver, the permission gate and the propagator.
//
// Levels form a total order with Owner as the most permissive and None as
// the least. Lower numeric values grant more access, so "most permissive"
// is Min and "least permissive" is Max. The package also carries the
// translation to the external file-authorization system's vocabulary
// (READ_WRITE / READ / NONE), which is only used at the propagation
// boundary.
package permission
