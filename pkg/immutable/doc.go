// Package immutable provides persistent list, map, and set containers
// used to represent search states.
//
// Every operation that looks like a mutation (Append, Insert, Pop, Set,
// Delete, Add, Remove) returns a new container value and leaves the
// receiver observably unchanged. Internally the new container shares
// structure with the old one, so these operations are cheap relative to
// a full copy. Because containers never change after creation, they are
// safe to share across goroutines without locks.
package immutable
