// Package library defines the clip library data model and the in-memory
// state container that all filtering and rendering reads from.
//
// The Store holds one consistent snapshot of clips, tags, collections and
// smart folders. Records are created, updated and deleted through the
// database and re-read into the snapshot; the store itself only replaces,
// patches and restores what it is given. Subscribers are notified after
// every mutation so derived results can be recomputed.
package library
