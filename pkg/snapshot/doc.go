// Package snapshot defines the Store interface, the snapshot record types and
// the standard errors for persisting property diagnostics.
//
// A Snapshot is a point-in-time capture of the effective property values of a
// set of objects, one ObjectRecord per object and one ValueRecord per property
// that has an entry on that object. Stores keep snapshots as JSONL files so
// they can be diffed and committed alongside the code that produced them.
package snapshot
