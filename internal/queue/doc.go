// Package queue persists conversion tasks in SQLite and owns their
// lifecycle: enqueue with duplicate suppression, atomic claim by workers,
// progress updates, cancellation flags, and crash recovery.
package queue
