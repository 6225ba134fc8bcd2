// Package workflow runs the background worker pool that drives queued tasks
// through the extract, transform, synthesize, and package stages.
package workflow
