// Package daemon wires the background services together: it enforces
// single-instance execution, recovers interrupted tasks at startup, runs the
// workflow manager and the feed scan trigger, and serves the HTTP API.
package daemon
