// Package logging provides the slog facade used across readout: attribute
// helpers, standardized field names, context-derived fields, and console/JSON
// handlers selected by configuration.
package logging
