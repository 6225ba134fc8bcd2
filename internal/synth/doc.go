// Package synth turns text into speech audio. Engines implement a common
// interface over chunked segments so callers see per-chunk progress; the
// registry selects an engine by its configured id.
package synth
