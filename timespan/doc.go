// Package timespan parses human time spans ("2 days", "10h", "7d", "60")
// into seconds for token lifetimes.
//
// The accepted grammar is a signed decimal number optionally followed by a
// unit (years, weeks, days, hours, minutes, seconds, milliseconds and their
// short forms). Compound Go durations such as "1h30m" are accepted as well.
//
// # What this package must NOT do
//
//   - Read the clock. Callers add the parsed span to their own time snapshot.
//   - Import goJWT.
package timespan
