package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Today returns the current UTC calendar day formatted as YYYY-MM-DD, the
// key format used by daily metric records.
func Today() string { return Now().UTC().Format("2006-01-02") }

// TimeOfDay returns the current UTC wall-clock time formatted as HH:MM, the
// format used by quiet-hours comparisons.
func TimeOfDay(t time.Time) string { return t.UTC().Format("15:04") }
