package redigo

import "time"

const (
	CommandExists = "EXISTS"
	CommandGet    = "GET"
	CommandSet    = "SET"
	CommandDel    = "DEL"
)

// formatExpirationArgs renders ttl as SET arguments, preferring EX when ttl
// is a whole number of seconds.
func formatExpirationArgs(ttl time.Duration) []any {
	if ttl <= 0 {
		return []any{}
	}

	if ttl < time.Second || ttl%time.Second != 0 {
		return []any{"PX", max64(int64(ttl/time.Millisecond), 1)}
	}
	return []any{"EX", int64(ttl / time.Second)}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
