package redis

import "fmt"

// Key prefix for all lobby-related data
const keyPrefix = "flightlobby"

// transcriptKey returns the Redis key for one day's chat transcript list.
func transcriptKey(dayKey string) string {
	return fmt.Sprintf("%s:chat:%s", keyPrefix, dayKey)
}
