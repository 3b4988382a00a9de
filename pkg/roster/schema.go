package roster

import (
	"fmt"
	"strconv"
)

// Redis key pattern helpers
//
// Key pattern: sithlist:{namespace}:{entity}:{id}
// Channel pattern: sithlist:{namespace}:{event_type}_events

// RecordKey returns the Redis key for a cached record.
// Pattern: sithlist:{namespace}:record:{id}
func RecordKey(namespace string, id int) string {
	return fmt.Sprintf("sithlist:%s:record:%s", namespace, strconv.Itoa(id))
}

// RecordKeyPattern returns the SCAN pattern matching every cached record of a namespace.
func RecordKeyPattern(namespace string) string {
	return fmt.Sprintf("sithlist:%s:record:*", namespace)
}

// LocationEventsChannel returns the Pub/Sub channel name for location events.
// Pattern: sithlist:{namespace}:location_events
func LocationEventsChannel(namespace string) string {
	return fmt.Sprintf("sithlist:%s:location_events", namespace)
}
