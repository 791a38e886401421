package analytics

import (
	"fmt"
	"os"

	"github.com/oklog/ulid/v2"
)

// NewConsumerID creates a unique consumer name for the consumer group.
// Restarted processes get a fresh name; entries left pending by a dead
// consumer are recovered through the stale-claim scan.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "aggregator"
	}
	return fmt.Sprintf("%s-%s", host, ulid.Make())
}
