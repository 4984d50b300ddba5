package instance

import (
	"os"

	"github.com/google/uuid"
)

var processID = uuid.NewString()

// GetID returns the instance identifier used to tag cross-instance messages.
// INSTANCE_ID wins; otherwise the hostname plus a per-process suffix.
func GetID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "instance"
	}
	return host + "-" + processID[:8]
}
