package instance

import "os"

const fallbackID = "local"

// idEnvVars are checked in order. DYNO is set by the container platform.
var idEnvVars = []string{"STOREFRONT_INSTANCE_ID", "DYNO"}

// GetID identifies this process in logs and lock ownership. It falls back to
// the hostname and then to "local".
func GetID() string {
	for _, key := range idEnvVars {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
