package instance

import "os"

// GetID returns the identifier of this API instance: the platform dyno name,
// then the host name, then "local".
func GetID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
