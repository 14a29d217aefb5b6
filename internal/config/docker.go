package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DockerSecretsPath is where container runtimes mount secrets.
const DockerSecretsPath = "/run/secrets"

// IsRunningInDocker checks if the application is running inside a Docker container
func IsRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if cgroup, err := os.ReadFile("/proc/1/cgroup"); err == nil { // #nosec G304 - well-known proc path
		if strings.Contains(string(cgroup), "docker") {
			return true
		}
	}

	if _, err := os.Stat(DockerSecretsPath); err == nil {
		return true
	}

	return false
}

// ApplyDockerDefaults adjusts defaults that make no sense inside a container:
// the HTTP facade listens on all interfaces and the event log goes to stderr.
// Values the user changed from DefaultConfig are kept.
func (c *Config) ApplyDockerDefaults() {
	def := DefaultConfig()
	if c.Server.HTTPAddress == def.Server.HTTPAddress {
		c.Server.HTTPAddress = "0.0.0.0:8080"
	}
	if c.Logging.File == "" || c.Logging.File == DefaultLogFile() {
		c.Logging.File = "stderr"
	}
}

// DefaultLogFile is the event log location used when logging.file is empty.
func DefaultLogFile() string {
	return filepath.Join(getConfigDir(), "audit.log")
}
