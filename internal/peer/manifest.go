package peer

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Manifest describes how to launch the assistant peer process. It plays the
// role a native-messaging host manifest plays for a browser: the command to
// run and the constraints around it live in a file, not in code.
type Manifest struct {
	// Name identifies the peer, e.g. "fire_claude_host".
	Name string `toml:"name"`
	// Command is the executable to launch.
	Command string `toml:"command"`
	// Args are passed to the command.
	Args []string `toml:"args"`
	// Dir is the working directory; empty inherits the bridge's.
	Dir string `toml:"dir"`
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string `toml:"env"`
}

// LoadManifest reads and validates a TOML peer manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read peer manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse peer manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("peer manifest missing name")
	}
	if m.Command == "" {
		return fmt.Errorf("peer manifest missing command")
	}
	return nil
}
