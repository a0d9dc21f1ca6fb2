package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int             `toml:"version"`
	Resume  *resumeSchema   `toml:"resume,omitempty"`
	Flags   map[string]bool `toml:"flags,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type resumeSchema struct {
	Kind    string         `toml:"kind"`
	Payload map[string]any `toml:"payload,omitempty"`
}
