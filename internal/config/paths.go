package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".deskflow"

// Paths holds resolved filesystem paths for deskflow data.
type Paths struct {
	Base   string // ~/.deskflow
	Config string // ~/.deskflow/config.yaml
	Data   string // ~/.deskflow/data
	Logs   string // ~/.deskflow/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If DESKFLOW_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("DESKFLOW_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// DatabasePath returns the configured SQLite path, defaulting to the
// data directory.
func (p Paths) DatabasePath(cfg Config) string {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	return filepath.Join(p.Data, "deskflow.db")
}
