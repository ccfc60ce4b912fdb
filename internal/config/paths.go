package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/errors"
)

// GlobalConfigDir returns the path to the global coxswain configuration
// directory. This is typically ~/.coxswain on Unix systems.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.CoxswainHome), nil
}

// ProjectConfigDir returns the relative path to the project configuration
// directory, always .coxswain relative to the project root.
func ProjectConfigDir() string {
	return constants.CoxswainHome
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), constants.GlobalConfigName)
}

// StorePath resolves the SQLite database path, falling back to the global
// coxswain directory when the config leaves it empty.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.StoreFileName), nil
}

// WorktreeBasePath resolves the directory agent worktrees are created under.
func (c *Config) WorktreeBasePath() (string, error) {
	if c.Worktree.BasePath != "" {
		return c.Worktree.BasePath, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.WorktreesDir), nil
}

// ExportOutputDir resolves the incident export directory.
func (c *Config) ExportOutputDir() (string, error) {
	if c.Export.OutputDir != "" {
		return c.Export.OutputDir, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ExportsDir), nil
}
