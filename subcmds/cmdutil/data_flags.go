// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/cryptoalerts/config"
	"github.com/bvk/cryptoalerts/envfile"
)

// DataFlags locates the data directory and the files inside it.
type DataFlags struct {
	dataDir     string
	secretsPath string
	configPath  string
}

func (f *DataFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory (default ~/.cryptoalerts)")
	fset.StringVar(&f.secretsPath, "secrets-file", "", "path to secrets file (default data-dir/secrets.json)")
	fset.StringVar(&f.configPath, "config-file", "", "path to config file (default data-dir/config.json)")
}

// DataDir returns the absolute path to the data directory.
func (f *DataFlags) DataDir() (string, error) {
	if len(f.dataDir) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		f.dataDir = filepath.Join(home, ".cryptoalerts")
	}
	return filepath.Abs(f.dataDir)
}

func (f *DataFlags) SecretsPath() (string, error) {
	if len(f.secretsPath) != 0 {
		return filepath.Abs(f.secretsPath)
	}
	dir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "secrets.json"), nil
}

func (f *DataFlags) ConfigPath() (string, error) {
	if len(f.configPath) != 0 {
		return filepath.Abs(f.configPath)
	}
	dir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadSecrets reads the secrets file and applies the CRYPTOALERTS_*
// environment overrides, including the values from a ".env" file in the data
// directory or the user's home directory. A missing secrets file is not an
// error.
func (f *DataFlags) LoadSecrets() (*config.Secrets, error) {
	dir, err := f.DataDir()
	if err != nil {
		return nil, err
	}
	if err := envfile.UpdateEnv(".env", envfile.SearchDir(dir)); err != nil {
		return nil, fmt.Errorf("could not load env file: %w", err)
	}
	if home, err := os.UserHomeDir(); err == nil && home != dir {
		if err := envfile.UpdateEnv(".env", envfile.SearchDir(home)); err != nil {
			return nil, fmt.Errorf("could not load env file: %w", err)
		}
	}

	fpath, err := f.SecretsPath()
	if err != nil {
		return nil, err
	}
	secrets, err := config.SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not load secrets: %w", err)
		}
		secrets = new(config.Secrets)
	}
	secrets.ApplyEnv(os.LookupEnv)
	if err := secrets.Check(); err != nil {
		return nil, fmt.Errorf("invalid secrets: %w", err)
	}
	return secrets, nil
}

// LoadConfig reads the config file. Returns the default config when the file
// doesn't exist.
func (f *DataFlags) LoadConfig() (*config.Config, error) {
	fpath, err := f.ConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(fpath)
}
