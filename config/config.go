// Copyright (C) 2025 kayon <kayon.hu@gmail.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = "heapscan"
	configFile string = "config.yml"
)

// Config defines all options that can be set through the config file.
// Command line flags take precedence.
type Config struct {
	// ChunkSize is the number of bytes read from the target per system call.
	// It must be a positive multiple of 4.
	ChunkSize int `yaml:"chunk-size,omitempty"`

	// Overlap re-reads the bytes of a value split by a short read, so it
	// is not missed.
	Overlap bool `yaml:"overlap"`

	// Freeze stops the target while it is being scanned.
	Freeze bool `yaml:"freeze"`

	// Color is "auto", "always" or "never".
	Color string `yaml:"color,omitempty"`
}

// Load reads the config file at path. An empty path means the default
// location, which is allowed not to exist; a named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return &Config{}, fmt.Errorf("read config: %w", err)
	}

	c := &Config{}
	if err = yaml.UnmarshalStrict(data, c); err != nil {
		return &Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err = c.validate(); err != nil {
		return &Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.ChunkSize < 0 || c.ChunkSize%4 != 0 {
		return fmt.Errorf("chunk-size %d is not a multiple of 4", c.ChunkSize)
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("color %q is not one of auto, always, never", c.Color)
	}
	return nil
}

// DefaultPath is $XDG_CONFIG_HOME/heapscan/config.yml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDir, configFile), nil
}

// Save writes c to path, creating the directory if needed.
func Save(path string, c *Config) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}
