package dispatch

import (
	"fmt"
	"io/ioutil"

	"github.com/castisdev/cilog"
	yaml "gopkg.in/yaml.v2"
)

// Config holds one streaming session's settings.
type Config struct {
	Path       string      `yaml:"path"`
	Targets    []string    `yaml:"targets"`
	Tee        bool        `yaml:"tee"`
	BackupDays int         `yaml:"backup-days"`
	BackupDir  string      `yaml:"backup-dir"`
	StatAddr   string      `yaml:"stat-addr"`
	LogDir     string      `yaml:"log-dir"`
	LogLevel   cilog.Level `yaml:"log-level"`
}

// NewConfig :
func NewConfig(ymlPath string) (*Config, error) {
	data, err := ioutil.ReadFile(ymlPath)
	if err != nil {
		return nil, fmt.Errorf("config file read fail: %v", err)
	}
	cfg := &Config{Path: "-"}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("yaml unmarshal error: %v", err)
	}
	return cfg, nil
}

// Validate :
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("no input path")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("no target address")
	}
	if c.BackupDays < 0 {
		return fmt.Errorf("backup-days must be >= 0, got %d", c.BackupDays)
	}
	return nil
}

// backupEnabled reports whether chunks are persisted at all. Setting either
// a directory or a retention window turns backup on; the sweep additionally
// needs the window.
func (c *Config) backupEnabled() bool {
	return c.BackupDays > 0 || c.BackupDir != ""
}
