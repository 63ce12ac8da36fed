package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	DirectoryPath string `yaml:"directory_path"`
	ApiUrl        string `yaml:"api_url"`
	Timeout       int    `yaml:"timeout"`
	PollInterval  int    `yaml:"poll_interval"`
	PageSize      int    `yaml:"page_size"`
	DatabasePath  string `yaml:"database_path"`
	LogLevel      string `yaml:"log_level"`
}

// Defaults applied to fields left empty in the file.
const (
	DefaultTimeout      = 30
	DefaultPollInterval = 5
	DefaultPageSize     = 64
	DefaultDatabase     = "dicomdir.db"
	DefaultLogLevel     = "info"
)

func ReadConfig(filePath string) (*Config, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var config Config
	err = yaml.Unmarshal(file, &config)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabase
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
