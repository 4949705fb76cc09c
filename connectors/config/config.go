package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the structure of config.yml used by the tool.
// Only the fields currently needed by commands are modeled.
type Config struct {
	Server struct {
		Addr    string `yaml:"addr"`
		UIDir   string `yaml:"ui_dir"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"server"`
	Azure struct {
		Subscriptions []string `yaml:"subscriptions"`
	} `yaml:"azure"`
	GCP struct {
		Project        string `yaml:"project"`
		BillingDataset string `yaml:"billing_dataset"`
	} `yaml:"gcp"`
}

// Path returns the config file path: CONFIG_PATH if set, ./config.yml
// otherwise.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config.yml"
}

// Load parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("Loaded config: %s", path))
	return &c, nil
}
