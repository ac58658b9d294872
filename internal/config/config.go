package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment variable overrides. Every CLI
// flag has an equivalent PODKERNEL_* variable.
const EnvPrefix = "PODKERNEL"

type Config struct {
	ContainerCommand string `yaml:"container_command"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	KernelspecDir    string `yaml:"kernelspec_dir"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		ContainerCommand: "podman",
		LogLevel:         "info",
		LogFormat:        "text",
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "_CONTAINER_COMMAND"); v != "" {
		cfg.ContainerCommand = v
	}
	if v := os.Getenv(EnvPrefix + "_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv(EnvPrefix + "_KERNELSPEC_DIR"); v != "" {
		cfg.KernelspecDir = v
	}
}
