package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr    string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	DBPath  string `json:"db_path" yaml:"db_path" toml:"db_path"`

	// Model container settings.
	ModelImage        string `json:"model_image" yaml:"model_image" toml:"model_image"`
	ModelNetwork      string `json:"model_network" yaml:"model_network" toml:"model_network"`
	MLflowTrackingURI string `json:"mlflow_tracking_uri" yaml:"mlflow_tracking_uri" toml:"mlflow_tracking_uri"`
	ModelPort         int    `json:"model_port" yaml:"model_port" toml:"model_port"`

	// Bootstrap admin credentials, applied only when the user table is empty.
	AdminUser string `json:"admin_user" yaml:"admin_user" toml:"admin_user"`
	AdminKey  string `json:"admin_key" yaml:"admin_key" toml:"admin_key"`

	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	// Timeout in seconds for proxied model invocations (0 = default).
	InvokeTimeoutSeconds int `json:"invoke_timeout_seconds" yaml:"invoke_timeout_seconds" toml:"invoke_timeout_seconds"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
