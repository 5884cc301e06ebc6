// Package config provides unified configuration loading for paramstudy.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/paramstudy/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all paramstudy configuration settings.
type Config struct {
	// Output contains defaults for how generated studies are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Sampling contains defaults for the statistical generators.
	Sampling SamplingConfig `json:"sampling" yaml:"sampling"`

	// Builders contains settings for external build actions.
	Builders BuildersConfig `json:"builders" yaml:"builders"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// OutputConfig holds write defaults. CLI flags override every field.
type OutputConfig struct {
	// FileType is "yaml", "arrow", or "sqlite".
	FileType string `json:"file_type" yaml:"file_type"`

	// SetNameTemplate names sets; "{number}" is replaced by the ordinal.
	SetNameTemplate string `json:"set_name_template" yaml:"set_name_template"`

	Overwrite            bool `json:"overwrite" yaml:"overwrite"`
	WriteMeta            bool `json:"write_meta" yaml:"write_meta"`
	TimestampOnCollision bool `json:"timestamp_on_collision" yaml:"timestamp_on_collision"`
}

// SamplingConfig holds statistical generator defaults.
type SamplingConfig struct {
	Seed     uint64 `json:"seed" yaml:"seed"`
	Scramble bool   `json:"scramble" yaml:"scramble"`
}

// BuildersConfig configures external programs run by builder actions.
type BuildersConfig struct {
	// AbaqusProgram is the solver executable. Supports ${VAR} syntax.
	AbaqusProgram string `json:"abaqus_program" yaml:"abaqus_program"`

	// Shell runs every action with "-c".
	Shell string `json:"shell" yaml:"shell"`
}

// LoggingConfig configures paramstudy's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .paramstudy/decisions.jsonl
	// in the output directory.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			FileType:        constants.DefaultOutputFileType,
			SetNameTemplate: constants.DefaultSetNameTemplate,
		},
		Builders: BuildersConfig{
			AbaqusProgram: "abaqus",
			Shell:         "sh",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the default config file location, ~/.paramstudy/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.StateDirName, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.paramstudy/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Builders.AbaqusProgram = expandEnvVars(config.Builders.AbaqusProgram)

	return config, nil
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	validTypes := map[string]bool{"yaml": true, "arrow": true, "sqlite": true}
	if !validTypes[strings.ToLower(c.Output.FileType)] {
		return fmt.Errorf("invalid output file type: %s (valid: yaml, arrow, sqlite)", c.Output.FileType)
	}

	if err := ValidateSetNameTemplate(c.Output.SetNameTemplate); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// ValidateSetNameTemplate rejects set name templates that would place set
// files outside the output directory.
func ValidateSetNameTemplate(tmpl string) error {
	if strings.ContainsRune(tmpl, filepath.Separator) || strings.ContainsRune(tmpl, '/') {
		return fmt.Errorf("set_name_template must not contain a path separator, got %q", tmpl)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PARAMSTUDY_OUTPUT_FILE_TYPE"); v != "" {
		config.Output.FileType = v
	}

	if v := os.Getenv("PARAMSTUDY_SET_NAME_TEMPLATE"); v != "" {
		config.Output.SetNameTemplate = v
	}

	if v := os.Getenv("PARAMSTUDY_OVERWRITE"); v != "" {
		config.Output.Overwrite = v == "true" || v == "1"
	}

	if v := os.Getenv("PARAMSTUDY_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Sampling.Seed = n
		}
	}

	if v := os.Getenv("PARAMSTUDY_ABAQUS_PROGRAM"); v != "" {
		config.Builders.AbaqusProgram = v
	}

	if v := os.Getenv("PARAMSTUDY_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
