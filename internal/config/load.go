package config

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/mtessler/coxswain/internal/errors"
)

// newViperInstance creates a new Viper instance with standard coxswain
// configuration: defaults, COXSWAIN_ environment prefix, and key replacer.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COXSWAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error. Missing config files are expected in many scenarios.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (COXSWAIN_* prefix)
//  2. Project config (.coxswain/config.yaml)
//  3. Global config (~/.coxswain/config.yaml)
//  4. Built-in defaults
//
// The function returns an error only for actual configuration problems,
// not for missing config files.
func Load() (*Config, error) {
	v := newViperInstance()

	// Global config provides user-wide defaults that can be overridden per-project
	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}

	// Project config allows per-project customization
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(v)
}

// unmarshalAndValidate unmarshals viper config into a Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// loadGlobalConfig attempts to load ~/.coxswain/config.yaml.
// Returns nil if the file doesn't exist or the home directory is unavailable.
func loadGlobalConfig(v *viper.Viper) error {
	path, err := GlobalConfigPath()
	if err != nil {
		return nil //nolint:nilerr // no home dir means no global config, not an error
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// loadProjectConfig attempts to load .coxswain/config.yaml from the working
// directory, merging over the global config.
func loadProjectConfig(v *viper.Viper) error {
	path := ProjectConfigPath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
