// Package config resolves run settings from flags, the environment and an
// optional typespub.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/git-pkgs/typespub/internal/core"
	"github.com/git-pkgs/typespub/internal/npm"
)

const (
	fileName = "typespub"
	fileType = "yaml"

	// EnvPrefix prefixes every environment override, e.g. TYPESPUB_OUTPUT.
	EnvPrefix = "TYPESPUB"
)

// Keys understood by Load.
const (
	KeyCatalog   = "catalog"
	KeyChanges   = "changes"
	KeySource    = "source"
	KeyOutput    = "output"
	KeyLogs      = "logs"
	KeyRegistry  = "registry"
	KeyTgz       = "tgz"
	KeyBranch    = "branch"
	KeySourceURL = "source-url"
)

// Config holds the settings of one generate run.
type Config struct {
	Catalog   string
	Changes   string
	Source    string
	Output    string
	Logs      string
	Registry  string
	Tgz       bool
	Branch    string
	SourceURL string

	// File is the config file that was read, if any.
	File string
}

// Defaults returns the built-in value of every key.
func Defaults() map[string]any {
	return map[string]any{
		KeyCatalog:   "catalog.yaml",
		KeyChanges:   "changes.yaml",
		KeySource:    "DefinitelyTyped",
		KeyOutput:    "output",
		KeyLogs:      "logs",
		KeyRegistry:  npm.DefaultURL,
		KeyTgz:       false,
		KeyBranch:    "master",
		KeySourceURL: core.DefinitelyTypedURL,
	}
}

// Load resolves settings in increasing priority: defaults, config file,
// environment, flags that were set explicitly. When file is empty
// typespub.yaml is looked up in the working directory and skipped if absent.
func Load(flags *pflag.FlagSet, file string) (*Config, error) {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType(fileType)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Catalog:   v.GetString(KeyCatalog),
		Changes:   v.GetString(KeyChanges),
		Source:    v.GetString(KeySource),
		Output:    v.GetString(KeyOutput),
		Logs:      v.GetString(KeyLogs),
		Registry:  v.GetString(KeyRegistry),
		Tgz:       v.GetBool(KeyTgz),
		Branch:    v.GetString(KeyBranch),
		SourceURL: v.GetString(KeySourceURL),
		File:      v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	var missing []string
	if c.Catalog == "" {
		missing = append(missing, KeyCatalog)
	}
	if c.Changes == "" {
		missing = append(missing, KeyChanges)
	}
	if c.Output == "" {
		missing = append(missing, KeyOutput)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
