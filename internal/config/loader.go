// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAP/go-adt/adt"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding configuration values,
// e.g. ADT_SERVER or ADT_TLS_SERVER_NAME.
const EnvPrefix = "ADT"

const fileName = "adtcli"

var keys = []string{
	"server", "user", "password", "client", "language", "timeout", "log_level",
	"tls.server_name", "tls.insecure_skip_verify", "tls.root_ca_files",
	"proxy.address", "proxy.location_id", "proxy.user", "proxy.password", "proxy.jwt_token",
}

// SearchPaths returns the directories searched for adtcli.yaml.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".adtcli"))
	}
	return paths
}

// findFile returns the first adtcli.yaml or adtcli.yml in paths.
func findFile(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, fileName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// NewViper returns a viper instance reading file, or the first adtcli.yaml found in
// paths if file is empty, with environment overrides.
func NewViper(file string, paths ...string) *viper.Viper {
	v := viper.New()
	if file == "" {
		file = findFile(paths)
	}
	if file != "" {
		v.SetConfigFile(file)
	}
	v.SetConfigType("yaml")

	v.SetDefault("client", adt.DefaultClient)
	v.SetDefault("timeout", adt.DefaultTimeout)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads and validates the configuration.
// A missing configuration file is not an error; values may be set by environment only.
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Proxy != nil && cfg.Proxy.Address == "" {
		// only env keys were bound
		cfg.Proxy = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
