// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package config provides the configuration of the adtcli command.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP/go-adt/adt"
	"github.com/SAP/go-adt/proxy"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TLSConfig holds the TLS settings of the connection.
type TLSConfig struct {
	ServerName         string   `mapstructure:"server_name" yaml:"server_name,omitempty"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty"`
	RootCAFiles        []string `mapstructure:"root_ca_files" yaml:"root_ca_files,omitempty" validate:"dive,file"`
}

func (c *TLSConfig) empty() bool {
	return c.ServerName == "" && !c.InsecureSkipVerify && len(c.RootCAFiles) == 0
}

// ProxyConfig holds the settings of the SOCKS5 connectivity proxy.
type ProxyConfig struct {
	Address    string `mapstructure:"address" yaml:"address" validate:"required,hostname_port"`
	LocationID string `mapstructure:"location_id" yaml:"location_id,omitempty"`
	User       string `mapstructure:"user" yaml:"user,omitempty"`
	Password   string `mapstructure:"password" yaml:"password,omitempty"`
	JWTToken   string `mapstructure:"jwt_token" yaml:"jwt_token,omitempty"`
}

// Config is the adtcli configuration.
type Config struct {
	Server   string        `mapstructure:"server" yaml:"server" validate:"required,url"`
	User     string        `mapstructure:"user" yaml:"user" validate:"required"`
	Password string        `mapstructure:"password" yaml:"password" validate:"required"`
	Client   string        `mapstructure:"client" yaml:"client" validate:"len=3,numeric"`
	Language string        `mapstructure:"language" yaml:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"-" validate:"gte=0"`
	LogLevel string        `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	TLS      TLSConfig     `mapstructure:"tls" yaml:"tls,omitempty"`
	Proxy    *ProxyConfig  `mapstructure:"proxy" yaml:"proxy,omitempty"`
}

const redacted = "****"

// MarshalYAML implements the yaml.Marshaler interface.
// Passwords and tokens are redacted.
func (c Config) MarshalYAML() (any, error) {
	type plain Config
	p := plain(c)
	if p.Password != "" {
		p.Password = redacted
	}
	if p.Proxy != nil {
		proxy := *p.Proxy
		if proxy.Password != "" {
			proxy.Password = redacted
		}
		if proxy.JWTToken != "" {
			proxy.JWTToken = redacted
		}
		p.Proxy = &proxy
	}
	return struct {
		plain   `yaml:",inline"`
		Timeout string `yaml:"timeout"`
	}{p, c.Timeout.String()}, nil
}

// YAML returns the configuration in yaml format.
func (c *Config) YAML() ([]byte, error) { return yaml.Marshal(c) }

// Validate validates the configuration.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	if c.Proxy != nil && c.Proxy.User != "" && c.Proxy.JWTToken != "" {
		return errors.New("proxy: specify user or jwt_token, not both")
	}
	return nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		if e.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s: failed on %s=%s", field, e.Tag(), e.Param()))
		} else {
			messages = append(messages, fmt.Sprintf("%s: failed on %s", field, e.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}

// Level returns the slog level of LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Logger returns a text logger writing to w with the configured log level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

// Connector returns an adt connector for the configuration.
func (c *Config) Connector() (*adt.Connector, error) {
	connector := adt.NewBasicAuthConnector(c.Server, c.User, c.Password)
	connector.SetClient(c.Client)
	if err := connector.SetLanguage(c.Language); err != nil {
		return nil, err
	}
	connector.SetTimeout(c.Timeout)
	if !c.TLS.empty() {
		if err := connector.SetTLS(c.TLS.ServerName, c.TLS.InsecureSkipVerify, c.TLS.RootCAFiles...); err != nil {
			return nil, err
		}
	}
	if c.Proxy != nil {
		connector.SetProxy(&proxy.Config{
			Address:    c.Proxy.Address,
			JWTToken:   c.Proxy.JWTToken,
			LocationID: c.Proxy.LocationID,
			User:       c.Proxy.User,
			Password:   c.Proxy.Password,
		})
	}
	return connector, nil
}
