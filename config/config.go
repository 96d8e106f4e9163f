// Copyright 2019 The Morning Consult, LLC or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//         https://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package config sources token-generation settings for the CLI from
// environment variables and validates them.
package config

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/xerrors"

	"github.com/emcee21/aws-rds-signer/signer"
)

const (
	EnvHost      = "DB_HOST"
	EnvPort      = "DB_PORT"
	EnvUser      = "DB_USER"
	EnvRegion    = "DB_REGION"
	EnvExpiresIn = "DB_TOKEN_EXPIRES_IN"
)

// Config holds the token-generation settings the CLI collects before
// building a signer. Zero values mean "not set".
type Config struct {
	Host      string
	Port      int
	User      string
	Region    string
	ExpiresIn time.Duration
}

// FromEnv reads settings from the DB_* environment variables. Unset
// variables leave the corresponding field at its zero value. Malformed
// numeric values surface as *signer.EnvVarError.
func FromEnv() (Config, error) {
	cfg := Config{
		Host:   os.Getenv(EnvHost),
		User:   os.Getenv(EnvUser),
		Region: os.Getenv(EnvRegion),
	}

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &signer.EnvVarError{
				Err: xerrors.Errorf("value of %s is not an integer: %w", EnvPort, err),
			}
		}
		cfg.Port = port
	}

	if v := os.Getenv(EnvExpiresIn); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &signer.EnvVarError{
				Err: xerrors.Errorf("value of %s is not an integer number of seconds: %w", EnvExpiresIn, err),
			}
		}
		cfg.ExpiresIn = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

// Merge overlays o onto c: any field set in o replaces the value in c.
// The CLI uses it to let environment variables override flag values.
func (c Config) Merge(o Config) Config {
	if o.Host != "" {
		c.Host = o.Host
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.User != "" {
		c.User = o.User
	}
	if o.Region != "" {
		c.Region = o.Region
	}
	if o.ExpiresIn != 0 {
		c.ExpiresIn = o.ExpiresIn
	}
	return c
}

// Validate reports the first problem that would prevent the settings
// from building a signer.
func (c Config) Validate() error {
	if c.Host == "" {
		return xerrors.Errorf("no database host provided (set %s or use -host)", EnvHost)
	}
	if c.User == "" {
		return xerrors.Errorf("no database user provided (set %s or use -user)", EnvUser)
	}
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Errorf("port %d is outside the valid range 0-65535", c.Port)
	}
	if c.ExpiresIn < 0 {
		return xerrors.Errorf("token validity duration cannot be negative (got %s)", c.ExpiresIn)
	}
	return nil
}
