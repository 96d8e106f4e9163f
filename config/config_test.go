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

package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/emcee21/aws-rds-signer/signer"
)

var envVars = []string{EnvHost, EnvPort, EnvUser, EnvRegion, EnvExpiresIn}

var savedEnvVars map[string]string

func TestMain(m *testing.M) {
	saveEnvVars()
	status := m.Run()
	restoreEnvVars()
	os.Exit(status)
}

func TestFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		env      map[string]string
		err      string
		expected Config
	}{
		{
			"nothing-set",
			nil,
			"",
			Config{},
		},
		{
			"all-set",
			map[string]string{
				EnvHost:      "mydb.cluster.us-east-1.rds.amazonaws.com",
				EnvPort:      "3306",
				EnvUser:      "appuser",
				EnvRegion:    "eu-west-1",
				EnvExpiresIn: "3600",
			},
			"",
			Config{
				Host:      "mydb.cluster.us-east-1.rds.amazonaws.com",
				Port:      3306,
				User:      "appuser",
				Region:    "eu-west-1",
				ExpiresIn: 3600 * time.Second,
			},
		},
		{
			"port-not-an-integer",
			map[string]string{
				EnvPort: "5432x",
			},
			`EnvVarError: value of DB_PORT is not an integer: strconv.Atoi: parsing "5432x": invalid syntax`,
			Config{},
		},
		{
			"expiry-not-an-integer",
			map[string]string{
				EnvExpiresIn: "15m",
			},
			`EnvVarError: value of DB_TOKEN_EXPIRES_IN is not an integer number of seconds: strconv.Atoi: parsing "15m": invalid syntax`,
			Config{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnvVars()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}

			cfg, err := FromEnv()
			if tc.err != "" {
				if err == nil {
					t.Fatal("expected an error")
				}
				if err.Error() != tc.err {
					t.Fatalf("unexpected error (Got: %q, Expected: %q)", err.Error(), tc.err)
				}
				var envErr *signer.EnvVarError
				if !errors.As(err, &envErr) {
					t.Errorf("error is not a *signer.EnvVarError: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error reading configuration from environment: %v", err)
			}
			if diff := cmp.Diff(tc.expected, cfg); diff != "" {
				t.Errorf("unexpected configuration (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	flags := Config{
		Host:      "flag-host",
		Port:      5432,
		User:      "flag-user",
		ExpiresIn: 900 * time.Second,
	}

	cases := []struct {
		name     string
		overlay  Config
		expected Config
	}{
		{
			"empty-overlay-keeps-flags",
			Config{},
			flags,
		},
		{
			"env-overrides-flags",
			Config{
				Host: "env-host",
				Port: 3306,
			},
			Config{
				Host:      "env-host",
				Port:      3306,
				User:      "flag-user",
				ExpiresIn: 900 * time.Second,
			},
		},
		{
			"region-only-from-env",
			Config{Region: "ap-southeast-2"},
			Config{
				Host:      "flag-host",
				Port:      5432,
				User:      "flag-user",
				Region:    "ap-southeast-2",
				ExpiresIn: 900 * time.Second,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.expected, flags.Merge(tc.overlay)); diff != "" {
				t.Errorf("unexpected merged configuration (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Host: "mydb.cluster.us-east-1.rds.amazonaws.com",
		User: "appuser",
	}

	cases := []struct {
		name   string
		mutate func(Config) Config
		err    string
	}{
		{
			"valid",
			func(c Config) Config { return c },
			"",
		},
		{
			"no-host",
			func(c Config) Config { c.Host = ""; return c },
			"no database host provided (set DB_HOST or use -host)",
		},
		{
			"no-user",
			func(c Config) Config { c.User = ""; return c },
			"no database user provided (set DB_USER or use -user)",
		},
		{
			"port-out-of-range",
			func(c Config) Config { c.Port = 70000; return c },
			"port 70000 is outside the valid range 0-65535",
		},
		{
			"negative-expiry",
			func(c Config) Config { c.ExpiresIn = -time.Second; return c },
			"token validity duration cannot be negative (got -1s)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mutate(valid).Validate()
			if tc.err == "" {
				if err != nil {
					t.Fatalf("unexpected validation error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if err.Error() != tc.err {
				t.Errorf("unexpected error (Got: %q, Expected: %q)", err.Error(), tc.err)
			}
		})
	}
}

func clearEnvVars() {
	for _, k := range envVars {
		os.Unsetenv(k)
	}
}

func saveEnvVars() {
	savedEnvVars = make(map[string]string)
	for _, k := range envVars {
		savedEnvVars[k] = os.Getenv(k)
	}
	clearEnvVars()
}

func restoreEnvVars() {
	for k, v := range savedEnvVars {
		os.Setenv(k, v)
	}
}
