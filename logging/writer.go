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

// Package logging opens the destination the CLI logs to. The token is
// printed to stdout, so logs default to stderr and move to a dated file
// only when a log directory is configured.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
)

// EnvLogDir names a directory to write dated log files to. It takes
// precedence over Options.LogDir.
const EnvLogDir = "RDS_SIGNER_LOG_DIR"

type Options struct {
	LogDir string
}

type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) { return os.Stderr.Write(p) }
func (stderrWriter) Close() error                { return nil }

// Writer returns the log destination. With no directory configured it
// is stderr (the Close is a no-op); otherwise a dated log file under
// the directory, created if needed.
func Writer(opts *Options) (io.WriteCloser, error) {
	if opts == nil {
		opts = &Options{}
	}

	logDir := opts.LogDir
	if v := os.Getenv(EnvLogDir); v != "" {
		logDir = v
	}

	if logDir == "" {
		return stderrWriter{}, nil
	}

	logDir, err := homedir.Expand(logDir)
	if err != nil {
		return nil, fmt.Errorf("error expanding logging directory %s: %v", logDir, err)
	}

	if err = os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating directory %s: %v", logDir, err)
	}

	logfile := filepath.Join(logDir, fmt.Sprintf("rds-signer_%s.log", time.Now().Format("2006-01-02")))

	file, err := os.OpenFile(logfile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening/creating log file %s: %v", logfile, err)
	}

	return file, nil
}
