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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	uuid "github.com/hashicorp/go-uuid"

	"github.com/emcee21/aws-rds-signer/config"
	"github.com/emcee21/aws-rds-signer/logging"
	"github.com/emcee21/aws-rds-signer/signer"
	"github.com/emcee21/aws-rds-signer/version"
)

const banner = "AWS RDS IAM authentication token generator version %v, commit %v, built %v\n"

func main() {
	var (
		versionFlag bool
		host        string
		port        int
		user        string
		region      string
		expiresIn   time.Duration
		logLevel    string
	)

	flag.BoolVar(&versionFlag, "version", false, "print version and exit")
	flag.StringVar(&host, "host", "", "RDS endpoint hostname")
	flag.IntVar(&port, "port", 0, "database port (default 5432)")
	flag.StringVar(&user, "user", "", "database user to authenticate as")
	flag.StringVar(&region, "region", "", "AWS region of the database (default: ambient AWS configuration)")
	flag.DurationVar(&expiresIn, "expires-in", 0, "token validity duration (default 15m)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flag.Parse()

	// Exit safely when version is used
	if versionFlag {
		fmt.Printf(banner, version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Environment variables override flags
	envCfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("error reading configuration from environment: %v", err)
	}

	cfg := config.Config{
		Host:      host,
		Port:      port,
		User:      user,
		Region:    region,
		ExpiresIn: expiresIn,
	}.Merge(envCfg)

	if err = cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Open log writer
	logWriter, err := logging.Writer(nil)
	if err != nil {
		log.Fatalf("error creating log file: %v", err)
	}
	defer logWriter.Close()

	requestID, err := uuid.GenerateUUID()
	if err != nil {
		log.Fatalf("error generating request id: %v", err)
	}

	// Create logger
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "rds-signer",
		Level:  hclog.LevelFromString(logLevel),
		Output: logWriter,
	}).With("request_id", requestID)

	builder := signer.NewBuilder().
		Host(cfg.Host).
		User(cfg.User).
		Logger(logger)
	if cfg.Port != 0 {
		builder = builder.Port(cfg.Port)
	}
	if cfg.Region != "" {
		builder = builder.Region(cfg.Region)
	}
	if cfg.ExpiresIn != 0 {
		builder = builder.ExpiresIn(cfg.ExpiresIn)
	}

	s, err := builder.Build()
	if err != nil {
		logger.Error("error building signer", "error", err)
		os.Exit(1)
	}

	token, err := s.FetchToken(context.Background())
	if err != nil {
		logger.Error("error generating authentication token", "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
