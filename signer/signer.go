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

// Package signer generates AWS RDS IAM authentication tokens: signed,
// short-lived URLs that IAM-enabled RDS databases accept in place of a
// password. The token is a SigV4-presigned rds-db:connect request with
// the signature and its supporting metadata carried entirely in query
// parameters.
package signer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/xerrors"
)

const (
	// DefaultExpiresIn is the validity window of a token when none is
	// configured. 15 minutes is the maximum RDS accepts.
	DefaultExpiresIn = 900 * time.Second

	// DefaultPort is the PostgreSQL port.
	DefaultPort = 5432

	// DefaultRegion is used when neither the Signer nor the ambient AWS
	// configuration names a region.
	DefaultRegion = "us-east-1"

	schemePrefix = "https://"
)

// Signer generates authentication tokens for one database endpoint. It
// is immutable once built and safe for concurrent use; each FetchToken
// call fetches credentials and computes a signature independently.
type Signer struct {
	expiresIn time.Duration
	host      string
	port      int
	user      string
	region    string
	provider  CredentialsProvider
	clock     func() time.Time
	logger    hclog.Logger
}

// Builder assembles a Signer. Setters may be chained in any order;
// Build validates the result and returns the immutable Signer.
type Builder struct {
	signer Signer
}

// NewBuilder returns a Builder with the defaults applied: port 5432,
// 900-second validity, the SDK default credential chain, and the wall
// clock.
func NewBuilder() *Builder {
	return &Builder{
		signer: Signer{
			expiresIn: DefaultExpiresIn,
			port:      DefaultPort,
			provider:  &ChainProvider{},
			clock:     time.Now,
			logger:    hclog.NewNullLogger(),
		},
	}
}

// ExpiresIn sets the validity window of generated tokens.
func (b *Builder) ExpiresIn(d time.Duration) *Builder {
	b.signer.expiresIn = d
	return b
}

// Host sets the database endpoint hostname, e.g.
// "mydb.123456789012.us-east-1.rds.amazonaws.com". Required.
func (b *Builder) Host(host string) *Builder {
	b.signer.host = host
	return b
}

// Port sets the database port.
func (b *Builder) Port(port int) *Builder {
	b.signer.port = port
	return b
}

// User sets the database user to authenticate as. The user must have
// IAM authentication enabled in RDS. Required.
func (b *Builder) User(user string) *Builder {
	b.signer.user = user
	return b
}

// Region sets the AWS region of the database. When unset, the region of
// the ambient AWS configuration is used, then "us-east-1".
func (b *Builder) Region(region string) *Builder {
	b.signer.region = region
	return b
}

// Credentials replaces the default SDK credential chain.
func (b *Builder) Credentials(provider CredentialsProvider) *Builder {
	b.signer.provider = provider
	return b
}

// Clock replaces the wall clock used to timestamp signatures. Tokens
// are time-dependent; freezing the clock makes them reproducible.
func (b *Builder) Clock(clock func() time.Time) *Builder {
	b.signer.clock = clock
	return b
}

// Logger sets the logger used for debug output. Credential secrets are
// never logged.
func (b *Builder) Logger(logger hclog.Logger) *Builder {
	b.signer.logger = logger
	return b
}

// Build validates the configuration and returns the Signer. The Signer
// holds a copy of the builder's state; later builder mutations do not
// affect it.
func (b *Builder) Build() (*Signer, error) {
	s := b.signer
	if s.host == "" {
		return nil, xerrors.New("no database host configured")
	}
	if s.user == "" {
		return nil, xerrors.New("no database user configured")
	}
	if s.port < 0 || s.port > 65535 {
		return nil, xerrors.Errorf("port %d is outside the valid range 0-65535", s.port)
	}
	if s.expiresIn <= 0 {
		return nil, xerrors.Errorf("token validity duration must be positive (got %s)", s.expiresIn)
	}
	if s.provider == nil {
		return nil, xerrors.New("no credentials provider configured")
	}
	return &s, nil
}

// FetchToken generates an authentication token for the configured
// database. The returned string carries no "https://" prefix and is
// used verbatim as the database password; it expires once the validity
// window elapses. Credentials are fetched fresh on every call, and the
// fetch honors ctx cancellation.
func (s *Signer) FetchToken(ctx context.Context) (string, error) {
	creds, err := s.provider.Retrieve(ctx)
	if err != nil {
		return "", &SignerError{Err: xerrors.Errorf("error retrieving credentials: %w", err)}
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return "", &SignerError{Err: xerrors.New("credential source returned an incomplete credential set")}
	}

	authority := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := validateAuthority(authority); err != nil {
		return "", &ParseError{Err: err}
	}

	region := resolveRegion(s.region, s.ambientRegion())

	s.logger.Debug("signing token request",
		"host", s.host,
		"port", s.port,
		"user", s.user,
		"region", region,
		"expires_in", s.expiresIn.String(),
	)

	signed := presignConnectURL(&signingValues{
		Authority:    authority,
		User:         s.user,
		AccessKeyID:  creds.AccessKeyID,
		SecretKey:    creds.SecretAccessKey,
		SessionToken: creds.SessionToken,
		Region:       region,
		ExpiresIn:    s.expiresIn,
		Time:         s.clock(),
	})

	// The signed URL must survive a reparse; a token the caller cannot
	// feed back through a URL parser is useless to a database driver.
	if _, err := url.Parse(signed); err != nil {
		return "", &ParseError{Err: err}
	}

	return strings.TrimPrefix(signed, schemePrefix), nil
}

// ambientRegion asks the credential source for the region of the
// surrounding AWS configuration, if it knows one.
func (s *Signer) ambientRegion() string {
	if rp, ok := s.provider.(RegionProvider); ok {
		return rp.Region()
	}
	return ""
}

// resolveRegion picks the signing region: explicit configuration wins,
// then the ambient region, then DefaultRegion.
func resolveRegion(configured, ambient string) string {
	if configured != "" {
		return configured
	}
	if ambient != "" {
		return ambient
	}
	return DefaultRegion
}

// validateAuthority rejects host:port values that cannot form the
// authority component of a URL before any signing work happens.
func validateAuthority(authority string) error {
	u, err := url.Parse(schemePrefix + authority + "/")
	if err != nil {
		return err
	}
	if u.Host != authority {
		return xerrors.Errorf("%q does not form a valid URL authority", authority)
	}
	return nil
}
