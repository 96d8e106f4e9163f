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

package signer

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"golang.org/x/xerrors"
)

// Credentials is the identity a token request is signed with. The
// secret access key never appears in the generated token or in logs.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// A CredentialsProvider yields the credentials FetchToken signs with.
// Providers are consulted on every call; temporary credentials may
// differ between calls and are never cached by the signer.
type CredentialsProvider interface {
	Retrieve(ctx context.Context) (Credentials, error)
}

// A RegionProvider reports the region of the surrounding AWS
// configuration. A CredentialsProvider may additionally implement it;
// FetchToken consults it when the Signer has no region of its own.
type RegionProvider interface {
	Region() string
}

// ChainProvider resolves credentials through the AWS SDK default chain:
// environment variables, shared credentials/config files, then the
// instance metadata service. It also surfaces the region the SDK
// resolved, so an unconfigured Signer can sign for the ambient region.
type ChainProvider struct {
	mu     sync.Mutex
	region string
}

// Retrieve fetches credentials from the SDK default chain. The session
// is built fresh per call so that rotated or re-assumed credentials are
// picked up.
func (p *ChainProvider) Retrieve(ctx context.Context) (Credentials, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return Credentials{}, xerrors.Errorf("error creating AWS session: %w", err)
	}

	p.mu.Lock()
	p.region = aws.StringValue(sess.Config.Region)
	p.mu.Unlock()

	val, err := sess.Config.Credentials.GetWithContext(ctx)
	if err != nil {
		return Credentials{}, xerrors.Errorf("error retrieving AWS credentials: %w", err)
	}

	return Credentials{
		AccessKeyID:     val.AccessKeyID,
		SecretAccessKey: val.SecretAccessKey,
		SessionToken:    val.SessionToken,
	}, nil
}

// Region returns the region resolved by the most recent Retrieve, or ""
// if no region was resolved.
func (p *ChainProvider) Region() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.region
}

// StaticProvider returns a fixed credential set. Callers that manage
// credentials themselves can use it in place of the default chain.
type StaticProvider struct {
	Credentials Credentials

	// AmbientRegion is what Region reports. Leave empty to model an
	// environment with no region configured.
	AmbientRegion string

	// Err, if set, is returned by every Retrieve call.
	Err error
}

// Retrieve returns the fixed credential set, or Err if one is set.
func (p *StaticProvider) Retrieve(ctx context.Context) (Credentials, error) {
	if p.Err != nil {
		return Credentials{}, p.Err
	}
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	return p.Credentials, nil
}

// Region returns the configured ambient region.
func (p *StaticProvider) Region() string {
	return p.AmbientRegion
}
