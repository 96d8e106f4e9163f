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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm identifies the signing scheme in the emitted query
	// parameters and in the string to sign.
	Algorithm string = "AWS4-HMAC-SHA256"

	// Service is the fixed service name RDS expects in the credential
	// scope. A key derived for any other service is rejected.
	Service string = "rds-db"

	Terminal string = "aws4_request"

	RequestMethod string = "GET"

	// SignedHeaders is the only header RDS expects to be signed. All
	// other request metadata rides in the query string
	// (SignatureLocation=QueryParams).
	SignedHeaders string = "host"

	ISO8601TimeFormat string = "20060102T150405Z"

	ISO8601DateEndIndex int = 8
)

// emptyPayloadHash is the SHA-256 of a zero-length body. The token
// request is a bodiless GET, so the canonical request always ends with
// this value.
var emptyPayloadHash = hashHex(nil)

// signingValues carries everything presignConnectURL needs to produce a
// signed URL. It is assembled per call and discarded.
type signingValues struct {
	// Authority of the target database, in host:port form.
	Authority string

	User         string
	AccessKeyID  string
	SecretKey    string
	SessionToken string
	Region       string
	ExpiresIn    time.Duration
	Time         time.Time
}

// presignConnectURL builds the canonical rds-db:connect request, signs
// it, and returns the full signed URL including the https scheme.
func presignConnectURL(v *signingValues) string {
	var (
		timestamp = v.Time.UTC().Format(ISO8601TimeFormat)
		date      = timestamp[:ISO8601DateEndIndex]
		scope     = strings.Join([]string{date, v.Region, Service, Terminal}, "/")
	)

	params := [][2]string{
		{"Action", "connect"},
		{"DBUser", v.User},
		{"X-Amz-Algorithm", Algorithm},
		{"X-Amz-Credential", v.AccessKeyID + "/" + scope},
		{"X-Amz-Date", timestamp},
		{"X-Amz-Expires", strconv.Itoa(int(v.ExpiresIn / time.Second))},
		{"X-Amz-SignedHeaders", SignedHeaders},
	}
	if v.SessionToken != "" {
		params = append(params, [2]string{"X-Amz-Security-Token", v.SessionToken})
	}

	query := makeCanonicalQuery(params)
	canonicalRequest := makeCanonicalRequest(v.Authority, query)
	stringToSign := makeStringToSign(timestamp, scope, canonicalRequest)
	signingKey := deriveSigningKey(v.SecretKey, date, v.Region)
	signature := hex.EncodeToString(makeHmac(signingKey, []byte(stringToSign)))

	return fmt.Sprintf("https://%s/?%s&X-Amz-Signature=%s", v.Authority, query, signature)
}

// makeCanonicalQuery percent-encodes each parameter and sorts the
// resulting key=value pairs lexicographically. The emitted query string
// is byte-identical to the one hashed into the canonical request; the
// server re-sorts and re-hashes it during verification.
func makeCanonicalQuery(params [][2]string) string {
	encoded := make([]string, 0, len(params))
	for _, p := range params {
		encoded = append(encoded, uriEncode(p[0])+"="+uriEncode(p[1]))
	}
	sort.Strings(encoded)
	return strings.Join(encoded, "&")
}

func makeCanonicalRequest(authority, query string) string {
	// Based on https://docs.aws.amazon.com/general/latest/gr/sigv4-create-canonical-request.html
	// The URI path is fixed to "/" and the only signed header is host.
	return fmt.Sprintf("%s\n/\n%s\nhost:%s\n\n%s\n%s",
		RequestMethod, query, authority, SignedHeaders, emptyPayloadHash)
}

func makeStringToSign(timestamp, scope, canonicalRequest string) string {
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		Algorithm, timestamp, scope, hashHex([]byte(canonicalRequest)))
}

// deriveSigningKey narrows the secret key into a key scoped to
// (date, region, rds-db). Each HMAC output keys the next step.
func deriveSigningKey(secretKey, date, region string) []byte {
	kDate := makeHmac([]byte("AWS4"+secretKey), []byte(date))
	kRegion := makeHmac(kDate, []byte(region))
	kService := makeHmac(kRegion, []byte(Service))
	return makeHmac(kService, []byte(Terminal))
}

func makeHmac(key []byte, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// uriEncode percent-encodes s with the escaping rules the verifier
// expects: unreserved characters (A-Z, a-z, 0-9, '-', '_', '.', '~')
// pass through, every other byte becomes %XX with uppercase hex.
// url.QueryEscape cannot be used here: it emits '+' for spaces and
// leaves characters unescaped that must be escaped.
func uriEncode(s string) string {
	const upperhex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}
