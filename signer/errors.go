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

// ParseError indicates that the configured host, port and user could not
// be assembled into a well-formed URL, or that the signed URL failed to
// reparse.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "ParseError: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// SignerError indicates a failure in credential retrieval, in
// signing-parameter construction, or in the signing step itself.
type SignerError struct {
	Err error
}

func (e *SignerError) Error() string {
	return "SignerError: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *SignerError) Unwrap() error {
	return e.Err
}

// EnvVarError indicates that a configuration value sourced from the
// environment could not be used. It is produced by the CLI/env layer,
// never by token generation itself.
type EnvVarError struct {
	Err error
}

func (e *EnvVarError) Error() string {
	return "EnvVarError: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *EnvVarError) Unwrap() error {
	return e.Err
}
