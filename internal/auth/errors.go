// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package auth

// Error codes for authentication and credential-store failures.
const (
	// CodeInvalidCredentials covers both unknown usernames and wrong
	// passwords. Clients receive one generic reply for either; the
	// operator log carries the distinction in the error context.
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"

	// CodeUsernameTaken is returned when registering a username that
	// already exists in the credential store.
	CodeUsernameTaken = "AUTH_USERNAME_TAKEN"

	// CodeInvalidUsername is returned for usernames the policy or the
	// storage format cannot accept.
	CodeInvalidUsername = "AUTH_INVALID_USERNAME"

	// CodeInvalidPassword is returned for passwords outside the allowed
	// length range.
	CodeInvalidPassword = "AUTH_INVALID_PASSWORD"

	// CodeStoreAppendFailed is returned when the durable append fails.
	// The in-memory map is not updated in that case: the append and the
	// insert are one logical unit.
	CodeStoreAppendFailed = "STORE_APPEND_FAILED"

	// CodeStoreLoadFailed is returned when the credentials file cannot be
	// read or created at startup.
	CodeStoreLoadFailed = "STORE_LOAD_FAILED"
)
