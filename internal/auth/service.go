// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package auth

import (
	"github.com/samber/oops"
)

// Username and password policy.
const (
	// MaxUsernameLength is exclusive: a 32-character username is too long.
	MaxUsernameLength = 32

	MinPasswordLength = 8
	MaxPasswordLength = 64

	// ReservedUsername is the broadcast target keyword; allowing it as a
	// username would make send addressing ambiguous.
	ReservedUsername = "all"
)

// dummyPasswordHash is verified against when a username doesn't exist so
// lookup failures take as long as password mismatches. This is NOT a real
// credential; it never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides credential verification and registration over a Store.
//
// Both Authenticate and Register run a deliberately slow hash; callers on
// the serving path must submit them through the Pool rather than calling
// inline.
type Service struct {
	store  *Store
	hasher PasswordHasher
}

// NewService creates a new Service.
func NewService(store *Store, hasher PasswordHasher) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
	}
}

// Authenticate verifies username/password against the store.
//
// Unknown usernames and wrong passwords both return CodeInvalidCredentials
// so clients cannot tell them apart; the error context carries the reason
// for the operator log.
func (s *Service) Authenticate(username, password string) error {
	hash, exists := s.store.Lookup(username)

	target := hash
	if !exists {
		target = dummyPasswordHash
	}

	valid, err := s.hasher.Verify(password, target)
	if err != nil {
		if !exists {
			// Dummy hash verification errors are just an invalid login.
			return oops.Code(CodeInvalidCredentials).
				With("username", username).
				With("reason", "unknown_username").
				Errorf("invalid username or password")
		}
		return oops.Code(CodeInvalidCredentials).
			With("username", username).
			With("reason", "unverifiable_hash").
			Wrap(err)
	}

	if !exists {
		return oops.Code(CodeInvalidCredentials).
			With("username", username).
			With("reason", "unknown_username").
			Errorf("invalid username or password")
	}
	if !valid {
		return oops.Code(CodeInvalidCredentials).
			With("username", username).
			With("reason", "wrong_password").
			Errorf("invalid username or password")
	}
	return nil
}

// UsernameTaken reports whether username already exists in the store.
func (s *Service) UsernameTaken(username string) bool {
	return s.store.Has(username)
}

// Register validates policy, hashes the password, and appends the new
// credential. The durable append and the in-memory insert are one logical
// unit: on append failure the user does not exist anywhere.
func (s *Service) Register(username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code(CodeStoreAppendFailed).
			With("username", username).
			Wrap(err)
	}

	return s.store.Append(username, hash)
}

// ValidateUsername validates a username against policy: non-empty, shorter
// than MaxUsernameLength, and not the reserved broadcast keyword.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidUsername).Errorf("username cannot be empty")
	}
	if len(username) >= MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Errorf("username must be shorter than %d characters", MaxUsernameLength)
	}
	if username == ReservedUsername {
		return oops.Code(CodeInvalidUsername).
			With("username", username).
			Errorf("username %q is reserved", username)
	}
	return nil
}

// ValidatePassword validates a password length against policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return oops.Code(CodeInvalidPassword).
			With("min", MinPasswordLength).
			With("max", MaxPasswordLength).
			Errorf("password length must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}
