// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package auth

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Store holds the username -> password-hash mapping, backed by an
// append-only text file with one "username:hash" record per line.
//
// The durable append happens before the in-memory insert, under one lock,
// so a username is never resident in memory without a corresponding line
// on disk. There is no deletion path.
type Store struct {
	path string

	mu    sync.RWMutex
	creds map[string]string
}

// OpenStore loads the credential file at path, creating it empty when
// absent. Malformed lines are skipped with a warning; they are never
// fatal.
func OpenStore(path string) (*Store, error) {
	s := &Store{
		path:  path,
		creds: make(map[string]string),
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Info("no credentials file, creating", "path", path)
		created, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
		if createErr != nil {
			return nil, oops.Code(CodeStoreLoadFailed).
				With("path", path).
				Wrap(createErr)
		}
		if closeErr := created.Close(); closeErr != nil {
			return nil, oops.Code(CodeStoreLoadFailed).
				With("path", path).
				Wrap(closeErr)
		}
		return s, nil
	}
	if err != nil {
		return nil, oops.Code(CodeStoreLoadFailed).
			With("path", path).
			Wrap(err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Debug("error closing credentials file", "error", closeErr)
		}
	}()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		username, hash, ok := strings.Cut(line, ":")
		if !ok || username == "" || hash == "" {
			slog.Warn("skipping malformed credential line",
				"path", path,
				"line", lineNo,
			)
			continue
		}
		if _, exists := s.creds[username]; exists {
			slog.Warn("duplicate username in credentials file, keeping last",
				"path", path,
				"line", lineNo,
				"username", username,
			)
		}
		s.creds[username] = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, oops.Code(CodeStoreLoadFailed).
			With("path", path).
			Wrap(err)
	}

	if len(s.creds) == 0 {
		slog.Info("no logins to load", "path", path)
	} else {
		slog.Info("logins loaded", "path", path, "count", len(s.creds))
	}
	return s, nil
}

// Lookup returns the stored hash for username.
func (s *Store) Lookup(username string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.creds[username]
	return hash, ok
}

// Has reports whether username exists in the store.
func (s *Store) Has(username string) bool {
	_, ok := s.Lookup(username)
	return ok
}

// Len returns the number of stored credentials.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}

// Append durably writes one "username:hash" record and then inserts it
// into the in-memory map. On any write error the map is left untouched.
func (s *Store) Append(username, hash string) error {
	// The line format cannot represent these.
	if username == "" || strings.ContainsAny(username, ": \t\n") {
		return oops.Code(CodeInvalidUsername).
			With("username", username).
			Errorf("username cannot be stored in credential file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.creds[username]; exists {
		return oops.Code(CodeUsernameTaken).
			With("username", username).
			Errorf("username %s already registered", username)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return oops.Code(CodeStoreAppendFailed).
			With("path", s.path).
			With("username", username).
			Wrap(err)
	}
	if _, err := f.WriteString(username + ":" + hash + "\n"); err != nil {
		_ = f.Close()
		return oops.Code(CodeStoreAppendFailed).
			With("path", s.path).
			With("username", username).
			Wrap(err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return oops.Code(CodeStoreAppendFailed).
			With("path", s.path).
			With("username", username).
			Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.Code(CodeStoreAppendFailed).
			With("path", s.path).
			With("username", username).
			Wrap(err)
	}

	s.creds[username] = hash
	return nil
}
