// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

// Package auth provides credential storage, password hashing, and the
// worker pool that keeps deliberately slow hashing off the serving path.
package auth
