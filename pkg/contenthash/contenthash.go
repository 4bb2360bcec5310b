// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package contenthash produces deterministic cache keys from response content.
//
// # Description
//
// Cache keys for the feedback pipeline are SHA-256 digests of normalized
// content. Normalization makes the key insensitive to case and whitespace
// padding, so two responses that differ only in formatting collide on the
// same key and reuse the same cached analysis.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize canonicalizes content before hashing.
//
// # Description
//
// Trims leading and trailing whitespace, lowercases the content, and
// collapses every run of Unicode whitespace (including newlines, tabs, and
// non-breaking spaces) into a single space. The result is the canonical
// form used for cache keying.
//
// # Inputs
//
//   - content: Raw response text. May be empty.
//
// # Outputs
//
//   - string: The normalized form. Empty input yields an empty string.
//
// # Example
//
//	Normalize("  Hello   WORLD\n")  // "hello world"
func Normalize(content string) string {
	lowered := strings.ToLower(strings.TrimSpace(content))
	if lowered == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(lowered))
	inRun := false
	// unicode.IsSpace keeps interior collapsing consistent with
	// TrimSpace, which trims the full Unicode whitespace set.
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			inRun = true
			continue
		}
		if inRun {
			b.WriteByte(' ')
			inRun = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Hash returns the deterministic cache key for content.
//
// # Description
//
// Applies Normalize and computes the SHA-256 digest of the result, rendered
// as a 64-character lowercase hex string. Identical normalized content always
// produces the same hash.
//
// # Inputs
//
//   - content: Raw response text.
//
// # Outputs
//
//   - string: 64-character lowercase hexadecimal SHA-256 digest.
//
// # Example
//
//	Hash("Hello World") == Hash("  hello   world  ")  // true
func Hash(content string) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}
