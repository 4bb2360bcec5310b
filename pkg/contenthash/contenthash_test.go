// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package contenthash

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
		{"simple", "Hello World", "hello world"},
		{"leading and trailing", "  hello world  ", "hello world"},
		{"internal run", "hello   \t  world", "hello world"},
		{"newlines collapse", "hello\nworld\r\nagain", "hello world again"},
		{"mixed case", "HeLLo WoRLD", "hello world"},
		{"unicode preserved", "Café  Crème", "café crème"},
		{"non-breaking space collapses", "hello world", "hello world"},
		{"non-breaking space trimmed", " hello ", "hello"},
		{"ideographic space collapses", "hello　 world", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

// TestHash_NormalizationCollisions verifies that contents equal after
// normalization produce identical hashes.
func TestHash_NormalizationCollisions(t *testing.T) {
	variants := []string{
		"The argument assumes its conclusion.",
		"  The argument assumes its conclusion.  ",
		"THE ARGUMENT ASSUMES ITS CONCLUSION.",
		"The  argument\nassumes\t its conclusion.",
		"The argument assumes its conclusion.",
	}

	base := Hash(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, base, Hash(v), "variant %q should collide", v)
	}
}

func TestHash_DistinctContentDiffers(t *testing.T) {
	assert.NotEqual(t, Hash("support the proposition"), Hash("oppose the proposition"))
}

// TestHash_Format verifies the digest is a 64-character lowercase hex string.
func TestHash_Format(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{64}$`)

	for _, content := range []string{"", "x", "a longer piece of discussion content"} {
		h := Hash(content)
		assert.Len(t, h, 64)
		assert.Regexp(t, hexPattern, h)
	}
}

func TestHash_Deterministic(t *testing.T) {
	const content = "deliberation requires good-faith engagement"
	assert.Equal(t, Hash(content), Hash(content))
}
