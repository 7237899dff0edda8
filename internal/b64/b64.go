// Package b64 normalizes and decodes base64 payloads.
//
// Input commonly arrives mangled: wrapped at 76 columns, pasted with a
// data: URI or "base64:" prefix, or interleaved with shell prompt noise.
// Clean strips everything outside the base64 alphabet and restores the
// padding before the actual decode happens.
package b64

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidEncoding reports input that still cannot be decoded after
// cleaning and re-padding.
var ErrInvalidEncoding = errors.New("input is not valid base64")

var nonAlphabet = regexp.MustCompile(`[^A-Za-z0-9+/=]`)

// Clean strips whitespace, recognized prefixes, and every character
// outside the base64 alphabet, then pads the result to a multiple of
// four. Clean is idempotent.
func Clean(s string) string {
	// Whitespace first, so a prefix split across lines still matches.
	s = strings.Join(strings.Fields(s), "")
	s = stripPrefix(s)
	s = nonAlphabet.ReplaceAllString(s, "")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return s
}

func stripPrefix(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "base64:"):
		return s[len("base64:"):]
	case strings.HasPrefix(lower, "data:"):
		// data:<mediatype>;base64,<payload> — keep only the payload.
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
		return s[len("data:"):]
	}
	return s
}

// Decode cleans s and decodes it with the standard base64 alphabet.
// Empty input decodes to an empty payload; the caller decides whether
// that is an error.
func Decode(s string) ([]byte, error) {
	cleaned := Clean(s)
	if cleaned == "" {
		return []byte{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return raw, nil
}
