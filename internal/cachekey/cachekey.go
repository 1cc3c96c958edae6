// Package cachekey derives deterministic, content-addressed cache keys for
// research results, per spec.md §6: hex(H64(normalize(content) ||
// canonical(options))).
package cachekey

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint computes the deterministic cache key for a query plus its
// option set. Two calls with the same content and the same options (in any
// iteration order) must produce the same key; changing any boolean or
// string option value must change it (§8's cache-key determinism property).
func Fingerprint(content string, options map[string]string) string {
	h := xxhash.New()
	h.WriteString(normalize(content))
	h.WriteString("\x00")
	h.WriteString(canonicalOptions(options))

	return hex.EncodeToString(h.Sum(nil))
}

// normalize folds whitespace and case so that cosmetically different but
// semantically identical queries hash to the same key.
func normalize(content string) string {
	fields := strings.Fields(strings.ToLower(content))
	return strings.Join(fields, " ")
}

// canonicalOptions serializes an option map in sorted-key order so the
// fingerprint is independent of map iteration order.
func canonicalOptions(options map[string]string) string {
	if len(options) == 0 {
		return ""
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(options[k])
	}
	return b.String()
}

// BoolOption renders a boolean option value the way canonicalOptions expects
// it, so two call sites constructing the same option set always agree.
func BoolOption(v bool) string {
	return strconv.FormatBool(v)
}
