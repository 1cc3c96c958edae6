package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	opts := map[string]string{"semantic": BoolOption(true), "limit": "10"}

	a := Fingerprint("How do I use channels in Go?", opts)
	b := Fingerprint("How do I use channels in Go?", opts)

	assert.Equal(t, a, b)
}

func TestFingerprint_OptionOrderIndependent(t *testing.T) {
	a := Fingerprint("query", map[string]string{"a": "1", "b": "2", "c": "3"})
	b := Fingerprint("query", map[string]string{"c": "3", "a": "1", "b": "2"})

	assert.Equal(t, a, b)
}

func TestFingerprint_NormalizesWhitespaceAndCase(t *testing.T) {
	a := Fingerprint("  How Do I Use   Channels  ", nil)
	b := Fingerprint("how do i use channels", nil)

	assert.Equal(t, a, b)
}

func TestFingerprint_BooleanOptionChangesKey(t *testing.T) {
	withMMR := Fingerprint("query", map[string]string{"mmr": BoolOption(true)})
	withoutMMR := Fingerprint("query", map[string]string{"mmr": BoolOption(false)})

	assert.NotEqual(t, withMMR, withoutMMR)
}

func TestFingerprint_DifferentContentDifferentKey(t *testing.T) {
	a := Fingerprint("query one", nil)
	b := Fingerprint("query two", nil)

	assert.NotEqual(t, a, b)
}
