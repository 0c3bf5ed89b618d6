// Package identity turns strings into the 63-bit keys used for every
// Entity and AstNode in the graph.
package identity

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	offsetBasis uint64 = 0xCBF29CE484222325
	prime       uint64 = 1099511628211
	signMask    uint64 = 0x7FFFFFFFFFFFFFFF
)

// NotInFile is the context used for nodes that have no source location
// (generic instantiation placeholders, builtin types).
const NotInFile = "not_in_file"

// Hash returns the FNV-1a hash of s with the top bit cleared so the value
// always fits a signed 64-bit column. It is computed over the UTF-16 code
// units of s, one step per character; characters outside the Basic
// Multilingual Plane contribute their two surrogates.
func Hash(s string) uint64 {
	h := offsetBasis
	for _, r := range s {
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			h = (h ^ uint64(hi)) * prime
			h = (h ^ uint64(lo)) * prime
			continue
		}
		h = (h ^ uint64(r)) * prime
	}
	return h & signMask
}

// ID is Hash converted to the signed form stored in SQLite.
func ID(s string) int64 {
	return int64(Hash(s))
}

// NodeKey builds the identity string of an occurrence in a file.
func NodeKey(value string, fileID int64, start, end int, mangled string) string {
	var b strings.Builder
	b.Grow(len(value) + len(mangled) + 48)
	b.WriteString(value)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(fileID, 10))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(start))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(end))
	b.WriteByte(':')
	b.WriteString(mangled)
	return b.String()
}

// FakeNodeKey builds the identity string of a placeholder node.
func FakeNodeKey(value, mangled string) string {
	return value + ":" + NotInFile + ":" + mangled
}

// FileKey builds the identity string of a file within a build.
func FileKey(buildID, path string) string {
	return buildID + ":" + path
}
