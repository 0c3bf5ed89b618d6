package model

import "strings"

// Modifier is a bitmask of declaration modifiers.
type Modifier uint32

const (
	ModPublic Modifier = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModFinal
	ModAbstract
	ModNative
	ModSynchronized
	ModTransient
	ModVolatile
	ModStrictfp
)

var modifierNames = []struct {
	m    Modifier
	name string
}{
	{ModPublic, "public"},
	{ModProtected, "protected"},
	{ModPrivate, "private"},
	{ModStatic, "static"},
	{ModFinal, "final"},
	{ModAbstract, "abstract"},
	{ModNative, "native"},
	{ModSynchronized, "synchronized"},
	{ModTransient, "transient"},
	{ModVolatile, "volatile"},
	{ModStrictfp, "strictfp"},
}

// Has reports whether all bits of m2 are set.
func (m Modifier) Has(m2 Modifier) bool {
	return m&m2 == m2
}

// String renders the modifiers in declaration order.
func (m Modifier) String() string {
	var parts []string
	for _, mn := range modifierNames {
		if m.Has(mn.m) {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, " ")
}

// ParseModifiers maps keywords to a bitmask. Unknown keywords (annotations,
// "default", "sealed") are ignored.
func ParseModifiers(words []string) Modifier {
	var m Modifier
	for _, w := range words {
		for _, mn := range modifierNames {
			if mn.name == w {
				m |= mn.m
			}
		}
	}
	return m
}
