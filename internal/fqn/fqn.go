// Package fqn parses, erases and rebuilds the qualified and mangled names
// used as symbol identities.
//
// Two shapes are handled:
//   - type names:     qualifier.Name<Args>
//   - callable names: qualifier.name(ArgTypes)
//
// Qualifiers may themselves carry generic arguments (outer.Type<X>.Inner),
// so every split is done with a bracket-depth aware scan.
package fqn

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrMalformedName is returned when a name has unbalanced brackets.
var ErrMalformedName = errors.New("malformed name")

// Parts is a name split into its qualifier, simple name and suffix. The
// suffix is the generic argument list for types ("<...>") and the parameter
// list for callables ("(...)").
type Parts struct {
	Qualifier string
	Name      string
	Suffix    string
}

// Parse splits a mangled name into Parts.
func Parse(mangled string, callable bool) (Parts, error) {
	if err := checkBalanced(mangled); err != nil {
		return Parts{}, err
	}
	var p Parts
	rest := mangled
	if dot := lastTopLevelDot(mangled); dot >= 0 {
		p.Qualifier = mangled[:dot]
		rest = mangled[dot+1:]
	}
	if callable {
		if open := lastTopLevelParen(rest); open >= 0 {
			p.Name = rest[:open]
			p.Suffix = rest[open:]
			return p, nil
		}
		p.Name = rest
		return p, nil
	}
	if lt := strings.IndexByte(rest, '<'); lt >= 0 {
		p.Name = rest[:lt]
		p.Suffix = rest[lt:]
		return p, nil
	}
	p.Name = rest
	return p, nil
}

// RebuildQualified joins qualifier and name.
func RebuildQualified(p Parts) string {
	if p.Qualifier == "" {
		return p.Name
	}
	return p.Qualifier + "." + p.Name
}

// RebuildFull joins qualifier, name and suffix. It is the inverse of Parse.
func RebuildFull(p Parts) string {
	return RebuildQualified(p) + p.Suffix
}

// StripGenericArgs removes every top-level <...> span, nested spans included.
func StripGenericArgs(s string) (string, error) {
	if strings.IndexByte(s, '<') < 0 {
		if strings.IndexByte(s, '>') >= 0 {
			return "", fmt.Errorf("%w: %q", ErrMalformedName, s)
		}
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return "", fmt.Errorf("%w: %q", ErrMalformedName, s)
			}
		default:
			if depth == 0 {
				b.WriteByte(c)
			}
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedName, s)
	}
	return b.String(), nil
}

// Erase strips generic arguments from every part.
func Erase(p Parts) (Parts, error) {
	var err error
	var out Parts
	if out.Qualifier, err = StripGenericArgs(p.Qualifier); err != nil {
		return Parts{}, err
	}
	if out.Name, err = StripGenericArgs(p.Name); err != nil {
		return Parts{}, err
	}
	if out.Suffix, err = StripGenericArgs(p.Suffix); err != nil {
		return Parts{}, err
	}
	return out, nil
}

// Mangle builds the canonical name of a callable:
// qualifier.name(T1,T2). The leading dot is omitted for an empty qualifier.
func Mangle(qualifier, name string, paramTypes []string) string {
	var b strings.Builder
	if qualifier != "" {
		b.WriteString(qualifier)
		b.WriteByte('.')
	}
	b.WriteString(name)
	b.WriteString(Signature(paramTypes))
	return b.String()
}

// Signature renders a parameter type list as "(T1,T2)".
func Signature(paramTypes []string) string {
	return "(" + strings.Join(paramTypes, ",") + ")"
}

// JoinQN joins non-empty parts with dots.
func JoinQN(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// ModuleQN returns the dotted module qualifier of a Python source file.
// Examples:
//   - pkg/service/orders.py -> pkg.service.orders
//   - pkg/__init__.py       -> pkg
func ModuleQN(relPath string) string {
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	parts := strings.Split(filepath.ToSlash(relPath), "/")

	// For Python __init__.py, drop the __init__ part
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return JoinQN(parts...)
}

// lastTopLevelDot scans backwards for a dot outside any <...> or (...).
func lastTopLevelDot(s string) int {
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '>', ')':
			depth++
		case '<', '(':
			depth--
		case '.':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// lastTopLevelParen returns the index of the '(' that opens the final
// parenthesized group.
func lastTopLevelParen(s string) int {
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func checkBalanced(s string) error {
	angle, paren := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			angle++
		case '>':
			angle--
		case '(':
			paren++
		case ')':
			paren--
		}
		if angle < 0 || paren < 0 {
			return fmt.Errorf("%w: %q", ErrMalformedName, s)
		}
	}
	if angle != 0 || paren != 0 {
		return fmt.Errorf("%w: %q", ErrMalformedName, s)
	}
	return nil
}
