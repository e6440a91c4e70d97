// Package descriptor implements the minimal field/method descriptor grammar
// from spec.md §6: B,C,D,F,I,J,S,Z primitives; L<name>; references; '['
// array-dimension prefixes (max 255); and (<params>)<return> method
// signatures. This is the external collaborator contract's concrete
// implementation, kept deliberately small per spec.md §1's non-goals.
package descriptor

import (
	"strings"

	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// Kind is the primitive/reference/array tag of a parsed type descriptor.
type Kind int

const (
	Byte Kind = iota
	Char
	Double
	Float
	Int
	Long
	Short
	Boolean
	Void
	Object
	Array
)

const maxArrayDimensions = 255

// Type is a single parsed field or return type descriptor.
type Type struct {
	Kind        Kind
	ClassName   string // set when Kind == Object: the internal form, e.g. "java/lang/String"
	Dimensions  int    // set when Kind == Array
	ElementKind Kind   // set when Kind == Array
	ElementName string // set when Kind == Array && ElementKind == Object
}

// Method is a parsed method descriptor: ordered parameter types and a
// return type (Void for "V").
type Method struct {
	Parameters []Type
	Return     Type
}

// ParseField parses a single field-type descriptor, e.g. "I", "[[I",
// "Ljava/lang/String;".
func ParseField(s string) (Type, error) {
	t, rest, err := parseType(s)
	if err != nil {
		return Type{}, err
	}
	if rest != "" {
		return Type{}, jvmerrors.New(jvmerrors.ClassFormatError, "trailing data in field descriptor %q", s)
	}
	return t, nil
}

// ParseMethod parses a method descriptor of the form "(<params>)<return>".
func ParseMethod(s string) (Method, error) {
	if !strings.HasPrefix(s, "(") {
		return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "method descriptor %q must start with '('", s)
	}
	rest := s[1:]
	var params []Type
	for !strings.HasPrefix(rest, ")") {
		if rest == "" {
			return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "unterminated parameter list in %q", s)
		}
		t, next, err := parseType(rest)
		if err != nil {
			return Method{}, err
		}
		params = append(params, t)
		rest = next
	}
	rest = rest[1:] // consume ')'

	if rest == "V" {
		return Method{Parameters: params, Return: Type{Kind: Void}}, nil
	}
	ret, tail, err := parseType(rest)
	if err != nil {
		return Method{}, err
	}
	if tail != "" {
		return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "trailing data after return type in %q", s)
	}
	return Method{Parameters: params, Return: ret}, nil
}

// parseType parses one type off the front of s, returning the remainder.
func parseType(s string) (Type, string, error) {
	if s == "" {
		return Type{}, "", jvmerrors.New(jvmerrors.ClassFormatError, "empty type descriptor")
	}

	dims := 0
	rest := s
	for strings.HasPrefix(rest, "[") {
		dims++
		if dims > maxArrayDimensions {
			return Type{}, "", jvmerrors.New(jvmerrors.ClassFormatError, "array descriptor exceeds %d dimensions", maxArrayDimensions)
		}
		rest = rest[1:]
	}

	elem, tail, err := parseScalar(rest)
	if err != nil {
		return Type{}, "", err
	}
	if dims == 0 {
		return elem, tail, nil
	}
	t := Type{Kind: Array, Dimensions: dims, ElementKind: elem.Kind}
	if elem.Kind == Object {
		t.ElementName = elem.ClassName
	}
	return t, tail, nil
}

func parseScalar(s string) (Type, string, error) {
	if s == "" {
		return Type{}, "", jvmerrors.New(jvmerrors.ClassFormatError, "empty type descriptor")
	}
	switch s[0] {
	case 'B':
		return Type{Kind: Byte}, s[1:], nil
	case 'C':
		return Type{Kind: Char}, s[1:], nil
	case 'D':
		return Type{Kind: Double}, s[1:], nil
	case 'F':
		return Type{Kind: Float}, s[1:], nil
	case 'I':
		return Type{Kind: Int}, s[1:], nil
	case 'J':
		return Type{Kind: Long}, s[1:], nil
	case 'S':
		return Type{Kind: Short}, s[1:], nil
	case 'Z':
		return Type{Kind: Boolean}, s[1:], nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return Type{}, "", jvmerrors.New(jvmerrors.ClassFormatError, "unterminated class descriptor in %q", s)
		}
		return Type{Kind: Object, ClassName: s[1:end]}, s[end+1:], nil
	default:
		return Type{}, "", jvmerrors.New(jvmerrors.ClassFormatError, "unrecognized type tag %q in descriptor %q", s[0], s)
	}
}

// IsCategory2 reports whether a value of this type occupies two stack/local
// slots (long and double; JVMS §2.11.1).
func (t Type) IsCategory2() bool { return t.Kind == Long || t.Kind == Double }
