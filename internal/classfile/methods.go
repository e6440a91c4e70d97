package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/daimatz/gojvm/internal/jvmerrors"
)

const (
	staticInitializerName = "<clinit>"
	constructorName        = "<init>"
)

// Method is a parsed method_info, immutable after construction. Grounded on
// original_source/src/class_file/methods.rs and original_source/src/types/method.rs.
type Method struct {
	Name            string
	Descriptor      string
	AccessFlags     AccessFlags
	Attributes      []Attribute
	Code            *CodeBlock
	Exceptions      []uint16 // checked exception class-pool indices
	Parameters      []MethodParameterInfo
	SignatureIndex  uint16
	HasSignature    bool

	// IsConstructor/IsStaticInitializer name spec.md §3's "extra flags" per
	// their stated semantics — the reverse of what
	// original_source/src/class_file/methods.rs assigns; see DESIGN.md
	// decision 3.
	IsConstructor       bool
	IsStaticInitializer bool
}

func parseMethods(r io.Reader, pool *ConstantPool, major uint16, isInterface bool, className string) ([]Method, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("classfile: reading methods_count: %w", err)
	}
	methods := make([]Method, count)
	for i := range methods {
		m, err := parseMethod(r, pool, major, isInterface, className)
		if err != nil {
			return nil, fmt.Errorf("classfile: parsing method %d: %w", i, err)
		}
		methods[i] = m
	}
	return methods, nil
}

func parseMethod(r io.Reader, pool *ConstantPool, major uint16, isInterface bool, className string) (Method, error) {
	var flags, nameIndex, descriptorIndex uint16
	if err := binary.Read(r, binary.BigEndian, &flags); err != nil {
		return Method{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
		return Method{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &descriptorIndex); err != nil {
		return Method{}, err
	}
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return Method{}, fmt.Errorf("resolving method name: %w", err)
	}
	descriptor, err := pool.Utf8(descriptorIndex)
	if err != nil {
		return Method{}, fmt.Errorf("resolving method descriptor: %w", err)
	}

	m := Method{Name: name, Descriptor: descriptor, AccessFlags: AccessFlags(flags)}

	switch name {
	case staticInitializerName:
		m.IsStaticInitializer = true
		// <clinit> is forced static on pre-7 classes; on 7+ it must already be
		// static, with STRICT permitted only up to Java 16 (spec.md §4.3).
		if major < Java7 {
			m.AccessFlags = AccStatic
		} else if m.AccessFlags.IsStatic() {
			allowed := AccStatic
			if major <= Java16 {
				allowed |= AccStrict
			}
			m.AccessFlags &= allowed
		} else {
			return Method{}, jvmerrors.New(jvmerrors.AccessFlagError,
				"%s: static initializer %s must be static", className, staticInitializerName)
		}
	case constructorName:
		m.IsConstructor = true
		if isInterface {
			return Method{}, jvmerrors.New(jvmerrors.AccessFlagError,
				"%s: interfaces cannot declare a constructor", className)
		}
		if err := verifyMethodFlags(className, major, m.AccessFlags, isInterface, name); err != nil {
			return Method{}, err
		}
	default:
		if err := verifyMethodFlags(className, major, m.AccessFlags, isInterface, name); err != nil {
			return Method{}, err
		}
	}

	raws, err := ReadRawAttributes(r, pool)
	if err != nil {
		return Method{}, fmt.Errorf("reading method attributes: %w", err)
	}
	ctx := attributeContext{major: major, pool: pool, className: className}
	seenSignature := false
	for _, raw := range raws {
		switch raw.Name {
		case attrCode:
			if m.AccessFlags.IsNative() || m.AccessFlags.IsAbstract() {
				return Method{}, jvmerrors.New(jvmerrors.ClassFormatError,
					"%s.%s: native/abstract methods must not have a Code attribute", className, name)
			}
			if m.Code != nil {
				return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s.%s: duplicate Code attribute", className, name)
			}
			code, err := parseCodeBlock(bytes.NewReader(raw.Data), ctx)
			if err != nil {
				return Method{}, err
			}
			m.Code = code
		case attrExceptions:
			if m.Exceptions != nil {
				return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s.%s: duplicate Exceptions attribute", className, name)
			}
			sub := bytes.NewReader(raw.Data)
			var count uint16
			if err := readBE(sub, &count); err != nil {
				return Method{}, err
			}
			indices := make([]uint16, count)
			for i := range indices {
				if err := readBE(sub, &indices[i]); err != nil {
					return Method{}, err
				}
			}
			m.Exceptions = indices
		case attrMethodParameters:
			if m.Parameters != nil {
				return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s.%s: duplicate MethodParameters attribute", className, name)
			}
			sub := bytes.NewReader(raw.Data)
			var count uint8
			if err := readBE(sub, &count); err != nil {
				return Method{}, err
			}
			params := make([]MethodParameterInfo, count)
			for i := range params {
				var pflags uint16
				if err := readBE(sub, &params[i].NameIndex); err != nil {
					return Method{}, err
				}
				if err := readBE(sub, &pflags); err != nil {
					return Method{}, err
				}
				params[i].Flags = AccessFlags(pflags)
			}
			m.Parameters = params
		case attrSynthetic, attrDeprecated:
			if len(raw.Data) != 0 {
				return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s attribute must have length 0", raw.Name)
			}
		case attrSignature:
			if major < Java5 {
				break
			}
			if seenSignature {
				return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s.%s: duplicate Signature attribute", className, name)
			}
			if len(raw.Data) != 2 {
				return Method{}, jvmerrors.New(jvmerrors.ClassFormatError, "Signature attribute length must be 2")
			}
			sub := bytes.NewReader(raw.Data)
			var index uint16
			_ = binary.Read(sub, binary.BigEndian, &index)
			m.SignatureIndex = index
			m.HasSignature = true
			seenSignature = true
		default:
			// unrecognized: skip
		}
	}
	return m, nil
}

// verifyMethodFlags enforces the truth table in spec.md §4.3, parameterized
// by {is_interface, major_version, name}. Grounded on
// original_source/src/class_file/methods.rs's verify_method_flags.
func verifyMethodFlags(className string, major uint16, flags AccessFlags, isInterface bool, name string) error {
	illegal := false
	switch {
	case isInterface && major >= Java8:
		illegal = (flags.IsPublic() == flags.IsPrivate()) ||
			flags.IsNative() || flags.IsProtected() || flags.IsFinal() || flags.IsSynchronized() ||
			(flags.IsAbstract() && (flags.IsPrivate() || flags.IsStatic() || (major < Java17 && flags.IsStrict())))
	case isInterface && major >= Java5:
		illegal = !flags.IsPublic() || flags.IsPrivate() || flags.IsProtected() || flags.IsStatic() ||
			flags.IsFinal() || flags.IsSynchronized() || flags.IsNative() || !flags.IsAbstract() || flags.IsStrict()
	case isInterface:
		illegal = !flags.IsPublic() || flags.IsStatic() || flags.IsFinal() || flags.IsNative() || !flags.IsAbstract()
	default:
		illegal = hasIllegalVisibility(flags) ||
			(isConstructorName(name) && (flags.IsStatic() || flags.IsFinal() || flags.IsSynchronized() ||
				flags.IsNative() || flags.IsAbstract() || (major >= Java5 && flags.IsBridge()))) ||
			(flags.IsAbstract() && (flags.IsFinal() || flags.IsNative() || flags.IsPrivate() || flags.IsStatic() ||
				(major >= Java5 && (flags.IsSynchronized() || (major < Java17 && flags.IsStrict())))))
	}
	if illegal {
		return jvmerrors.New(jvmerrors.AccessFlagError, "%s.%s: illegal access flag combination 0x%04X", className, name, flags)
	}
	return nil
}

func isConstructorName(name string) bool { return name == constructorName }

// hasIllegalVisibility reports whether more than one of public/protected/
// private is set.
func hasIllegalVisibility(flags AccessFlags) bool {
	pub, prot, priv := flags.IsPublic(), flags.IsProtected(), flags.IsPrivate()
	return (pub && prot) || (pub && priv) || (prot && priv)
}

// FindMethod looks up a method by name and descriptor.
func FindMethod(methods []Method, name, descriptor string) *Method {
	for i := range methods {
		if methods[i].Name == name && methods[i].Descriptor == descriptor {
			return &methods[i]
		}
	}
	return nil
}

// FindMethodByName returns the first method with the given name, regardless
// of descriptor (useful when a class defines only one overload).
func FindMethodByName(methods []Method, name string) *Method {
	for i := range methods {
		if methods[i].Name == name {
			return &methods[i]
		}
	}
	return nil
}
