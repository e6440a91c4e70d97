package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// Field is a parsed field_info, immutable after construction. Grounded on
// original_source/src/class_file/fields.rs and types/field.rs.
type Field struct {
	Name           string
	Descriptor     string
	AccessFlags    AccessFlags
	ConstantValue  *ConstantValueRef
	SignatureIndex uint16
	HasSignature   bool
}

// ConstantValueRef names the constant pool slot backing a static final
// field's initializer.
type ConstantValueRef struct {
	PoolIndex uint16
}

func parseFields(r io.Reader, pool *ConstantPool, major uint16, className string) ([]Field, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("classfile: reading fields_count: %w", err)
	}
	fields := make([]Field, count)
	for i := range fields {
		f, err := parseField(r, pool, major, className)
		if err != nil {
			return nil, fmt.Errorf("classfile: parsing field %d: %w", i, err)
		}
		fields[i] = f
	}
	return fields, nil
}

func parseField(r io.Reader, pool *ConstantPool, major uint16, className string) (Field, error) {
	var flags, nameIndex, descriptorIndex uint16
	if err := binary.Read(r, binary.BigEndian, &flags); err != nil {
		return Field{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
		return Field{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &descriptorIndex); err != nil {
		return Field{}, err
	}
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return Field{}, fmt.Errorf("resolving field name: %w", err)
	}
	descriptor, err := pool.Utf8(descriptorIndex)
	if err != nil {
		return Field{}, fmt.Errorf("resolving field descriptor: %w", err)
	}

	f := Field{Name: name, Descriptor: descriptor, AccessFlags: AccessFlags(flags)}
	if hasIllegalFieldVisibility(f.AccessFlags) {
		return Field{}, jvmerrors.New(jvmerrors.AccessFlagError, "%s.%s: illegal access flag combination 0x%04X", className, name, flags)
	}

	raws, err := ReadRawAttributes(r, pool)
	if err != nil {
		return Field{}, fmt.Errorf("reading field attributes: %w", err)
	}
	seenConstantValue := false
	seenSignature := false
	for _, raw := range raws {
		switch raw.Name {
		case attrConstantValue:
			if !f.AccessFlags.IsStatic() {
				return Field{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s.%s: ConstantValue on non-static field", className, name)
			}
			if seenConstantValue {
				return Field{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s.%s: duplicate ConstantValue attribute", className, name)
			}
			if len(raw.Data) != 2 {
				return Field{}, jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue attribute length must be 2, got %d", len(raw.Data))
			}
			sub := bytes.NewReader(raw.Data)
			var index uint16
			_ = binary.Read(sub, binary.BigEndian, &index)
			if err := validateConstantValueTag(pool, index, descriptor); err != nil {
				return Field{}, err
			}
			f.ConstantValue = &ConstantValueRef{PoolIndex: index}
			seenConstantValue = true
		case attrSynthetic, attrDeprecated:
			if len(raw.Data) != 0 {
				return Field{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s attribute must have length 0", raw.Name)
			}
		case attrSignature:
			if major < Java5 {
				break
			}
			if seenSignature {
				return Field{}, jvmerrors.New(jvmerrors.ClassFormatError, "%s.%s: duplicate Signature attribute", className, name)
			}
			if len(raw.Data) != 2 {
				return Field{}, jvmerrors.New(jvmerrors.ClassFormatError, "Signature attribute length must be 2")
			}
			sub := bytes.NewReader(raw.Data)
			var index uint16
			_ = binary.Read(sub, binary.BigEndian, &index)
			f.SignatureIndex = index
			f.HasSignature = true
			seenSignature = true
		default:
			// unrecognized: skip
		}
	}
	return f, nil
}

func hasIllegalFieldVisibility(flags AccessFlags) bool {
	return hasIllegalVisibility(flags) || (flags.IsFinal() && flags.IsVolatile())
}
