package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// Attribute name strings (JVMS §4.7), grounded on
// original_source/src/class_file/attribute_tags.rs.
const (
	attrConstantValue                      = "ConstantValue"
	attrCode                               = "Code"
	attrStackMapTable                      = "StackMapTable"
	attrExceptions                         = "Exceptions"
	attrInnerClasses                       = "InnerClasses"
	attrEnclosingMethod                    = "EnclosingMethod"
	attrSynthetic                          = "Synthetic"
	attrSignature                          = "Signature"
	attrSourceFile                         = "SourceFile"
	attrSourceDebugExtension               = "SourceDebugExtension"
	attrLineNumberTable                    = "LineNumberTable"
	attrLocalVariableTable                 = "LocalVariableTable"
	attrLocalVariableTypeTable             = "LocalVariableTypeTable"
	attrDeprecated                         = "Deprecated"
	attrRuntimeVisibleAnnotations          = "RuntimeVisibleAnnotations"
	attrRuntimeInvisibleAnnotations        = "RuntimeInvisibleAnnotations"
	attrRuntimeVisibleParameterAnnotations = "RuntimeVisibleParameterAnnotations"
	attrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	attrRuntimeVisibleTypeAnnotations       = "RuntimeVisibleTypeAnnotations"
	attrRuntimeInvisibleTypeAnnotations     = "RuntimeInvisibleTypeAnnotations"
	attrAnnotationDefault                  = "AnnotationDefault"
	attrBootstrapMethods                   = "BootstrapMethods"
	attrMethodParameters                   = "MethodParameters"
	attrModule                             = "Module"
	attrModulePackages                     = "ModulePackages"
	attrModuleMainClass                    = "ModuleMainClass"
	attrNestHost                           = "NestHost"
	attrNestMembers                        = "NestMembers"
	attrRecord                             = "Record"
	attrPermittedSubclasses                = "PermittedSubclasses"
)

// readBE reads a fixed-width big-endian field, wrapping a short read as
// ClassFormatError — a count-driven attribute body (JVMS §4.7) whose
// attribute_length is too short for its declared count must fail parsing,
// not silently yield zero-valued or partial entries.
func readBE(r io.Reader, v any) error {
	if err := binary.Read(r, binary.BigEndian, v); err != nil {
		return jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "truncated attribute")
	}
	return nil
}

// RawAttribute is the (name_index, length, payload) triple read straight off
// the wire, before tagged-dispatch decoding.
type RawAttribute struct {
	NameIndex uint16
	Name      string
	Data      []byte
}

// ReadRawAttributes reads an attribute_count-prefixed list of raw attributes.
func ReadRawAttributes(r io.Reader, pool *ConstantPool) ([]RawAttribute, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("classfile: reading attributes_count: %w", err)
	}
	attrs := make([]RawAttribute, 0, count)
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, fmt.Errorf("classfile: reading attribute_name_index: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("classfile: reading attribute_length: %w", err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("classfile: reading attribute payload: %w", err)
		}
		name, err := pool.Utf8(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("classfile: resolving attribute name at index %d: %w", nameIndex, err)
		}
		attrs = append(attrs, RawAttribute{NameIndex: nameIndex, Name: name, Data: data})
	}
	return attrs, nil
}

// Attribute is the decoded, tagged-union form of one attribute. At most one
// of the typed fields below is populated, discriminated by Kind; marker
// kinds such as Synthetic and Deprecated populate none.
type Attribute struct {
	Kind AttributeKind

	ConstantValueIndex uint16
	Code               *CodeBlock
	StackMapTable      *StackMapTable
	ExceptionIndexTable []uint16
	InnerClasses        []InnerClassInfo
	EnclosingClassIndex  uint16
	EnclosingMethodIndex uint16
	SignatureIndex       uint16
	SourceFileIndex      uint16
	SourceDebugExtension []byte
	LineNumberTable      []LineNumberEntry
	LocalVariableTable   []LocalVariableEntry
	AnnotationDefault    []byte // raw element_value, descriptor parsing out of scope
	BootstrapMethods     []BootstrapMethod
	MethodParameters     []MethodParameterInfo
	Module               *ModuleInfo
	ModulePackageIndices []uint16
	ModuleMainClassIndex uint16
	NestHostIndex        uint16
	NestMemberIndices    []uint16
	RecordComponents     []RecordComponent
	PermittedSubclassIndices []uint16
}

// AttributeKind discriminates the Attribute tagged union.
type AttributeKind int

const (
	KindConstantValue AttributeKind = iota
	KindCode
	KindStackMapTable
	KindExceptions
	KindInnerClasses
	KindEnclosingMethod
	KindSynthetic
	KindSignature
	KindSourceFile
	KindSourceDebugExtension
	KindLineNumberTable
	KindLocalVariableTable
	KindLocalVariableTypeTable
	KindDeprecated
	KindRuntimeVisibleAnnotations
	KindRuntimeInvisibleAnnotations
	KindRuntimeVisibleParameterAnnotations
	KindRuntimeInvisibleParameterAnnotations
	KindRuntimeVisibleTypeAnnotations
	KindRuntimeInvisibleTypeAnnotations
	KindAnnotationDefault
	KindBootstrapMethods
	KindMethodParameters
	KindModule
	KindModulePackages
	KindModuleMainClass
	KindNestHost
	KindNestMembers
	KindRecord
	KindPermittedSubclasses
	KindUnknown
)

type InnerClassInfo struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags AccessFlags
}

type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

type LocalVariableEntry struct {
	StartPC         uint16
	Length          uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Index           uint16
}

type BootstrapMethod struct {
	MethodRefIndex uint16
	Arguments      []uint16
}

type MethodParameterInfo struct {
	NameIndex uint16
	Flags     AccessFlags
}

type ModuleInfo struct {
	NameIndex    uint16
	Flags        uint16
	VersionIndex uint16
	Requires     []ModuleRequires
	Exports      []ModuleExports
	Opens        []ModuleOpens
	Uses         []uint16
	Provides     []ModuleProvides
}

type ModuleRequires struct {
	Index        uint16
	Flags        uint16
	VersionIndex uint16
}

type ModuleExports struct {
	Index   uint16
	Flags   uint16
	ToIndex []uint16
}

type ModuleOpens struct {
	Index   uint16
	Flags   uint16
	ToIndex []uint16
}

type ModuleProvides struct {
	Index       uint16
	WithIndices []uint16
}

type RecordComponent struct {
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// attributeContext carries the ambient data needed to decode attributes
// correctly: the owning class's major version (for version gating) and its
// constant pool (for Signature/Code sub-decoding).
type attributeContext struct {
	major     uint16
	pool      *ConstantPool
	className string
}

// decodeAttributes dispatches each raw attribute by name per spec.md §4.2,
// enforcing version gating and the ConstantValue/Signature/Synthetic/
// Deprecated shape rules. Each call keeps its own seenSignature/
// seenConstantValue flags, so duplicate detection is per owner
// (field/method/class).
func decodeAttributes(raws []RawAttribute, ctx attributeContext, ownerIsStaticField bool, fieldDescriptor string) ([]Attribute, error) {
	out := make([]Attribute, 0, len(raws))
	seenSignature := false
	seenConstantValue := false
	for _, raw := range raws {
		attr, handled, err := decodeOne(raw, ctx, ownerIsStaticField, fieldDescriptor, &seenSignature, &seenConstantValue)
		if err != nil {
			return nil, err
		}
		if handled {
			out = append(out, attr)
		}
		// Unrecognized attributes are skipped entirely (advancing length bytes
		// is implicit: we never read raw.Data for them).
	}
	return out, nil
}

func decodeOne(raw RawAttribute, ctx attributeContext, ownerIsStaticField bool, fieldDescriptor string, seenSignature, seenConstantValue *bool) (Attribute, bool, error) {
	r := bytes.NewReader(raw.Data)
	switch raw.Name {
	case attrConstantValue:
		if !ownerIsStaticField {
			return Attribute{}, false, jvmerrors.New(jvmerrors.ClassFormatError,
				"ConstantValue attribute on non-static field")
		}
		if *seenConstantValue {
			return Attribute{}, false, jvmerrors.New(jvmerrors.ClassFormatError,
				"duplicate ConstantValue attribute")
		}
		if len(raw.Data) != 2 {
			return Attribute{}, false, jvmerrors.New(jvmerrors.ClassFormatError,
				"ConstantValue attribute length must be 2, got %d", len(raw.Data))
		}
		var index uint16
		_ = binary.Read(r, binary.BigEndian, &index)
		if err := validateConstantValueTag(ctx.pool, index, fieldDescriptor); err != nil {
			return Attribute{}, false, err
		}
		*seenConstantValue = true
		return Attribute{Kind: KindConstantValue, ConstantValueIndex: index}, true, nil

	case attrCode:
		code, err := parseCodeBlock(r, ctx)
		if err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindCode, Code: code}, true, nil

	case attrStackMapTable:
		smt, err := parseStackMapTable(r)
		if err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindStackMapTable, StackMapTable: smt}, true, nil

	case attrExceptions:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		indices := make([]uint16, count)
		for i := range indices {
			if err := readBE(r, &indices[i]); err != nil {
				return Attribute{}, false, err
			}
		}
		return Attribute{Kind: KindExceptions, ExceptionIndexTable: indices}, true, nil

	case attrInnerClasses:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		classes := make([]InnerClassInfo, count)
		for i := range classes {
			var flags uint16
			if err := readBE(r, &classes[i].InnerClassInfoIndex); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &classes[i].OuterClassInfoIndex); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &classes[i].InnerNameIndex); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &flags); err != nil {
				return Attribute{}, false, err
			}
			classes[i].InnerClassAccessFlags = AccessFlags(flags)
		}
		return Attribute{Kind: KindInnerClasses, InnerClasses: classes}, true, nil

	case attrEnclosingMethod:
		if err := requireVersion(ctx.major, Java5, "EnclosingMethod"); err != nil {
			return Attribute{}, false, err
		}
		var classIndex, methodIndex uint16
		if err := readBE(r, &classIndex); err != nil {
			return Attribute{}, false, err
		}
		if err := readBE(r, &methodIndex); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindEnclosingMethod, EnclosingClassIndex: classIndex, EnclosingMethodIndex: methodIndex}, true, nil

	case attrSynthetic:
		if len(raw.Data) != 0 {
			return Attribute{}, false, jvmerrors.New(jvmerrors.ClassFormatError, "Synthetic attribute must have length 0")
		}
		return Attribute{Kind: KindSynthetic}, true, nil

	case attrSignature:
		if err := requireVersion(ctx.major, Java5, "Signature"); err != nil {
			return Attribute{}, false, err
		}
		if *seenSignature {
			return Attribute{}, false, jvmerrors.New(jvmerrors.ClassFormatError, "duplicate Signature attribute")
		}
		if len(raw.Data) != 2 {
			return Attribute{}, false, jvmerrors.New(jvmerrors.ClassFormatError, "Signature attribute length must be 2")
		}
		var index uint16
		_ = binary.Read(r, binary.BigEndian, &index)
		*seenSignature = true
		return Attribute{Kind: KindSignature, SignatureIndex: index}, true, nil

	case attrSourceFile:
		var index uint16
		_ = binary.Read(r, binary.BigEndian, &index)
		return Attribute{Kind: KindSourceFile, SourceFileIndex: index}, true, nil

	case attrSourceDebugExtension:
		return Attribute{Kind: KindSourceDebugExtension, SourceDebugExtension: append([]byte(nil), raw.Data...)}, true, nil

	case attrLineNumberTable:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		table := make([]LineNumberEntry, count)
		for i := range table {
			if err := readBE(r, &table[i].StartPC); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &table[i].LineNumber); err != nil {
				return Attribute{}, false, err
			}
		}
		return Attribute{Kind: KindLineNumberTable, LineNumberTable: table}, true, nil

	case attrLocalVariableTable, attrLocalVariableTypeTable:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		table := make([]LocalVariableEntry, count)
		for i := range table {
			if err := readBE(r, &table[i].StartPC); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &table[i].Length); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &table[i].NameIndex); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &table[i].DescriptorIndex); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &table[i].Index); err != nil {
				return Attribute{}, false, err
			}
		}
		kind := KindLocalVariableTable
		if raw.Name == attrLocalVariableTypeTable {
			kind = KindLocalVariableTypeTable
		}
		return Attribute{Kind: kind, LocalVariableTable: table}, true, nil

	case attrDeprecated:
		if len(raw.Data) != 0 {
			return Attribute{}, false, jvmerrors.New(jvmerrors.ClassFormatError, "Deprecated attribute must have length 0")
		}
		return Attribute{Kind: KindDeprecated}, true, nil

	case attrRuntimeVisibleAnnotations:
		if err := requireVersion(ctx.major, Java5, raw.Name); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindRuntimeVisibleAnnotations}, true, nil
	case attrRuntimeInvisibleAnnotations:
		if err := requireVersion(ctx.major, Java5, raw.Name); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindRuntimeInvisibleAnnotations}, true, nil
	case attrRuntimeVisibleParameterAnnotations:
		if err := requireVersion(ctx.major, Java5, raw.Name); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindRuntimeVisibleParameterAnnotations}, true, nil
	case attrRuntimeInvisibleParameterAnnotations:
		if err := requireVersion(ctx.major, Java5, raw.Name); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindRuntimeInvisibleParameterAnnotations}, true, nil
	case attrRuntimeVisibleTypeAnnotations:
		if err := requireVersion(ctx.major, Java5, raw.Name); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindRuntimeVisibleTypeAnnotations}, true, nil
	case attrRuntimeInvisibleTypeAnnotations:
		if err := requireVersion(ctx.major, Java5, raw.Name); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindRuntimeInvisibleTypeAnnotations}, true, nil

	case attrAnnotationDefault:
		return Attribute{Kind: KindAnnotationDefault, AnnotationDefault: append([]byte(nil), raw.Data...)}, true, nil

	case attrBootstrapMethods:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		methods := make([]BootstrapMethod, count)
		for i := range methods {
			var argCount uint16
			if err := readBE(r, &methods[i].MethodRefIndex); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &argCount); err != nil {
				return Attribute{}, false, err
			}
			methods[i].Arguments = make([]uint16, argCount)
			for j := range methods[i].Arguments {
				if err := readBE(r, &methods[i].Arguments[j]); err != nil {
					return Attribute{}, false, err
				}
			}
		}
		return Attribute{Kind: KindBootstrapMethods, BootstrapMethods: methods}, true, nil

	case attrMethodParameters:
		var count uint8
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		params := make([]MethodParameterInfo, count)
		for i := range params {
			var flags uint16
			if err := readBE(r, &params[i].NameIndex); err != nil {
				return Attribute{}, false, err
			}
			if err := readBE(r, &flags); err != nil {
				return Attribute{}, false, err
			}
			params[i].Flags = AccessFlags(flags)
		}
		return Attribute{Kind: KindMethodParameters, MethodParameters: params}, true, nil

	case attrModule:
		mod, err := parseModule(r)
		if err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindModule, Module: mod}, true, nil

	case attrModulePackages:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		indices := make([]uint16, count)
		for i := range indices {
			if err := readBE(r, &indices[i]); err != nil {
				return Attribute{}, false, err
			}
		}
		return Attribute{Kind: KindModulePackages, ModulePackageIndices: indices}, true, nil

	case attrModuleMainClass:
		var index uint16
		if err := readBE(r, &index); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindModuleMainClass, ModuleMainClassIndex: index}, true, nil

	case attrNestHost:
		var index uint16
		if err := readBE(r, &index); err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindNestHost, NestHostIndex: index}, true, nil

	case attrNestMembers:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		indices := make([]uint16, count)
		for i := range indices {
			if err := readBE(r, &indices[i]); err != nil {
				return Attribute{}, false, err
			}
		}
		return Attribute{Kind: KindNestMembers, NestMemberIndices: indices}, true, nil

	case attrRecord:
		components, err := parseRecordComponents(r, ctx)
		if err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Kind: KindRecord, RecordComponents: components}, true, nil

	case attrPermittedSubclasses:
		var count uint16
		if err := readBE(r, &count); err != nil {
			return Attribute{}, false, err
		}
		indices := make([]uint16, count)
		for i := range indices {
			if err := readBE(r, &indices[i]); err != nil {
				return Attribute{}, false, err
			}
		}
		return Attribute{Kind: KindPermittedSubclasses, PermittedSubclassIndices: indices}, true, nil

	default:
		// Unrecognized attribute: skip by not reading raw.Data at all.
		return Attribute{}, false, nil
	}
}

func requireVersion(major, min uint16, attrName string) error {
	if major < min {
		return jvmerrors.New(jvmerrors.ClassFormatError,
			"%s attribute requires class file major version >= %d, got %d", attrName, min, major)
	}
	return nil
}

// validateConstantValueTag enforces spec.md §4.2's ConstantValue/field-type
// matching rule, grounded on original_source/src/class_file/fields.rs.
func validateConstantValueTag(pool *ConstantPool, index uint16, fieldDescriptor string) error {
	tag, err := pool.TagAt(index)
	if err != nil {
		return err
	}
	if len(fieldDescriptor) == 0 {
		return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue on field with empty descriptor")
	}
	switch fieldDescriptor[0] {
	case 'J':
		if tag != TagLong {
			return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue for long field must be CONSTANT_Long, got tag %d", tag)
		}
	case 'F':
		if tag != TagFloat {
			return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue for float field must be CONSTANT_Float, got tag %d", tag)
		}
	case 'D':
		if tag != TagDouble {
			return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue for double field must be CONSTANT_Double, got tag %d", tag)
		}
	case 'B', 'C', 'S', 'Z', 'I':
		if tag != TagInteger {
			return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue for %c field must be CONSTANT_Integer, got tag %d", fieldDescriptor[0], tag)
		}
	case 'L':
		if fieldDescriptor != "Ljava/lang/String;" {
			return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue only allowed on Ljava/lang/String; reference fields, got %s", fieldDescriptor)
		}
		if tag != TagString {
			return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue for String field must be CONSTANT_String, got tag %d", tag)
		}
	default:
		return jvmerrors.New(jvmerrors.ClassFormatError, "ConstantValue not allowed on field type %s", fieldDescriptor)
	}
	return nil
}

func parseModule(r *bytes.Reader) (*ModuleInfo, error) {
	m := &ModuleInfo{}
	if err := readBE(r, &m.NameIndex); err != nil {
		return nil, err
	}
	if err := readBE(r, &m.Flags); err != nil {
		return nil, err
	}
	if err := readBE(r, &m.VersionIndex); err != nil {
		return nil, err
	}

	var requiresCount uint16
	if err := readBE(r, &requiresCount); err != nil {
		return nil, err
	}
	m.Requires = make([]ModuleRequires, requiresCount)
	for i := range m.Requires {
		if err := readBE(r, &m.Requires[i].Index); err != nil {
			return nil, err
		}
		if err := readBE(r, &m.Requires[i].Flags); err != nil {
			return nil, err
		}
		if err := readBE(r, &m.Requires[i].VersionIndex); err != nil {
			return nil, err
		}
	}

	var exportsCount uint16
	if err := readBE(r, &exportsCount); err != nil {
		return nil, err
	}
	m.Exports = make([]ModuleExports, exportsCount)
	for i := range m.Exports {
		if err := readBE(r, &m.Exports[i].Index); err != nil {
			return nil, err
		}
		if err := readBE(r, &m.Exports[i].Flags); err != nil {
			return nil, err
		}
		var toCount uint16
		if err := readBE(r, &toCount); err != nil {
			return nil, err
		}
		m.Exports[i].ToIndex = make([]uint16, toCount)
		for j := range m.Exports[i].ToIndex {
			if err := readBE(r, &m.Exports[i].ToIndex[j]); err != nil {
				return nil, err
			}
		}
	}

	var opensCount uint16
	if err := readBE(r, &opensCount); err != nil {
		return nil, err
	}
	m.Opens = make([]ModuleOpens, opensCount)
	for i := range m.Opens {
		if err := readBE(r, &m.Opens[i].Index); err != nil {
			return nil, err
		}
		if err := readBE(r, &m.Opens[i].Flags); err != nil {
			return nil, err
		}
		var toCount uint16
		if err := readBE(r, &toCount); err != nil {
			return nil, err
		}
		m.Opens[i].ToIndex = make([]uint16, toCount)
		for j := range m.Opens[i].ToIndex {
			if err := readBE(r, &m.Opens[i].ToIndex[j]); err != nil {
				return nil, err
			}
		}
	}

	var usesCount uint16
	if err := readBE(r, &usesCount); err != nil {
		return nil, err
	}
	m.Uses = make([]uint16, usesCount)
	for i := range m.Uses {
		if err := readBE(r, &m.Uses[i]); err != nil {
			return nil, err
		}
	}

	var providesCount uint16
	if err := readBE(r, &providesCount); err != nil {
		return nil, err
	}
	m.Provides = make([]ModuleProvides, providesCount)
	for i := range m.Provides {
		if err := readBE(r, &m.Provides[i].Index); err != nil {
			return nil, err
		}
		var withCount uint16
		if err := readBE(r, &withCount); err != nil {
			return nil, err
		}
		m.Provides[i].WithIndices = make([]uint16, withCount)
		for j := range m.Provides[i].WithIndices {
			if err := readBE(r, &m.Provides[i].WithIndices[j]); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func parseRecordComponents(r *bytes.Reader, ctx attributeContext) ([]RecordComponent, error) {
	var count uint16
	if err := readBE(r, &count); err != nil {
		return nil, err
	}
	components := make([]RecordComponent, count)
	for i := range components {
		if err := readBE(r, &components[i].NameIndex); err != nil {
			return nil, err
		}
		if err := readBE(r, &components[i].DescriptorIndex); err != nil {
			return nil, err
		}
		raws, err := ReadRawAttributes(r, ctx.pool)
		if err != nil {
			return nil, fmt.Errorf("classfile: record component %d attributes: %w", i, err)
		}
		attrs, err := decodeAttributes(raws, ctx, false, "")
		if err != nil {
			return nil, err
		}
		components[i].Attributes = attrs
	}
	return components, nil
}
