package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/daimatz/gojvm/internal/descriptor"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

const magic uint32 = 0xCAFEBABE

// ClassFile is the top-level decoded class file (JVMS §4.1), immutable once
// loaded. Grounded on original_source/src/class_file/class_structures.rs.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool *ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Field
	Methods      []Method
	Attributes   []Attribute

	// Derived, cached at parse time for convenience.
	Name           string
	SuperClassName string // empty for java/lang/Object
	InterfaceNames []string
	SourceFile     string
	BootstrapMethods []BootstrapMethod
}

// ParseFile opens and parses a .class file from disk.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "opening %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a class file per JVMS §4.1 from r.
func Parse(r io.Reader) (*ClassFile, error) {
	var gotMagic uint32
	if err := binary.Read(r, binary.BigEndian, &gotMagic); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading magic number")
	}
	if gotMagic != magic {
		return nil, jvmerrors.New(jvmerrors.ClassFormatError, "invalid magic number: 0x%X (expected 0x%X)", gotMagic, magic)
	}

	cf := &ClassFile{}
	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading minor_version")
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading major_version")
	}
	if err := ValidateVersion(cf.MajorVersion, cf.MinorVersion); err != nil {
		return nil, err
	}

	var constantPoolCount uint16
	if err := binary.Read(r, binary.BigEndian, &constantPoolCount); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading constant_pool_count")
	}
	pool, err := ParseConstantPool(r, constantPoolCount)
	if err != nil {
		return nil, err
	}
	cf.ConstantPool = pool

	var flags uint16
	if err := binary.Read(r, binary.BigEndian, &flags); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading access_flags")
	}
	cf.AccessFlags = AccessFlags(flags)

	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading this_class")
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading super_class")
	}

	name, err := pool.ClassName(cf.ThisClass)
	if err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "resolving this_class")
	}
	cf.Name = name
	if cf.SuperClass != 0 {
		superName, err := pool.ClassName(cf.SuperClass)
		if err != nil {
			return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "resolving super_class")
		}
		cf.SuperClassName = superName
	}

	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading interfaces_count")
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	cf.InterfaceNames = make([]string, interfacesCount)
	for i := range cf.Interfaces {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "reading interfaces[%d]", i)
		}
		iname, err := pool.ClassName(cf.Interfaces[i])
		if err != nil {
			return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "resolving interfaces[%d]", i)
		}
		cf.InterfaceNames[i] = iname
	}

	fields, err := parseFields(r, pool, cf.MajorVersion, cf.Name)
	if err != nil {
		return nil, err
	}
	cf.Fields = fields

	methods, err := parseMethods(r, pool, cf.MajorVersion, cf.AccessFlags.IsInterface(), cf.Name)
	if err != nil {
		return nil, err
	}
	cf.Methods = methods

	raws, err := ReadRawAttributes(r, pool)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading class attributes: %w", err)
	}
	ctx := attributeContext{major: cf.MajorVersion, pool: pool, className: cf.Name}
	attrs, err := decodeAttributes(raws, ctx, false, "")
	if err != nil {
		return nil, err
	}
	cf.Attributes = attrs
	for _, a := range attrs {
		switch a.Kind {
		case KindSourceFile:
			if s, err := pool.Utf8(a.SourceFileIndex); err == nil {
				cf.SourceFile = s
			}
		case KindBootstrapMethods:
			cf.BootstrapMethods = a.BootstrapMethods
		}
	}

	return cf, nil
}

// FindMethod looks up a method by exact name+descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *Method {
	return FindMethod(cf.Methods, name, descriptor)
}

// FindMethodByName returns the first method matching name, any descriptor.
func (cf *ClassFile) FindMethodByName(name string) *Method {
	return FindMethodByName(cf.Methods, name)
}

// FindField looks up a field by name.
func (cf *ClassFile) FindField(name string) *Field {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// FieldCount returns the number of instance-layout slots: one per declared
// field (category-2 fields still count as one declared field; their slot
// width is handled by the heap object, not the count here).
func (cf *ClassFile) FieldCount() int {
	n := 0
	for _, f := range cf.Fields {
		if !f.AccessFlags.IsStatic() {
			n++
		}
	}
	return n
}

// FieldSlotLayout assigns each non-static declared field a physical slot
// index, widening category-2 fields (long/double) to two consecutive slots,
// and returns the total slot count the heap must allocate for an instance.
// FieldCount alone undercounts this whenever the class declares a
// long/double field.
func (cf *ClassFile) FieldSlotLayout() (slotOf map[string]int, totalSlots int) {
	slotOf = make(map[string]int, len(cf.Fields))
	next := 0
	for _, f := range cf.Fields {
		if f.AccessFlags.IsStatic() {
			continue
		}
		slotOf[f.Name] = next
		t, err := descriptor.ParseField(f.Descriptor)
		if err == nil && t.IsCategory2() {
			next += 2
		} else {
			next++
		}
	}
	return slotOf, next
}

// NewArrayClass synthesizes the minimal ClassFile standing in for an array
// type's own class (JVMS §5.3.3): distinct from its element class, so
// ANEWARRAY's array-owning-class and element-class are never conflated, per
// spec.md's correction of original_source's array-object layout bug.
func NewArrayClass(elementClassName string) *ClassFile {
	return &ClassFile{
		Name:           "[L" + elementClassName + ";",
		SuperClassName: "java/lang/Object",
	}
}

// StaticFieldOrdinals assigns each declared static field a small ordinal
// (its position among this class's own static fields), for use as an index
// into a FieldResolver's static storage.
func (cf *ClassFile) StaticFieldOrdinals() map[string]int {
	ordinals := make(map[string]int)
	next := 0
	for _, f := range cf.Fields {
		if !f.AccessFlags.IsStatic() {
			continue
		}
		ordinals[f.Name] = next
		next++
	}
	return ordinals
}

// StaticFieldCount returns the number of declared static fields.
func (cf *ClassFile) StaticFieldCount() int {
	n := 0
	for _, f := range cf.Fields {
		if f.AccessFlags.IsStatic() {
			n++
		}
	}
	return n
}

// IsInterface reports whether this class file declares an interface.
func (cf *ClassFile) IsInterface() bool { return cf.AccessFlags.IsInterface() }

// IsAbstract reports whether this class is abstract (including all interfaces).
func (cf *ClassFile) IsAbstract() bool { return cf.AccessFlags.IsAbstract() }
