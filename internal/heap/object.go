package heap

import (
	"math"

	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// ArrayType is one of the 8 primitive array element types, keyed by the
// NEWARRAY atype byte (JVMS §6.5 newarray).
type ArrayType uint8

const (
	TypeBoolean ArrayType = 4
	TypeChar    ArrayType = 5
	TypeFloat   ArrayType = 6
	TypeDouble  ArrayType = 7
	TypeByte    ArrayType = 8
	TypeShort   ArrayType = 9
	TypeInt     ArrayType = 10
	TypeLong    ArrayType = 11
)

// heapEntry is the closed tagged union realizing spec.md §3/§9's HeapEntry,
// implemented by the three object kinds below. Unexported marker method
// keeps the set closed to this package, mirroring the Rust enum in
// original_source/src/objects/heap.rs.
type heapEntry interface {
	isHeapEntry()
}

// InstanceObject is a heap-allocated instance of a class: a mutable slot
// vector, one slot per declared instance field (longs/doubles span two).
type InstanceObject struct {
	Offset     int
	Class      *classfile.ClassFile
	FieldCount int
	slots      []uint32
}

func (*InstanceObject) isHeapEntry() {}

func newInstanceObject(offset int, class *classfile.ClassFile, fieldCount int) *InstanceObject {
	return &InstanceObject{Offset: offset, Class: class, FieldCount: fieldCount, slots: make([]uint32, fieldCount)}
}

func (o *InstanceObject) checkSlot(index int) error {
	if index < 0 || index >= len(o.slots) {
		return jvmerrors.New(jvmerrors.InternalError, "instance field slot index %d out of range (0..%d)", index, len(o.slots))
	}
	return nil
}

func (o *InstanceObject) GetInt(index int) (int32, error) {
	if err := o.checkSlot(index); err != nil {
		return 0, err
	}
	return int32(o.slots[index]), nil
}

func (o *InstanceObject) SetInt(index int, v int32) error {
	if err := o.checkSlot(index); err != nil {
		return err
	}
	o.slots[index] = uint32(v)
	return nil
}

func (o *InstanceObject) GetFloat(index int) (float32, error) {
	if err := o.checkSlot(index); err != nil {
		return 0, err
	}
	return math.Float32frombits(o.slots[index]), nil
}

func (o *InstanceObject) SetFloat(index int, v float32) error {
	if err := o.checkSlot(index); err != nil {
		return err
	}
	o.slots[index] = math.Float32bits(v)
	return nil
}

// GetLong/SetLong span two consecutive slots, most-significant first.
func (o *InstanceObject) GetLong(index int) (int64, error) {
	if err := o.checkSlot(index); err != nil {
		return 0, err
	}
	if err := o.checkSlot(index + 1); err != nil {
		return 0, err
	}
	hi, lo := uint64(o.slots[index]), uint64(o.slots[index+1])
	return int64(hi<<32 | lo), nil
}

func (o *InstanceObject) SetLong(index int, v int64) error {
	if err := o.checkSlot(index); err != nil {
		return err
	}
	if err := o.checkSlot(index + 1); err != nil {
		return err
	}
	u := uint64(v)
	o.slots[index] = uint32(u >> 32)
	o.slots[index+1] = uint32(u)
	return nil
}

func (o *InstanceObject) GetDouble(index int) (float64, error) {
	bits, err := o.GetLong(index)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(bits)), nil
}

func (o *InstanceObject) SetDouble(index int, v float64) error {
	return o.SetLong(index, int64(math.Float64bits(v)))
}

// GetRef/SetRef store a heap offset in a single slot; -1 encodes null.
func (o *InstanceObject) GetRef(index int) (Reference[int], error) {
	if err := o.checkSlot(index); err != nil {
		return Null[int](), err
	}
	offset := int32(o.slots[index])
	if offset < 0 {
		return Null[int](), nil
	}
	return Of(int(offset)), nil
}

func (o *InstanceObject) SetRef(index int, ref Reference[int]) error {
	if err := o.checkSlot(index); err != nil {
		return err
	}
	offset, ok := ref.Get()
	if !ok {
		o.slots[index] = ^uint32(0) // int32(-1)'s bit pattern
		return nil
	}
	o.slots[index] = uint32(int32(offset))
	return nil
}

// ReferenceArrayObject is a heap-allocated array of object references.
type ReferenceArrayObject struct {
	Offset       int
	ArrayClass   *classfile.ClassFile // owning class, e.g. the synthetic [L<elem>; class
	ElementClass *classfile.ClassFile
	elements     []Reference[int]
}

func (*ReferenceArrayObject) isHeapEntry() {}

func newReferenceArrayObject(offset int, arrayClass, elementClass *classfile.ClassFile, length int) *ReferenceArrayObject {
	return &ReferenceArrayObject{Offset: offset, ArrayClass: arrayClass, ElementClass: elementClass, elements: make([]Reference[int], length)}
}

func (a *ReferenceArrayObject) Length() int { return len(a.elements) }

func (a *ReferenceArrayObject) checkIndex(index int) error {
	if index < 0 || index >= len(a.elements) {
		return jvmerrors.New(jvmerrors.ArrayIndexOutOfBoundsException, "index %d out of bounds for length %d", index, len(a.elements))
	}
	return nil
}

func (a *ReferenceArrayObject) Get(index int) (Reference[int], error) {
	if err := a.checkIndex(index); err != nil {
		return Null[int](), err
	}
	return a.elements[index], nil
}

func (a *ReferenceArrayObject) Set(index int, v Reference[int]) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	a.elements[index] = v
	return nil
}

// TypeArrayObject is a heap-allocated primitive array, stored as 32-bit
// slots (long/double elements span two slots).
type TypeArrayObject struct {
	Offset int
	Type   ArrayType
	length int
	slots  []uint32
}

func (*TypeArrayObject) isHeapEntry() {}

// slotsPerElement reports slot width for this array's element type.
func (t ArrayType) slotsPerElement() int {
	if t == TypeLong || t == TypeDouble {
		return 2
	}
	return 1
}

func newTypeArrayObject(offset int, arrayType ArrayType, length int) *TypeArrayObject {
	return &TypeArrayObject{Offset: offset, Type: arrayType, length: length, slots: make([]uint32, length*arrayType.slotsPerElement())}
}

func (a *TypeArrayObject) Length() int { return a.length }

func (a *TypeArrayObject) checkIndex(index int) error {
	if index < 0 || index >= a.length {
		return jvmerrors.New(jvmerrors.ArrayIndexOutOfBoundsException, "index %d out of bounds for length %d", index, a.length)
	}
	return nil
}

func (a *TypeArrayObject) GetInt(index int) (int32, error) {
	if err := a.checkIndex(index); err != nil {
		return 0, err
	}
	return int32(a.slots[index]), nil
}

func (a *TypeArrayObject) SetInt(index int, v int32) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	a.slots[index] = uint32(v)
	return nil
}

func (a *TypeArrayObject) GetFloat(index int) (float32, error) {
	if err := a.checkIndex(index); err != nil {
		return 0, err
	}
	return math.Float32frombits(a.slots[index]), nil
}

func (a *TypeArrayObject) SetFloat(index int, v float32) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	a.slots[index] = math.Float32bits(v)
	return nil
}

func (a *TypeArrayObject) GetLong(index int) (int64, error) {
	if err := a.checkIndex(index); err != nil {
		return 0, err
	}
	base := index * 2
	hi, lo := uint64(a.slots[base]), uint64(a.slots[base+1])
	return int64(hi<<32 | lo), nil
}

func (a *TypeArrayObject) SetLong(index int, v int64) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	base := index * 2
	u := uint64(v)
	a.slots[base] = uint32(u >> 32)
	a.slots[base+1] = uint32(u)
	return nil
}

func (a *TypeArrayObject) GetDouble(index int) (float64, error) {
	bits, err := a.GetLong(index)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(bits)), nil
}

func (a *TypeArrayObject) SetDouble(index int, v float64) error {
	return a.SetLong(index, int64(math.Float64bits(v)))
}

// GetByte/SetByte back BALOAD/BASTORE for both byte and boolean arrays;
// there is no separate boolean accessor.
func (a *TypeArrayObject) GetByte(index int) (int8, error) {
	v, err := a.GetInt(index)
	return int8(v), err
}

func (a *TypeArrayObject) SetByte(index int, v int8) error {
	return a.SetInt(index, int32(v))
}

func (a *TypeArrayObject) GetShort(index int) (int16, error) {
	v, err := a.GetInt(index)
	return int16(v), err
}

func (a *TypeArrayObject) SetShort(index int, v int16) error {
	return a.SetInt(index, int32(v))
}

func (a *TypeArrayObject) GetChar(index int) (uint16, error) {
	v, err := a.GetInt(index)
	return uint16(v), err
}

func (a *TypeArrayObject) SetChar(index int, v uint16) error {
	return a.SetInt(index, int32(v))
}
