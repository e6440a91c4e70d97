// Package interp implements the stack-based bytecode interpreter: opcode
// dispatch, control flow, and exception unwinding over a StackFrame, Heap,
// and ClassFile. Grounded on original_source/src/code/interpreter/
// instructions.rs (the canonical, superseding interpreter form per
// spec.md §9) and original_source/src/code/interpreter/primitive_ops.rs for
// the arithmetic/bitwise/conversion/comparison families.
package interp

import (
	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/frame"
	"github.com/daimatz/gojvm/internal/heap"
)

// Kind tags a Value crossing a method-call boundary (argument or result).
type Kind int

const (
	KindInt Kind = iota
	KindLong
	KindFloat
	KindDouble
	KindRef
	KindVoid
)

// Value is a typed value at a method-invocation boundary: parameters pushed
// before dispatch, and the MethodResult returned from it. Internally the
// interpreter works in raw Frame slots; Value exists only at these
// boundaries, mirroring the teacher's pkg/vm.Value shape.
type Value struct {
	Kind      Kind
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	RefOffset int
	RefIsNull bool
}

func IntValue(v int32) Value       { return Value{Kind: KindInt, Int: v} }
func LongValue(v int64) Value      { return Value{Kind: KindLong, Long: v} }
func FloatValue(v float32) Value   { return Value{Kind: KindFloat, Float: v} }
func DoubleValue(v float64) Value  { return Value{Kind: KindDouble, Double: v} }
func RefValue(offset int) Value    { return Value{Kind: KindRef, RefOffset: offset} }
func NullValue() Value             { return Value{Kind: KindRef, RefIsNull: true} }

// IsCategory2 reports whether this value occupies two stack/local slots.
func (v Value) IsCategory2() bool { return v.Kind == KindLong || v.Kind == KindDouble }

// MethodResult is the outcome of executing a method, per spec.md §4.6:
// Integer/Long/Float/Double/Reference/Exception.
type MethodResult struct {
	Threw           bool
	Value           Value
	ExceptionOffset int // valid heap offset of the thrown exception instance, when Threw
}

func Returned(v Value) MethodResult { return MethodResult{Value: v} }

func Thrown(exceptionOffset int) MethodResult {
	return MethodResult{Threw: true, ExceptionOffset: exceptionOffset}
}

// ClassResolver looks up a loaded Class by name, loading it on demand. This
// is the ClassLoader side of spec.md §4.7, consumed here as a narrow
// interface to avoid interp depending on the loader package's concrete
// cache/resolver implementations.
type ClassResolver interface {
	Resolve(name string) (*classfile.ClassFile, error)
}

// FieldResolver is spec.md §6's "field/method resolver" collaborator,
// narrowed to fields: given a FieldRef, returns the declaring class and the
// field's declared index (for GETFIELD/PUTFIELD/GETSTATIC/PUTSTATIC).
// Static field storage lives behind the same collaborator rather than in
// the heap, mirroring the teacher's VM-owned staticFields map.
type FieldResolver interface {
	ResolveField(ref classfile.ResolvedFieldRef) (owner *classfile.ClassFile, fieldIndex int, isStatic bool, err error)
	GetStatic(owner *classfile.ClassFile, fieldIndex int) (Value, error)
	SetStatic(owner *classfile.ClassFile, fieldIndex int, v Value) error
}

// MethodDispatcher is spec.md §6's "method dispatcher" collaborator,
// invoked for every INVOKE* opcode.
type MethodDispatcher interface {
	Invoke(ctx *Context, kind InvokeKind, ref classfile.ResolvedMethodRef, args []Value) (MethodResult, error)
}

// InvokeKind distinguishes the four classical INVOKE* opcodes for dispatchers
// that branch on call semantics (virtual/special/static/interface).
type InvokeKind int

const (
	InvokeVirtual InvokeKind = iota
	InvokeSpecial
	InvokeStatic
	InvokeInterface
)

// MonitorManager is spec.md §6's synchronization collaborator for
// MONITORENTER/MONITOREXIT.
type MonitorManager interface {
	Enter(objectOffset int) error
	Exit(objectOffset int) error
}

// Context bundles the heap, class loader, current class, and current code
// block an executing frame needs, per spec.md §4.6. It also carries the
// pluggable collaborators bound at VM construction time.
type Context struct {
	Heap     *heap.Heap
	Loader   ClassResolver
	Fields   FieldResolver
	Methods  MethodDispatcher
	Monitors MonitorManager

	Class *classfile.ClassFile
	Code  *classfile.CodeBlock
}

// frameState is the per-call state threaded through the dispatch loop: the
// active Frame plus its owning context, kept together so opcode handlers
// receive one argument instead of four.
type frameState struct {
	ctx   *Context
	frame *frame.Frame
}
