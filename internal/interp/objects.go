package interp

import (
	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/descriptor"
	"github.com/daimatz/gojvm/internal/frame"
	"github.com/daimatz/gojvm/internal/heap"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// execNew handles NEW: resolve the operand's class, reject abstract classes
// and interfaces (JVMS §6.5 new), and allocate a zero-initialized instance.
func execNew(fs *frameState, ctx *Context) error {
	f := fs.frame
	index := f.ReadU16()
	name, err := ctx.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	class, err := ctx.Loader.Resolve(name)
	if err != nil {
		return err
	}
	if class.IsInterface() || class.IsAbstract() {
		return throwClass("java/lang/InstantiationError")
	}
	_, totalSlots := class.FieldSlotLayout()
	offset := ctx.Heap.AllocInstance(class, totalSlots)
	return f.PushRef(offset, false)
}

func arrayTypeFromAtype(atype uint8) (heap.ArrayType, error) {
	switch atype {
	case atypeBoolean:
		return heap.TypeBoolean, nil
	case atypeChar:
		return heap.TypeChar, nil
	case atypeFloat:
		return heap.TypeFloat, nil
	case atypeDouble:
		return heap.TypeDouble, nil
	case atypeByte:
		return heap.TypeByte, nil
	case atypeShort:
		return heap.TypeShort, nil
	case atypeInt:
		return heap.TypeInt, nil
	case atypeLong:
		return heap.TypeLong, nil
	default:
		return 0, jvmerrors.New(jvmerrors.InternalError, "NEWARRAY: unknown atype %d", atype)
	}
}

// execNewArray handles NEWARRAY: allocate a primitive array of the popped
// length, rejecting a negative length.
func execNewArray(fs *frameState, ctx *Context) error {
	f := fs.frame
	atype := f.ReadU8()
	length, err := f.PopInt()
	if err != nil {
		return err
	}
	if length < 0 {
		return throwClass("java/lang/NegativeArraySizeException")
	}
	at, err := arrayTypeFromAtype(atype)
	if err != nil {
		return err
	}
	offset := ctx.Heap.AllocTypeArray(at, int(length))
	return f.PushRef(offset, false)
}

// execAnewArray handles ANEWARRAY: resolve the element class, synthesize the
// array's own class distinct from it, and allocate a reference array.
func execAnewArray(fs *frameState, ctx *Context) error {
	f := fs.frame
	index := f.ReadU16()
	elementName, err := ctx.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	elementClass, err := ctx.Loader.Resolve(elementName)
	if err != nil {
		return err
	}
	length, err := f.PopInt()
	if err != nil {
		return err
	}
	if length < 0 {
		return throwClass("java/lang/NegativeArraySizeException")
	}
	arrayClass := classfile.NewArrayClass(elementName)
	offset := ctx.Heap.AllocRefArray(arrayClass, elementClass, int(length))
	return f.PushRef(offset, false)
}

// execMultianewarray handles MULTIANEWARRAY: allocates `dimensions` nested
// levels of reference arrays whose innermost elements are either a
// primitive TypeArrayObject or, for a depth-1 request, object references.
// Only the outermost array is pushed; lower levels hang off it by
// reference, per JVMS §6.5.
func execMultianewarray(fs *frameState, ctx *Context) error {
	f := fs.frame
	index := f.ReadU16()
	dimensions := int(f.ReadU8())
	className, err := ctx.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	t, err := descriptor.ParseField(className)
	if err != nil {
		// ClassName for an array-typed CONSTANT_Class entry already carries
		// its descriptor form (e.g. "[[I"); plain class names fall back to
		// a single reference-array level of that class.
		t = descriptor.Type{Kind: descriptor.Array, Dimensions: 1, ElementKind: descriptor.Object, ElementName: className}
	}

	counts := make([]int32, dimensions)
	for i := dimensions - 1; i >= 0; i-- {
		v, err := f.PopInt()
		if err != nil {
			return err
		}
		if v < 0 {
			return throwClass("java/lang/NegativeArraySizeException")
		}
		counts[i] = v
	}

	offset, err := allocMultiArray(ctx, t, counts)
	if err != nil {
		return err
	}
	return f.PushRef(offset, false)
}

// allocMultiArray allocates one level of MULTIANEWARRAY's nesting, recursing
// for each remaining dimension. t.Dimensions still counts the levels not yet
// allocated by this call.
func allocMultiArray(ctx *Context, t descriptor.Type, counts []int32) (int, error) {
	length := int(counts[0])

	// Last requested dimension: allocate the leaf level.
	if len(counts) == 1 {
		if t.Dimensions > 1 {
			// Leaf level still holds arrays (unpopulated, per JVMS §6.5's
			// "only the counts given are initialized" rule) rather than a
			// concrete element type; a synthetic array class stands in.
			arrayClass := syntheticArrayClass(leafElementDescriptor(t))
			return ctx.Heap.AllocRefArray(arrayClass, arrayClass, length), nil
		}
		if t.ElementKind == descriptor.Object {
			elementClass, err := ctx.Loader.Resolve(t.ElementName)
			if err != nil {
				return 0, err
			}
			arrayClass := classfile.NewArrayClass(t.ElementName)
			return ctx.Heap.AllocRefArray(arrayClass, elementClass, length), nil
		}
		at, err := primitiveArrayType(t.ElementKind)
		if err != nil {
			return 0, err
		}
		return ctx.Heap.AllocTypeArray(at, length), nil
	}

	arrayClass := syntheticArrayClass(leafElementDescriptor(t))
	outer := ctx.Heap.AllocRefArray(arrayClass, arrayClass, length)
	arr, ok := ctx.Heap.GetRefArray(outer).Get()
	if !ok {
		return 0, jvmerrors.New(jvmerrors.InternalError, "multianewarray: freshly allocated array missing")
	}
	childT := t
	childT.Dimensions--
	for i := 0; i < length; i++ {
		childOffset, err := allocMultiArray(ctx, childT, counts[1:])
		if err != nil {
			return 0, err
		}
		if err := arr.Set(i, heap.Of(childOffset)); err != nil {
			return 0, err
		}
	}
	return outer, nil
}

// leafElementDescriptor names the synthetic class standing in for an
// intermediate MULTIANEWARRAY level, whose elements are themselves arrays.
func leafElementDescriptor(t descriptor.Type) string {
	prefix := ""
	for i := 1; i < t.Dimensions; i++ {
		prefix += "["
	}
	if t.ElementKind == descriptor.Object {
		return prefix + "L" + t.ElementName + ";"
	}
	return prefix + primitiveTag(t.ElementKind)
}

// syntheticArrayClass builds a minimal ClassFile named by its own array
// descriptor (e.g. "[[I"), for intermediate MULTIANEWARRAY levels where
// there is no single resolvable element class to defer to.
func syntheticArrayClass(descriptorName string) *classfile.ClassFile {
	return &classfile.ClassFile{
		Name:           "[" + descriptorName,
		SuperClassName: "java/lang/Object",
	}
}

func primitiveTag(k descriptor.Kind) string {
	switch k {
	case descriptor.Boolean:
		return "Z"
	case descriptor.Char:
		return "C"
	case descriptor.Float:
		return "F"
	case descriptor.Double:
		return "D"
	case descriptor.Byte:
		return "B"
	case descriptor.Short:
		return "S"
	case descriptor.Int:
		return "I"
	case descriptor.Long:
		return "J"
	default:
		return "?"
	}
}

func primitiveArrayType(k descriptor.Kind) (heap.ArrayType, error) {
	switch k {
	case descriptor.Boolean:
		return heap.TypeBoolean, nil
	case descriptor.Char:
		return heap.TypeChar, nil
	case descriptor.Float:
		return heap.TypeFloat, nil
	case descriptor.Double:
		return heap.TypeDouble, nil
	case descriptor.Byte:
		return heap.TypeByte, nil
	case descriptor.Short:
		return heap.TypeShort, nil
	case descriptor.Int:
		return heap.TypeInt, nil
	case descriptor.Long:
		return heap.TypeLong, nil
	default:
		return 0, jvmerrors.New(jvmerrors.InternalError, "multianewarray: non-primitive element kind %v", k)
	}
}

// execArrayLength handles ARRAYLENGTH over either array kind.
func execArrayLength(fs *frameState, ctx *Context) error {
	f := fs.frame
	offset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return throwClass("java/lang/NullPointerException")
	}
	if ref := ctx.Heap.GetRefArray(offset); !ref.IsNull() {
		arr, _ := ref.Get()
		return f.PushInt(int32(arr.Length()))
	}
	if ref := ctx.Heap.GetTypeArray(offset); !ref.IsNull() {
		arr, _ := ref.Get()
		return f.PushInt(int32(arr.Length()))
	}
	return jvmerrors.New(jvmerrors.InternalError, "ARRAYLENGTH: offset %d is not an array", offset)
}

// execCheckcast handles CHECKCAST: null passes unconditionally; otherwise
// the referent's class must be assignable to the operand's resolved class.
func execCheckcast(fs *frameState, ctx *Context) error {
	f := fs.frame
	index := f.ReadU16()
	targetName, err := ctx.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	offset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return f.PushRef(offset, true)
	}
	ok, err := instanceOf(ctx, offset, targetName)
	if err != nil {
		return err
	}
	if !ok {
		return throwClass("java/lang/ClassCastException")
	}
	return f.PushRef(offset, false)
}

// execInstanceof handles INSTANCEOF: null is never an instance of anything.
func execInstanceof(fs *frameState, ctx *Context) error {
	f := fs.frame
	index := f.ReadU16()
	targetName, err := ctx.Class.ConstantPool.ClassName(index)
	if err != nil {
		return err
	}
	offset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return f.PushInt(0)
	}
	ok, err := instanceOf(ctx, offset, targetName)
	if err != nil {
		return err
	}
	if ok {
		return f.PushInt(1)
	}
	return f.PushInt(0)
}

func instanceOf(ctx *Context, offset int, targetName string) (bool, error) {
	inst, ok := ctx.Heap.GetInstance(offset).Get()
	if !ok {
		// Arrays only satisfy instanceof against their own synthesized class
		// name or java/lang/Object; there is no array covariance modeling
		// beyond that, per spec.md §1's non-goals.
		if ref, ok := ctx.Heap.GetRefArray(offset).Get(); ok {
			return ref.ArrayClass.Name == targetName || targetName == "java/lang/Object", nil
		}
		if _, ok := ctx.Heap.GetTypeArray(offset).Get(); ok {
			return targetName == "java/lang/Object", nil
		}
		return false, jvmerrors.New(jvmerrors.InternalError, "instanceof: offset %d is not a heap entry", offset)
	}
	return isAssignableTo(ctx, inst.Class.Name, targetName)
}

func fieldValueKind(descriptorStr string) (Kind, error) {
	t, err := descriptor.ParseField(descriptorStr)
	if err != nil {
		return 0, err
	}
	switch t.Kind {
	case descriptor.Int, descriptor.Byte, descriptor.Short, descriptor.Char, descriptor.Boolean:
		return KindInt, nil
	case descriptor.Long:
		return KindLong, nil
	case descriptor.Float:
		return KindFloat, nil
	case descriptor.Double:
		return KindDouble, nil
	default:
		return KindRef, nil
	}
}

func popValueOfKind(f *frame.Frame, k Kind) (Value, error) {
	switch k {
	case KindInt:
		v, err := f.PopInt()
		return IntValue(v), err
	case KindLong:
		v, err := f.PopLong()
		return LongValue(v), err
	case KindFloat:
		v, err := f.PopFloat()
		return FloatValue(v), err
	case KindDouble:
		v, err := f.PopDouble()
		return DoubleValue(v), err
	default:
		offset, isNull, err := f.PopRef()
		if isNull {
			return NullValue(), err
		}
		return RefValue(offset), err
	}
}

func pushValue(f *frame.Frame, v Value) error {
	switch v.Kind {
	case KindInt:
		return f.PushInt(v.Int)
	case KindLong:
		return f.PushLong(v.Long)
	case KindFloat:
		return f.PushFloat(v.Float)
	case KindDouble:
		return f.PushDouble(v.Double)
	default:
		return f.PushRef(v.RefOffset, v.RefIsNull)
	}
}

// execGetstatic/execPutstatic/execGetfield/execPutfield resolve the operand
// FieldRef via ctx.Fields and then read/write either the FieldResolver's
// static storage or the owning InstanceObject's slot directly.
func execGetstatic(fs *frameState, ctx *Context) error {
	f := fs.frame
	ref, err := resolveFieldOperand(f, ctx)
	if err != nil {
		return err
	}
	owner, fieldIndex, _, err := ctx.Fields.ResolveField(ref)
	if err != nil {
		return err
	}
	v, err := ctx.Fields.GetStatic(owner, fieldIndex)
	if err != nil {
		return err
	}
	return pushValue(f, v)
}

func execPutstatic(fs *frameState, ctx *Context) error {
	f := fs.frame
	ref, err := resolveFieldOperand(f, ctx)
	if err != nil {
		return err
	}
	owner, fieldIndex, _, err := ctx.Fields.ResolveField(ref)
	if err != nil {
		return err
	}
	kind, err := fieldValueKind(ref.Descriptor)
	if err != nil {
		return err
	}
	v, err := popValueOfKind(f, kind)
	if err != nil {
		return err
	}
	return ctx.Fields.SetStatic(owner, fieldIndex, v)
}

func execGetfield(fs *frameState, ctx *Context) error {
	f := fs.frame
	ref, err := resolveFieldOperand(f, ctx)
	if err != nil {
		return err
	}
	_, fieldIndex, _, err := ctx.Fields.ResolveField(ref)
	if err != nil {
		return err
	}
	objOffset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return throwClass("java/lang/NullPointerException")
	}
	inst, ok := ctx.Heap.GetInstance(objOffset).Get()
	if !ok {
		return jvmerrors.New(jvmerrors.InternalError, "GETFIELD: offset %d is not an instance", objOffset)
	}
	kind, err := fieldValueKind(ref.Descriptor)
	if err != nil {
		return err
	}
	v, err := getInstanceField(inst, fieldIndex, kind)
	if err != nil {
		return err
	}
	return pushValue(f, v)
}

func execPutfield(fs *frameState, ctx *Context) error {
	f := fs.frame
	ref, err := resolveFieldOperand(f, ctx)
	if err != nil {
		return err
	}
	_, fieldIndex, _, err := ctx.Fields.ResolveField(ref)
	if err != nil {
		return err
	}
	kind, err := fieldValueKind(ref.Descriptor)
	if err != nil {
		return err
	}
	v, err := popValueOfKind(f, kind)
	if err != nil {
		return err
	}
	objOffset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return throwClass("java/lang/NullPointerException")
	}
	inst, ok := ctx.Heap.GetInstance(objOffset).Get()
	if !ok {
		return jvmerrors.New(jvmerrors.InternalError, "PUTFIELD: offset %d is not an instance", objOffset)
	}
	return setInstanceField(inst, fieldIndex, v)
}

func resolveFieldOperand(f *frame.Frame, ctx *Context) (classfile.ResolvedFieldRef, error) {
	index := f.ReadU16()
	return ctx.Class.ConstantPool.ResolveFieldRef(index)
}

func getInstanceField(inst *heap.InstanceObject, index int, kind Kind) (Value, error) {
	switch kind {
	case KindInt:
		v, err := inst.GetInt(index)
		return IntValue(v), err
	case KindLong:
		v, err := inst.GetLong(index)
		return LongValue(v), err
	case KindFloat:
		v, err := inst.GetFloat(index)
		return FloatValue(v), err
	case KindDouble:
		v, err := inst.GetDouble(index)
		return DoubleValue(v), err
	default:
		ref, err := inst.GetRef(index)
		if err != nil {
			return Value{}, err
		}
		offset, ok := ref.Get()
		if !ok {
			return NullValue(), nil
		}
		return RefValue(offset), nil
	}
}

func setInstanceField(inst *heap.InstanceObject, index int, v Value) error {
	switch v.Kind {
	case KindInt:
		return inst.SetInt(index, v.Int)
	case KindLong:
		return inst.SetLong(index, v.Long)
	case KindFloat:
		return inst.SetFloat(index, v.Float)
	case KindDouble:
		return inst.SetDouble(index, v.Double)
	default:
		if v.RefIsNull {
			return inst.SetRef(index, heap.Null[int]())
		}
		return inst.SetRef(index, heap.Of(v.RefOffset))
	}
}

// execInvoke handles INVOKEVIRTUAL/INVOKESPECIAL/INVOKESTATIC/
// INVOKEINTERFACE by resolving the operand's MethodRef and delegating to the
// context's MethodDispatcher, per spec.md §6's collaborator contract. Method
// arguments are popped off the operand stack last parameter first and passed
// to the dispatcher in descriptor-parameter order.
func execInvoke(fs *frameState, ctx *Context, opcode uint8) error {
	f := fs.frame
	index := f.ReadU16()

	var ref classfile.ResolvedMethodRef
	var kind InvokeKind
	var err error
	switch opcode {
	case opInvokevirtual:
		ref, err = ctx.Class.ConstantPool.ResolveMethodRef(index)
		kind = InvokeVirtual
	case opInvokespecial:
		ref, err = ctx.Class.ConstantPool.ResolveMethodRef(index)
		kind = InvokeSpecial
	case opInvokestatic:
		ref, err = ctx.Class.ConstantPool.ResolveMethodRef(index)
		kind = InvokeStatic
	case opInvokeinterface:
		ref, err = ctx.Class.ConstantPool.ResolveInterfaceMethodRef(index)
		kind = InvokeInterface
		f.ReadU8() // count, historical and redundant with the descriptor
		f.ReadU8() // must be zero
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execInvoke: unhandled opcode %#x", opcode)
	}
	if err != nil {
		return err
	}

	sig, err := descriptor.ParseMethod(ref.Descriptor)
	if err != nil {
		return err
	}
	args := make([]Value, len(sig.Parameters))
	for i := len(sig.Parameters) - 1; i >= 0; i-- {
		v, err := popValueOfKind(f, fieldKindOf(sig.Parameters[i]))
		if err != nil {
			return err
		}
		args[i] = v
	}
	if kind != InvokeStatic {
		recvOffset, isNull, err := f.PopRef()
		if err != nil {
			return err
		}
		if isNull {
			return throwClass("java/lang/NullPointerException")
		}
		args = append([]Value{RefValue(recvOffset)}, args...)
	}

	result, err := ctx.Methods.Invoke(ctx, kind, ref, args)
	if err != nil {
		return err
	}
	if result.Threw {
		return throwOffset(result.ExceptionOffset)
	}
	if sig.Return.Kind == descriptor.Void {
		return nil
	}
	return pushValue(f, result.Value)
}

func fieldKindOf(t descriptor.Type) Kind {
	switch t.Kind {
	case descriptor.Int, descriptor.Byte, descriptor.Short, descriptor.Char, descriptor.Boolean:
		return KindInt
	case descriptor.Long:
		return KindLong
	case descriptor.Float:
		return KindFloat
	case descriptor.Double:
		return KindDouble
	default:
		return KindRef
	}
}

// execMonitor handles MONITORENTER/MONITOREXIT by delegating to the
// context's MonitorManager, per spec.md §6.
func execMonitor(fs *frameState, ctx *Context, opcode uint8) error {
	f := fs.frame
	offset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return throwClass("java/lang/NullPointerException")
	}
	if opcode == opMonitorenter {
		return ctx.Monitors.Enter(offset)
	}
	return ctx.Monitors.Exit(offset)
}
