package interp

import (
	"github.com/daimatz/gojvm/internal/frame"
	"github.com/daimatz/gojvm/internal/heap"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

func execConstants(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opNop:
		return nil
	case opAconstNull:
		return f.PushRef(0, true)
	case opIconstM1:
		return f.PushInt(-1)
	case opIconst0, opIconst1, opIconst2, opIconst3, opIconst4, opIconst5:
		return f.PushInt(int32(opcode - opIconst0))
	case opLconst0, opLconst1:
		return f.PushLong(int64(opcode - opLconst0))
	case opFconst0, opFconst1, opFconst2:
		return f.PushFloat(float32(opcode - opFconst0))
	case opDconst0, opDconst1:
		return f.PushDouble(float64(opcode - opDconst0))
	case opBipush:
		return f.PushInt(int32(f.ReadI8()))
	case opSipush:
		return f.PushInt(int32(f.ReadI16()))
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execConstants: unhandled opcode %#x", opcode)
	}
}

func execLdc(fs *frameState, ctx *Context, opcode uint8) error {
	f := fs.frame
	var index uint16
	if opcode == opLdc {
		index = uint16(f.ReadU8())
	} else {
		index = f.ReadU16()
	}
	pool := ctx.Class.ConstantPool
	tag, err := pool.TagAt(index)
	if err != nil {
		return err
	}
	if opcode == opLdc2W {
		switch tag {
		case 5: // Long
			v, err := pool.Long(index)
			if err != nil {
				return err
			}
			return f.PushLong(v)
		default: // Double
			v, err := pool.Double(index)
			if err != nil {
				return err
			}
			return f.PushDouble(v)
		}
	}
	switch tag {
	case 3: // Integer
		v, err := pool.Integer(index)
		if err != nil {
			return err
		}
		return f.PushInt(v)
	case 4: // Float
		v, err := pool.Float(index)
		if err != nil {
			return err
		}
		return f.PushFloat(v)
	case 8: // String
		s, err := pool.StringValue(index)
		if err != nil {
			return err
		}
		return pushInternedString(fs, ctx, s)
	case 7: // Class
		if _, err := pool.ClassName(index); err != nil {
			return err
		}
		// Class literals are out of scope (no java.lang.Class object model
		// beyond what spec.md §3 defines); push null rather than fail, since
		// carrying it further needs native-method bridging explicitly
		// excluded by spec.md §1.
		return f.PushRef(0, true)
	default:
		return jvmerrors.New(jvmerrors.InternalError, "LDC: unsupported constant tag %d", tag)
	}
}

// pushInternedString allocates a zero-field instance standing in for the
// string value. The core has no java.lang.String layout (descriptor parsing
// and native bridging are out of scope per spec.md §1); the text itself
// remains recoverable from the constant pool entry that produced it.
func pushInternedString(fs *frameState, ctx *Context, _ string) error {
	class, err := ctx.Loader.Resolve("java/lang/String")
	if err != nil {
		return err
	}
	offset := ctx.Heap.AllocInstance(class, 0)
	return fs.frame.PushRef(offset, false)
}

func execLoads(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opIload:
		return loadInt(f, int(f.ReadU8()))
	case opIload0, opIload1, opIload2, opIload3:
		return loadInt(f, int(opcode-opIload0))
	case opLload:
		return loadLong(f, int(f.ReadU8()))
	case opLload0, opLload1, opLload2, opLload3:
		return loadLong(f, int(opcode-opLload0))
	case opFload:
		return loadFloat(f, int(f.ReadU8()))
	case opFload0, opFload1, opFload2, opFload3:
		return loadFloat(f, int(opcode-opFload0))
	case opDload:
		return loadDouble(f, int(f.ReadU8()))
	case opDload0, opDload1, opDload2, opDload3:
		return loadDouble(f, int(opcode-opDload0))
	case opAload:
		return loadRef(f, int(f.ReadU8()))
	case opAload0, opAload1, opAload2, opAload3:
		return loadRef(f, int(opcode-opAload0))
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execLoads: unhandled opcode %#x", opcode)
	}
}

func loadInt(f *frame.Frame, index int) error {
	v, err := f.GetLocalInt(index)
	if err != nil {
		return err
	}
	return f.PushInt(v)
}

func loadLong(f *frame.Frame, index int) error {
	v, err := f.GetLocalLong(index)
	if err != nil {
		return err
	}
	return f.PushLong(v)
}

func loadFloat(f *frame.Frame, index int) error {
	v, err := f.GetLocalFloat(index)
	if err != nil {
		return err
	}
	return f.PushFloat(v)
}

func loadDouble(f *frame.Frame, index int) error {
	v, err := f.GetLocalDouble(index)
	if err != nil {
		return err
	}
	return f.PushDouble(v)
}

func loadRef(f *frame.Frame, index int) error {
	offset, isNull, err := f.GetLocalRef(index)
	if err != nil {
		return err
	}
	return f.PushRef(offset, isNull)
}

func execStores(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opIstore:
		return storeInt(f, int(f.ReadU8()))
	case opIstore0, opIstore1, opIstore2, opIstore3:
		return storeInt(f, int(opcode-opIstore0))
	case opLstore:
		return storeLong(f, int(f.ReadU8()))
	case opLstore0, opLstore1, opLstore2, opLstore3:
		return storeLong(f, int(opcode-opLstore0))
	case opFstore:
		return storeFloat(f, int(f.ReadU8()))
	case opFstore0, opFstore1, opFstore2, opFstore3:
		return storeFloat(f, int(opcode-opFstore0))
	case opDstore:
		return storeDouble(f, int(f.ReadU8()))
	case opDstore0, opDstore1, opDstore2, opDstore3:
		return storeDouble(f, int(opcode-opDstore0))
	case opAstore:
		return storeRef(f, int(f.ReadU8()))
	case opAstore0, opAstore1, opAstore2, opAstore3:
		return storeRef(f, int(opcode-opAstore0))
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execStores: unhandled opcode %#x", opcode)
	}
}

func storeInt(f *frame.Frame, index int) error {
	v, err := f.PopInt()
	if err != nil {
		return err
	}
	return f.SetLocalInt(index, v)
}

func storeLong(f *frame.Frame, index int) error {
	v, err := f.PopLong()
	if err != nil {
		return err
	}
	return f.SetLocalLong(index, v)
}

func storeFloat(f *frame.Frame, index int) error {
	v, err := f.PopFloat()
	if err != nil {
		return err
	}
	return f.SetLocalFloat(index, v)
}

func storeDouble(f *frame.Frame, index int) error {
	v, err := f.PopDouble()
	if err != nil {
		return err
	}
	return f.SetLocalDouble(index, v)
}

func storeRef(f *frame.Frame, index int) error {
	offset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	return f.SetLocalRef(index, offset, isNull)
}

func execIinc(fs *frameState) error {
	f := fs.frame
	index := int(f.ReadU8())
	delta := int32(f.ReadI8())
	v, err := f.GetLocalInt(index)
	if err != nil {
		return err
	}
	return f.SetLocalInt(index, v+delta)
}

// execArrayLoad handles {I,L,F,D,A,B,C,S}ALOAD: pop index then arrayref,
// push the element. AALOAD reads a ReferenceArrayObject; the rest read a
// TypeArrayObject, per spec.md §4.6.
func execArrayLoad(fs *frameState, ctx *Context, opcode uint8) error {
	f := fs.frame
	index, err := f.PopInt()
	if err != nil {
		return err
	}
	arrOffset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return throwClass("java/lang/NullPointerException")
	}

	if opcode == opAaload {
		ref := ctx.Heap.GetRefArray(arrOffset)
		arr, ok := ref.Get()
		if !ok {
			return jvmerrors.New(jvmerrors.InternalError, "AALOAD: offset %d is not a reference array", arrOffset)
		}
		elem, err := arr.Get(int(index))
		if err != nil {
			return throwBoundsAsException(err)
		}
		eOffset, eOk := elem.Get()
		return f.PushRef(eOffset, !eOk)
	}

	ref := ctx.Heap.GetTypeArray(arrOffset)
	arr, ok := ref.Get()
	if !ok {
		return jvmerrors.New(jvmerrors.InternalError, "array load: offset %d is not a primitive array", arrOffset)
	}
	idx := int(index)
	switch opcode {
	case opIaload:
		v, err := arr.GetInt(idx)
		if err != nil {
			return throwBoundsAsException(err)
		}
		return f.PushInt(v)
	case opLaload:
		v, err := arr.GetLong(idx)
		if err != nil {
			return throwBoundsAsException(err)
		}
		return f.PushLong(v)
	case opFaload:
		v, err := arr.GetFloat(idx)
		if err != nil {
			return throwBoundsAsException(err)
		}
		return f.PushFloat(v)
	case opDaload:
		v, err := arr.GetDouble(idx)
		if err != nil {
			return throwBoundsAsException(err)
		}
		return f.PushDouble(v)
	case opBaload:
		v, err := arr.GetByte(idx)
		if err != nil {
			return throwBoundsAsException(err)
		}
		return f.PushInt(int32(v))
	case opCaload:
		v, err := arr.GetChar(idx)
		if err != nil {
			return throwBoundsAsException(err)
		}
		return f.PushInt(int32(v))
	case opSaload:
		v, err := arr.GetShort(idx)
		if err != nil {
			return throwBoundsAsException(err)
		}
		return f.PushInt(int32(v))
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execArrayLoad: unhandled opcode %#x", opcode)
	}
}

func execArrayStore(fs *frameState, ctx *Context, opcode uint8) error {
	f := fs.frame

	if opcode == opAastore {
		val, isNull, err := f.PopRef()
		if err != nil {
			return err
		}
		index, err := f.PopInt()
		if err != nil {
			return err
		}
		arrOffset, arrIsNull, err := f.PopRef()
		if err != nil {
			return err
		}
		if arrIsNull {
			return throwClass("java/lang/NullPointerException")
		}
		ref := ctx.Heap.GetRefArray(arrOffset)
		arr, ok := ref.Get()
		if !ok {
			return jvmerrors.New(jvmerrors.InternalError, "AASTORE: offset %d is not a reference array", arrOffset)
		}
		elem := heap.Null[int]()
		if !isNull {
			elem = heap.Of(val)
		}
		return throwBoundsAsException(arr.Set(int(index), elem))
	}

	switch opcode {
	case opLastore:
		v, err := f.PopLong()
		if err != nil {
			return err
		}
		return storeTypeArrayElem(f, ctx, func(arr *heap.TypeArrayObject, idx int) error { return arr.SetLong(idx, v) })
	case opDastore:
		v, err := f.PopDouble()
		if err != nil {
			return err
		}
		return storeTypeArrayElem(f, ctx, func(arr *heap.TypeArrayObject, idx int) error { return arr.SetDouble(idx, v) })
	case opFastore:
		v, err := f.PopFloat()
		if err != nil {
			return err
		}
		return storeTypeArrayElem(f, ctx, func(arr *heap.TypeArrayObject, idx int) error { return arr.SetFloat(idx, v) })
	case opIastore:
		v, err := f.PopInt()
		if err != nil {
			return err
		}
		return storeTypeArrayElem(f, ctx, func(arr *heap.TypeArrayObject, idx int) error { return arr.SetInt(idx, v) })
	case opBastore:
		v, err := f.PopInt()
		if err != nil {
			return err
		}
		return storeTypeArrayElem(f, ctx, func(arr *heap.TypeArrayObject, idx int) error {
			if arr.Type == heap.TypeBoolean {
				return arr.SetByte(idx, int8(v&1))
			}
			return arr.SetByte(idx, int8(v))
		})
	case opCastore:
		v, err := f.PopInt()
		if err != nil {
			return err
		}
		return storeTypeArrayElem(f, ctx, func(arr *heap.TypeArrayObject, idx int) error { return arr.SetChar(idx, uint16(v)) })
	case opSastore:
		v, err := f.PopInt()
		if err != nil {
			return err
		}
		return storeTypeArrayElem(f, ctx, func(arr *heap.TypeArrayObject, idx int) error { return arr.SetShort(idx, int16(v)) })
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execArrayStore: unhandled opcode %#x", opcode)
	}
}

// storeTypeArrayElem pops the index and array reference (the element value
// itself was already popped by the caller, since its width varies), then
// applies set to the resolved array.
func storeTypeArrayElem(f *frame.Frame, ctx *Context, set func(arr *heap.TypeArrayObject, idx int) error) error {
	index, err := f.PopInt()
	if err != nil {
		return err
	}
	arrOffset, isNull, err := f.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return throwClass("java/lang/NullPointerException")
	}
	ref := ctx.Heap.GetTypeArray(arrOffset)
	arr, ok := ref.Get()
	if !ok {
		return jvmerrors.New(jvmerrors.InternalError, "array store: offset %d is not a primitive array", arrOffset)
	}
	return throwBoundsAsException(set(arr, int(index)))
}

// throwBoundsAsException converts a nil error through unchanged, and any
// non-nil error (the heap package's ArrayIndexOutOfBoundsException) into a
// throwSignal so the main loop's handler search takes over.
func throwBoundsAsException(err error) error {
	if err == nil {
		return nil
	}
	return throwClass("java/lang/ArrayIndexOutOfBoundsException")
}

func execStackOps(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opPop:
		_, err := f.PopSlotRaw()
		return err
	case opPop2:
		if _, err := f.PopSlotRaw(); err != nil {
			return err
		}
		_, err := f.PopSlotRaw()
		return err
	case opDup:
		top, err := f.Get(0)
		if err != nil {
			return err
		}
		return f.PushSlotRaw(top)
	case opDupX1:
		return dupXN(f, 1, 1)
	case opDupX2:
		return dupXN(f, 1, 2)
	case opDup2:
		return dupXN(f, 2, 0)
	case opDup2X1:
		return dupXN(f, 2, 1)
	case opDup2X2:
		return dupXN(f, 2, 2)
	case opSwap:
		a, err := f.Get(0)
		if err != nil {
			return err
		}
		b, err := f.Get(1)
		if err != nil {
			return err
		}
		if err := f.Set(0, b); err != nil {
			return err
		}
		return f.Set(1, a)
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execStackOps: unhandled opcode %#x", opcode)
	}
}

// dupXN inserts a copy of the top `words` slots below the `depth` slots
// beneath them, covering DUP_X1/DUP_X2 (words=1) and DUP2/DUP2_X1/DUP2_X2
// (words=2) per JVMS §6.5's slot-shuffle description.
func dupXN(f *frame.Frame, words, depth int) error {
	top := make([]uint32, words)
	for i := 0; i < words; i++ {
		v, err := f.Get(i)
		if err != nil {
			return err
		}
		top[i] = v
	}
	below := make([]uint32, depth)
	for i := 0; i < depth; i++ {
		v, err := f.Get(words + i)
		if err != nil {
			return err
		}
		below[i] = v
	}
	for i := 0; i < words+depth; i++ {
		if _, err := f.PopSlotRaw(); err != nil {
			return err
		}
	}
	for i := words - 1; i >= 0; i-- {
		if err := f.PushSlotRaw(top[i]); err != nil {
			return err
		}
	}
	for i := depth - 1; i >= 0; i-- {
		if err := f.PushSlotRaw(below[i]); err != nil {
			return err
		}
	}
	for i := words - 1; i >= 0; i-- {
		if err := f.PushSlotRaw(top[i]); err != nil {
			return err
		}
	}
	return nil
}
