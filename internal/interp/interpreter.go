package interp

import (
	"github.com/daimatz/gojvm/internal/frame"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// throwSignal is an internal control-flow error: either a heap offset
// already on the operand stack (user ATHROW) or a class name to materialize
// (a VM-raised runtime exception, e.g. NullPointerException). Dispatch
// handlers return this instead of allocating the exception themselves, so
// the main loop owns the handler-search-and-transfer logic uniformly.
type throwSignal struct {
	offset    int
	hasOffset bool
	className string
}

func (t *throwSignal) Error() string { return "thrown exception" }

func throwClass(name string) error { return &throwSignal{className: name} }

func throwOffset(offset int) error { return &throwSignal{offset: offset, hasOffset: true} }

// Execute runs a method's Code against freshly pushed parameters, per
// spec.md §4.6. Parameters are pushed into locals starting at index 0;
// category-2 values occupy two consecutive local slots.
func Execute(ctx *Context, params []Value) (MethodResult, error) {
	f := frame.New(int(ctx.Code.MaxLocals), int(ctx.Code.MaxStack), ctx.Code.Code, ctx.Class)

	localIndex := 0
	for _, p := range params {
		if err := storeParam(f, localIndex, p); err != nil {
			return MethodResult{}, err
		}
		if p.IsCategory2() {
			localIndex += 2
		} else {
			localIndex++
		}
	}

	fs := &frameState{ctx: ctx, frame: f}

	for f.PC < len(f.Code) {
		instructionPC := f.PC
		opcode := f.ReadU8()

		result, done, err := dispatch(fs, opcode)
		if err == nil {
			if done {
				return result, nil
			}
			continue
		}

		signal, isThrow := err.(*throwSignal)
		if !isThrow {
			return MethodResult{}, err
		}

		offset := signal.offset
		if !signal.hasOffset {
			offset, err = raise(ctx, signal.className)
			if err != nil {
				return MethodResult{}, err
			}
		}
		inst := ctx.Heap.GetInstance(offset)
		instPtr, ok := inst.Get()
		if !ok {
			return MethodResult{}, jvmerrors.New(jvmerrors.InternalError, "thrown offset %d is not an instance", offset)
		}
		exceptionClassName := instPtr.Class.Name

		handler, herr := findHandler(ctx, uint16(instructionPC), exceptionClassName)
		if herr != nil {
			return MethodResult{}, herr
		}
		if handler == nil {
			return Thrown(offset), nil
		}
		f.ClearStack(uint32(int32(offset)))
		f.PC = int(handler.HandlerPC)
	}

	// Fell off the end of the method: implicit void return.
	return Returned(Value{Kind: KindVoid}), nil
}

func storeParam(f *frame.Frame, index int, v Value) error {
	switch v.Kind {
	case KindInt:
		return f.SetLocalInt(index, v.Int)
	case KindLong:
		return f.SetLocalLong(index, v.Long)
	case KindFloat:
		return f.SetLocalFloat(index, v.Float)
	case KindDouble:
		return f.SetLocalDouble(index, v.Double)
	case KindRef:
		return f.SetLocalRef(index, v.RefOffset, v.RefIsNull)
	default:
		return jvmerrors.New(jvmerrors.InternalError, "cannot store a void value as a parameter")
	}
}
