package interp

import (
	"math"

	"github.com/daimatz/gojvm/internal/frame"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// execArithmetic handles the {I,L,F,D}{ADD,SUB,MUL,DIV,REM,NEG} families.
// Integer division and remainder by zero raise ArithmeticException; float
// and double follow IEEE 754 (producing Inf/NaN rather than trapping), per
// spec.md §4.6.
func execArithmetic(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opIadd:
		return binInt(f, func(a, b int32) (int32, error) { return a + b, nil })
	case opIsub:
		return binInt(f, func(a, b int32) (int32, error) { return a - b, nil })
	case opImul:
		return binInt(f, func(a, b int32) (int32, error) { return a * b, nil })
	case opIdiv:
		return binInt(f, func(a, b int32) (int32, error) {
			if b == 0 {
				return 0, throwClass("java/lang/ArithmeticException")
			}
			return a / b, nil
		})
	case opIrem:
		return binInt(f, func(a, b int32) (int32, error) {
			if b == 0 {
				return 0, throwClass("java/lang/ArithmeticException")
			}
			return a % b, nil
		})
	case opIneg:
		return unInt(f, func(a int32) int32 { return -a })

	case opLadd:
		return binLong(f, func(a, b int64) (int64, error) { return a + b, nil })
	case opLsub:
		return binLong(f, func(a, b int64) (int64, error) { return a - b, nil })
	case opLmul:
		return binLong(f, func(a, b int64) (int64, error) { return a * b, nil })
	case opLdiv:
		return binLong(f, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, throwClass("java/lang/ArithmeticException")
			}
			return a / b, nil
		})
	case opLrem:
		return binLong(f, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, throwClass("java/lang/ArithmeticException")
			}
			return a % b, nil
		})
	case opLneg:
		return unLong(f, func(a int64) int64 { return -a })

	case opFadd:
		return binFloat(f, func(a, b float32) float32 { return a + b })
	case opFsub:
		return binFloat(f, func(a, b float32) float32 { return a - b })
	case opFmul:
		return binFloat(f, func(a, b float32) float32 { return a * b })
	case opFdiv:
		return binFloat(f, func(a, b float32) float32 { return a / b })
	case opFrem:
		return binFloat(f, func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) })
	case opFneg:
		return unFloat(f, func(a float32) float32 { return -a })

	case opDadd:
		return binDouble(f, func(a, b float64) float64 { return a + b })
	case opDsub:
		return binDouble(f, func(a, b float64) float64 { return a - b })
	case opDmul:
		return binDouble(f, func(a, b float64) float64 { return a * b })
	case opDdiv:
		return binDouble(f, func(a, b float64) float64 { return a / b })
	case opDrem:
		return binDouble(f, func(a, b float64) float64 { return math.Mod(a, b) })
	case opDneg:
		return unDouble(f, func(a float64) float64 { return -a })

	default:
		return jvmerrors.New(jvmerrors.InternalError, "execArithmetic: unhandled opcode %#x", opcode)
	}
}

// execBitwise handles {I,L}{AND,OR,XOR,SHL,SHR,USHR}. Shift counts are
// masked to 5 bits for int, 6 bits for long, per JVMS §6.5 (ISHL et al.).
func execBitwise(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opIand:
		return binInt(f, func(a, b int32) (int32, error) { return a & b, nil })
	case opIor:
		return binInt(f, func(a, b int32) (int32, error) { return a | b, nil })
	case opIxor:
		return binInt(f, func(a, b int32) (int32, error) { return a ^ b, nil })
	case opIshl:
		return binInt(f, func(a, b int32) (int32, error) { return a << (uint32(b) & 0x1f), nil })
	case opIshr:
		return binInt(f, func(a, b int32) (int32, error) { return a >> (uint32(b) & 0x1f), nil })
	case opIushr:
		return binInt(f, func(a, b int32) (int32, error) {
			return int32(uint32(a) >> (uint32(b) & 0x1f)), nil
		})

	case opLand:
		return binLong(f, func(a, b int64) (int64, error) { return a & b, nil })
	case opLor:
		return binLong(f, func(a, b int64) (int64, error) { return a | b, nil })
	case opLxor:
		return binLong(f, func(a, b int64) (int64, error) { return a ^ b, nil })
	case opLshl:
		return binLongShift(f, func(a int64, b int32) int64 { return a << (uint32(b) & 0x3f) })
	case opLshr:
		return binLongShift(f, func(a int64, b int32) int64 { return a >> (uint32(b) & 0x3f) })
	case opLushr:
		return binLongShift(f, func(a int64, b int32) int64 { return int64(uint64(a) >> (uint32(b) & 0x3f)) })

	default:
		return jvmerrors.New(jvmerrors.InternalError, "execBitwise: unhandled opcode %#x", opcode)
	}
}

// execConversions handles the widening/narrowing numeric-cast family. Float
// to integral conversions saturate to the target's min/max and map NaN to 0,
// per JVMS §6.5 (f2i, f2l, d2i, d2l and friends).
func execConversions(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opI2l:
		return unIntToLong(f, func(a int32) int64 { return int64(a) })
	case opI2f:
		return unIntToFloat(f, func(a int32) float32 { return float32(a) })
	case opI2d:
		return unIntToDouble(f, func(a int32) float64 { return float64(a) })
	case opI2b:
		return unInt(f, func(a int32) int32 { return int32(int8(a)) })
	case opI2c:
		return unInt(f, func(a int32) int32 { return int32(uint16(a)) })
	case opI2s:
		return unInt(f, func(a int32) int32 { return int32(int16(a)) })

	case opL2i:
		return unLongToInt(f, func(a int64) int32 { return int32(a) })
	case opL2f:
		return unLongToFloat(f, func(a int64) float32 { return float32(a) })
	case opL2d:
		return unLongToDouble(f, func(a int64) float64 { return float64(a) })

	case opF2i:
		return unFloatToInt(f, floatToInt32)
	case opF2l:
		return unFloatToLong(f, floatToInt64)
	case opF2d:
		return unFloatToDouble(f, func(a float32) float64 { return float64(a) })

	case opD2i:
		return unDoubleToInt(f, doubleToInt32)
	case opD2l:
		return unDoubleToLong(f, doubleToInt64)
	case opD2f:
		return unDoubleToFloat(f, func(a float64) float32 { return float32(a) })

	default:
		return jvmerrors.New(jvmerrors.InternalError, "execConversions: unhandled opcode %#x", opcode)
	}
}

func floatToInt32(a float32) int32 {
	if math.IsNaN(float64(a)) {
		return 0
	}
	if a >= math.MaxInt32 {
		return math.MaxInt32
	}
	if a <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(a)
}

func floatToInt64(a float32) int64 {
	if math.IsNaN(float64(a)) {
		return 0
	}
	if a >= math.MaxInt64 {
		return math.MaxInt64
	}
	if a <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(a)
}

func doubleToInt32(a float64) int32 {
	if math.IsNaN(a) {
		return 0
	}
	if a >= math.MaxInt32 {
		return math.MaxInt32
	}
	if a <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(a)
}

func doubleToInt64(a float64) int64 {
	if math.IsNaN(a) {
		return 0
	}
	if a >= math.MaxInt64 {
		return math.MaxInt64
	}
	if a <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(a)
}

// execComparisons handles LCMP, FCMPL/FCMPG, DCMPL/DCMPG, pushing -1/0/1.
// The L/G suffix only changes how a NaN operand is resolved: FCMPG/DCMPG
// produce 1, FCMPL/DCMPL produce -1, per JVMS §6.5.
func execComparisons(fs *frameState, opcode uint8) error {
	f := fs.frame
	switch opcode {
	case opLcmp:
		b, err := f.PopLong()
		if err != nil {
			return err
		}
		a, err := f.PopLong()
		if err != nil {
			return err
		}
		return f.PushInt(cmp3(a, b))
	case opFcmpl, opFcmpg:
		b, err := f.PopFloat()
		if err != nil {
			return err
		}
		a, err := f.PopFloat()
		if err != nil {
			return err
		}
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			if opcode == opFcmpg {
				return f.PushInt(1)
			}
			return f.PushInt(-1)
		}
		return f.PushInt(cmp3(a, b))
	case opDcmpl, opDcmpg:
		b, err := f.PopDouble()
		if err != nil {
			return err
		}
		a, err := f.PopDouble()
		if err != nil {
			return err
		}
		if math.IsNaN(a) || math.IsNaN(b) {
			if opcode == opDcmpg {
				return f.PushInt(1)
			}
			return f.PushInt(-1)
		}
		return f.PushInt(cmp3(a, b))
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execComparisons: unhandled opcode %#x", opcode)
	}
}

type ordered interface {
	~int64 | ~float32 | ~float64
}

func cmp3[T ordered](a, b T) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func binInt(f *frame.Frame, op func(a, b int32) (int32, error)) error {
	b, err := f.PopInt()
	if err != nil {
		return err
	}
	a, err := f.PopInt()
	if err != nil {
		return err
	}
	v, err := op(a, b)
	if err != nil {
		return err
	}
	return f.PushInt(v)
}

func unInt(f *frame.Frame, op func(a int32) int32) error {
	a, err := f.PopInt()
	if err != nil {
		return err
	}
	return f.PushInt(op(a))
}

func binLong(f *frame.Frame, op func(a, b int64) (int64, error)) error {
	b, err := f.PopLong()
	if err != nil {
		return err
	}
	a, err := f.PopLong()
	if err != nil {
		return err
	}
	v, err := op(a, b)
	if err != nil {
		return err
	}
	return f.PushLong(v)
}

func unLong(f *frame.Frame, op func(a int64) int64) error {
	a, err := f.PopLong()
	if err != nil {
		return err
	}
	return f.PushLong(op(a))
}

// binLongShift pops an int shift count then a long value, per JVMS §6.5
// (LSHL/LSHR/LUSHR take an int operand for the shift distance).
func binLongShift(f *frame.Frame, op func(a int64, b int32) int64) error {
	b, err := f.PopInt()
	if err != nil {
		return err
	}
	a, err := f.PopLong()
	if err != nil {
		return err
	}
	return f.PushLong(op(a, b))
}

func binFloat(f *frame.Frame, op func(a, b float32) float32) error {
	b, err := f.PopFloat()
	if err != nil {
		return err
	}
	a, err := f.PopFloat()
	if err != nil {
		return err
	}
	return f.PushFloat(op(a, b))
}

func unFloat(f *frame.Frame, op func(a float32) float32) error {
	a, err := f.PopFloat()
	if err != nil {
		return err
	}
	return f.PushFloat(op(a))
}

func binDouble(f *frame.Frame, op func(a, b float64) float64) error {
	b, err := f.PopDouble()
	if err != nil {
		return err
	}
	a, err := f.PopDouble()
	if err != nil {
		return err
	}
	return f.PushDouble(op(a, b))
}

func unDouble(f *frame.Frame, op func(a float64) float64) error {
	a, err := f.PopDouble()
	if err != nil {
		return err
	}
	return f.PushDouble(op(a))
}

func unIntToLong(f *frame.Frame, op func(int32) int64) error {
	a, err := f.PopInt()
	if err != nil {
		return err
	}
	return f.PushLong(op(a))
}

func unIntToFloat(f *frame.Frame, op func(int32) float32) error {
	a, err := f.PopInt()
	if err != nil {
		return err
	}
	return f.PushFloat(op(a))
}

func unIntToDouble(f *frame.Frame, op func(int32) float64) error {
	a, err := f.PopInt()
	if err != nil {
		return err
	}
	return f.PushDouble(op(a))
}

func unLongToInt(f *frame.Frame, op func(int64) int32) error {
	a, err := f.PopLong()
	if err != nil {
		return err
	}
	return f.PushInt(op(a))
}

func unLongToFloat(f *frame.Frame, op func(int64) float32) error {
	a, err := f.PopLong()
	if err != nil {
		return err
	}
	return f.PushFloat(op(a))
}

func unLongToDouble(f *frame.Frame, op func(int64) float64) error {
	a, err := f.PopLong()
	if err != nil {
		return err
	}
	return f.PushDouble(op(a))
}

func unFloatToInt(f *frame.Frame, op func(float32) int32) error {
	a, err := f.PopFloat()
	if err != nil {
		return err
	}
	return f.PushInt(op(a))
}

func unFloatToLong(f *frame.Frame, op func(float32) int64) error {
	a, err := f.PopFloat()
	if err != nil {
		return err
	}
	return f.PushLong(op(a))
}

func unFloatToDouble(f *frame.Frame, op func(float32) float64) error {
	a, err := f.PopFloat()
	if err != nil {
		return err
	}
	return f.PushDouble(op(a))
}

func unDoubleToInt(f *frame.Frame, op func(float64) int32) error {
	a, err := f.PopDouble()
	if err != nil {
		return err
	}
	return f.PushInt(op(a))
}

func unDoubleToLong(f *frame.Frame, op func(float64) int64) error {
	a, err := f.PopDouble()
	if err != nil {
		return err
	}
	return f.PushLong(op(a))
}

func unDoubleToFloat(f *frame.Frame, op func(float64) float32) error {
	a, err := f.PopDouble()
	if err != nil {
		return err
	}
	return f.PushFloat(op(a))
}
