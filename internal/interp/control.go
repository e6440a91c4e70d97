package interp

import (
	"github.com/daimatz/gojvm/internal/frame"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// execBranch handles the IF* family and GOTO/GOTO_W/JSR/JSR_W/RET. Offsets
// are relative to the instruction's own opcode byte (instructionPC), per
// JVMS §6.5.
func execBranch(fs *frameState, opcode uint8, instructionPC int) error {
	f := fs.frame
	switch opcode {
	case opIfeq, opIfne, opIflt, opIfge, opIfgt, opIfle:
		v, err := f.PopInt()
		if err != nil {
			return err
		}
		return branchIf(f, instructionPC, unaryCond(opcode, v))
	case opIfIcmpeq, opIfIcmpne, opIfIcmplt, opIfIcmpge, opIfIcmpgt, opIfIcmple:
		b, err := f.PopInt()
		if err != nil {
			return err
		}
		a, err := f.PopInt()
		if err != nil {
			return err
		}
		return branchIf(f, instructionPC, icmpCond(opcode, a, b))
	case opIfAcmpeq, opIfAcmpne:
		bOff, bNull, err := f.PopRef()
		if err != nil {
			return err
		}
		aOff, aNull, err := f.PopRef()
		if err != nil {
			return err
		}
		eq := (aNull && bNull) || (!aNull && !bNull && aOff == bOff)
		if opcode == opIfAcmpne {
			eq = !eq
		}
		return branchIf(f, instructionPC, eq)
	case opIfnull, opIfnonnull:
		_, isNull, err := f.PopRef()
		if err != nil {
			return err
		}
		cond := isNull
		if opcode == opIfnonnull {
			cond = !isNull
		}
		return branchIf(f, instructionPC, cond)
	case opGoto:
		offset := int(f.ReadI16())
		f.PC = instructionPC + offset
		return nil
	case opGotoW:
		offset := int(f.ReadI32())
		f.PC = instructionPC + offset
		return nil
	case opJsr:
		offset := int(f.ReadI16())
		return jumpSubroutine(f, instructionPC, offset)
	case opJsrW:
		offset := int(f.ReadI32())
		return jumpSubroutine(f, instructionPC, offset)
	case opRet:
		index := int(f.ReadU8())
		return ret(f, index)
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execBranch: unhandled opcode %#x", opcode)
	}
}

func jumpSubroutine(f *frame.Frame, instructionPC, offset int) error {
	if err := f.PushInt(int32(f.PC)); err != nil {
		return err
	}
	f.PC = instructionPC + offset
	return nil
}

func ret(f *frame.Frame, index int) error {
	addr, err := f.GetLocalInt(index)
	if err != nil {
		return err
	}
	f.PC = int(addr)
	return nil
}

func branchIf(f *frame.Frame, instructionPC int, cond bool) error {
	offset := int(f.ReadI16())
	if cond {
		f.PC = instructionPC + offset
	}
	return nil
}

func unaryCond(opcode uint8, v int32) bool {
	switch opcode {
	case opIfeq:
		return v == 0
	case opIfne:
		return v != 0
	case opIflt:
		return v < 0
	case opIfge:
		return v >= 0
	case opIfgt:
		return v > 0
	case opIfle:
		return v <= 0
	}
	return false
}

func icmpCond(opcode uint8, a, b int32) bool {
	switch opcode {
	case opIfIcmpeq:
		return a == b
	case opIfIcmpne:
		return a != b
	case opIfIcmplt:
		return a < b
	case opIfIcmpge:
		return a >= b
	case opIfIcmpgt:
		return a > b
	case opIfIcmple:
		return a <= b
	}
	return false
}

// execTableSwitch decodes TABLESWITCH: default offset, low, high, then
// (high-low+1) jump offsets, padded so the first operand byte starts at a
// multiple of 4 relative to the start of the method's bytecode, per
// JVMS §6.5.
func execTableSwitch(fs *frameState, instructionPC int) error {
	f := fs.frame
	index, err := f.PopInt()
	if err != nil {
		return err
	}
	alignSwitchPadding(f, instructionPC)
	defaultOffset := f.ReadI32()
	low := f.ReadI32()
	high := f.ReadI32()
	if index < low || index > high {
		f.PC = instructionPC + int(defaultOffset)
		return nil
	}
	skip := int(index-low) * 4
	f.PC += skip
	offset := f.ReadI32()
	f.PC = instructionPC + int(offset)
	return nil
}

// execLookupSwitch decodes LOOKUPSWITCH: default offset, npairs, then
// npairs (match, offset) pairs in ascending match order, per JVMS §6.5.
func execLookupSwitch(fs *frameState, instructionPC int) error {
	f := fs.frame
	key, err := f.PopInt()
	if err != nil {
		return err
	}
	alignSwitchPadding(f, instructionPC)
	defaultOffset := f.ReadI32()
	npairs := f.ReadI32()
	for i := int32(0); i < npairs; i++ {
		match := f.ReadI32()
		offset := f.ReadI32()
		if match == key {
			f.PC = instructionPC + int(offset)
			return nil
		}
	}
	f.PC = instructionPC + int(defaultOffset)
	return nil
}

func alignSwitchPadding(f *frame.Frame, instructionPC int) {
	for f.PC%4 != 0 {
		f.ReadU8()
	}
}

// execReturn handles {I,L,F,D,A}RETURN and RETURN, producing the
// MethodResult that unwinds Execute's loop.
func execReturn(fs *frameState, opcode uint8) (MethodResult, error) {
	f := fs.frame
	switch opcode {
	case opIreturn:
		v, err := f.PopInt()
		if err != nil {
			return MethodResult{}, err
		}
		return Returned(IntValue(v)), nil
	case opLreturn:
		v, err := f.PopLong()
		if err != nil {
			return MethodResult{}, err
		}
		return Returned(LongValue(v)), nil
	case opFreturn:
		v, err := f.PopFloat()
		if err != nil {
			return MethodResult{}, err
		}
		return Returned(FloatValue(v)), nil
	case opDreturn:
		v, err := f.PopDouble()
		if err != nil {
			return MethodResult{}, err
		}
		return Returned(DoubleValue(v)), nil
	case opAreturn:
		offset, isNull, err := f.PopRef()
		if err != nil {
			return MethodResult{}, err
		}
		if isNull {
			return Returned(NullValue()), nil
		}
		return Returned(RefValue(offset)), nil
	case opReturn:
		return Returned(Value{Kind: KindVoid}), nil
	default:
		return MethodResult{}, jvmerrors.New(jvmerrors.InternalError, "execReturn: unhandled opcode %#x", opcode)
	}
}

// execWide handles the WIDE modifier: the next opcode's index operand (and,
// for IINC, its constant) is read as 16 bits instead of 8, per JVMS §6.5.
func execWide(fs *frameState) error {
	f := fs.frame
	modified := f.ReadU8()
	index := int(f.ReadU16())
	switch modified {
	case opIload:
		return loadInt(f, index)
	case opLload:
		return loadLong(f, index)
	case opFload:
		return loadFloat(f, index)
	case opDload:
		return loadDouble(f, index)
	case opAload:
		return loadRef(f, index)
	case opIstore:
		return storeInt(f, index)
	case opLstore:
		return storeLong(f, index)
	case opFstore:
		return storeFloat(f, index)
	case opDstore:
		return storeDouble(f, index)
	case opAstore:
		return storeRef(f, index)
	case opRet:
		return ret(f, index)
	case opIinc:
		delta := int32(f.ReadI16())
		v, err := f.GetLocalInt(index)
		if err != nil {
			return err
		}
		return f.SetLocalInt(index, v+delta)
	default:
		return jvmerrors.New(jvmerrors.InternalError, "execWide: unhandled modified opcode %#x", modified)
	}
}
