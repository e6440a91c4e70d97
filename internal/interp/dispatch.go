package interp

import "github.com/daimatz/gojvm/internal/jvmerrors"

// dispatch routes a single decoded opcode to its family handler. It returns
// (result, true, nil) when the instruction ends the method (a RETURN
// variant), (zero, false, nil) to continue the loop, or a non-nil error —
// either a *throwSignal for Execute's handler search, or a hard failure.
func dispatch(fs *frameState, opcode uint8) (MethodResult, bool, error) {
	instructionPC := fs.frame.PC - 1
	ctx := fs.ctx

	switch {
	case opcode <= opLdc2W:
		if opcode == opLdc || opcode == opLdcW || opcode == opLdc2W {
			return MethodResult{}, false, execLdc(fs, ctx, opcode)
		}
		return MethodResult{}, false, execConstants(fs, opcode)

	case opcode >= opIload && opcode <= opAload3:
		return MethodResult{}, false, execLoads(fs, opcode)

	case opcode >= opIaload && opcode <= opSaload:
		return MethodResult{}, false, execArrayLoad(fs, ctx, opcode)

	case opcode >= opIstore && opcode <= opAstore3:
		return MethodResult{}, false, execStores(fs, opcode)

	case opcode >= opIastore && opcode <= opSastore:
		return MethodResult{}, false, execArrayStore(fs, ctx, opcode)

	case opcode >= opPop && opcode <= opSwap:
		return MethodResult{}, false, execStackOps(fs, opcode)

	case opcode >= opIadd && opcode <= opDneg:
		return MethodResult{}, false, execArithmetic(fs, opcode)

	case opcode >= opIshl && opcode <= opLxor:
		return MethodResult{}, false, execBitwise(fs, opcode)

	case opcode == opIinc:
		return MethodResult{}, false, execIinc(fs)

	case opcode >= opI2l && opcode <= opI2s:
		return MethodResult{}, false, execConversions(fs, opcode)

	case opcode >= opLcmp && opcode <= opDcmpg:
		return MethodResult{}, false, execComparisons(fs, opcode)

	case opcode >= opIfeq && opcode <= opIfAcmpne:
		return MethodResult{}, false, execBranch(fs, opcode, instructionPC)
	case opcode == opGoto || opcode == opJsr || opcode == opRet:
		return MethodResult{}, false, execBranch(fs, opcode, instructionPC)
	case opcode == opIfnull || opcode == opIfnonnull:
		return MethodResult{}, false, execBranch(fs, opcode, instructionPC)
	case opcode == opGotoW || opcode == opJsrW:
		return MethodResult{}, false, execBranch(fs, opcode, instructionPC)

	case opcode == opTableswitch:
		return MethodResult{}, false, execTableSwitch(fs, instructionPC)
	case opcode == opLookupswitch:
		return MethodResult{}, false, execLookupSwitch(fs, instructionPC)

	case opcode >= opIreturn && opcode <= opReturn:
		result, err := execReturn(fs, opcode)
		return result, err == nil, err

	case opcode == opGetstatic:
		return MethodResult{}, false, execGetstatic(fs, ctx)
	case opcode == opPutstatic:
		return MethodResult{}, false, execPutstatic(fs, ctx)
	case opcode == opGetfield:
		return MethodResult{}, false, execGetfield(fs, ctx)
	case opcode == opPutfield:
		return MethodResult{}, false, execPutfield(fs, ctx)

	case opcode >= opInvokevirtual && opcode <= opInvokeinterface:
		return MethodResult{}, false, execInvoke(fs, ctx, opcode)
	case opcode == opInvokedynamic:
		return MethodResult{}, false, jvmerrors.New(jvmerrors.UnsupportedOperation, "invokedynamic is not supported")

	case opcode == opNew:
		return MethodResult{}, false, execNew(fs, ctx)
	case opcode == opNewarray:
		return MethodResult{}, false, execNewArray(fs, ctx)
	case opcode == opAnewarray:
		return MethodResult{}, false, execAnewArray(fs, ctx)
	case opcode == opArraylength:
		return MethodResult{}, false, execArrayLength(fs, ctx)
	case opcode == opAthrow:
		return MethodResult{}, false, execAthrow(fs)
	case opcode == opCheckcast:
		return MethodResult{}, false, execCheckcast(fs, ctx)
	case opcode == opInstanceof:
		return MethodResult{}, false, execInstanceof(fs, ctx)
	case opcode == opMonitorenter || opcode == opMonitorexit:
		return MethodResult{}, false, execMonitor(fs, ctx, opcode)

	case opcode == opWide:
		return MethodResult{}, false, execWide(fs)
	case opcode == opMultianewarray:
		return MethodResult{}, false, execMultianewarray(fs, ctx)

	default:
		return MethodResult{}, false, jvmerrors.New(jvmerrors.InternalError, "dispatch: unhandled opcode %#x at pc %d", opcode, instructionPC)
	}
}

// execAthrow pops the exception reference and hands it to Execute's handler
// search via throwOffset; a null reference raises NullPointerException
// instead, per JVMS §6.5 athrow.
func execAthrow(fs *frameState) error {
	offset, isNull, err := fs.frame.PopRef()
	if err != nil {
		return err
	}
	if isNull {
		return throwClass("java/lang/NullPointerException")
	}
	return throwOffset(offset)
}
