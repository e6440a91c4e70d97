package interp

import (
	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// raise resolves className through the context's class loader and allocates
// a zero-initialized instance of it on the heap, sized by the class's
// FieldSlotLayout, returning its offset. Used to
// materialize VM-raised exceptions (NullPointerException,
// ArrayIndexOutOfBoundsException, ArithmeticException, ClassCastException)
// as real heap objects, per spec.md §7's "runtime errors are materialized
// as exception references".
func raise(ctx *Context, className string) (int, error) {
	class, err := ctx.Loader.Resolve(className)
	if err != nil {
		return 0, jvmerrors.Wrap(jvmerrors.InternalError, err, "resolving exception class %s", className)
	}
	_, totalSlots := class.FieldSlotLayout()
	offset := ctx.Heap.AllocInstance(class, totalSlots)
	return offset, nil
}

// findHandler searches the code block's exception table for the first entry
// covering pc whose catch_type is assignable from exceptionClassName, per
// spec.md §4.6's ATHROW semantics. A zero CatchType is a catch-all.
func findHandler(ctx *Context, pc uint16, exceptionClassName string) (*classfile.ExceptionHandler, error) {
	for i := range ctx.Code.ExceptionTable {
		h := &ctx.Code.ExceptionTable[i]
		if pc < h.StartPC || pc >= h.EndPC {
			continue
		}
		if h.CatchType == 0 {
			return h, nil
		}
		catchName, err := ctx.Class.ConstantPool.ClassName(h.CatchType)
		if err != nil {
			return nil, err
		}
		ok, err := isAssignableTo(ctx, exceptionClassName, catchName)
		if err != nil {
			return nil, err
		}
		if ok {
			return h, nil
		}
	}
	return nil, nil
}

// isAssignableTo reports whether className names catchName or one of its
// transitive superclasses, resolving the chain via ctx.Loader. Tracks the
// names already visited so a cyclic super chain raises
// ClassCircularityError instead of looping forever, per spec.md §4.7.
func isAssignableTo(ctx *Context, className, catchName string) (bool, error) {
	visited := make(map[string]bool)
	current := className
	for current != "" {
		if current == catchName {
			return true, nil
		}
		if visited[current] {
			return false, jvmerrors.New(jvmerrors.ClassCircularityError, "superclass chain of %s cycles back to %s", className, current)
		}
		visited[current] = true
		class, err := ctx.Loader.Resolve(current)
		if err != nil {
			return false, err
		}
		current = class.SuperClassName
	}
	return false, nil
}
