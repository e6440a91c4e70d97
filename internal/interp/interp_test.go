package interp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/heap"
)

// fakeLoader resolves a fixed set of class names, mirroring just enough of
// the JDK exception hierarchy for handler-search tests.
type fakeLoader struct {
	classes map[string]*classfile.ClassFile
}

func (l *fakeLoader) Resolve(name string) (*classfile.ClassFile, error) {
	cf, ok := l.classes[name]
	if !ok {
		return nil, jvmNotFound(name)
	}
	return cf, nil
}

func jvmNotFound(name string) error {
	return &notFoundError{name: name}
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "class not found: " + e.name }

func newFakeLoader() *fakeLoader {
	object := &classfile.ClassFile{Name: "java/lang/Object"}
	throwable := &classfile.ClassFile{Name: "java/lang/Throwable", SuperClassName: "java/lang/Object"}
	exception := &classfile.ClassFile{Name: "java/lang/Exception", SuperClassName: "java/lang/Throwable"}
	rte := &classfile.ClassFile{Name: "java/lang/RuntimeException", SuperClassName: "java/lang/Exception"}
	npe := &classfile.ClassFile{Name: "java/lang/NullPointerException", SuperClassName: "java/lang/RuntimeException"}
	aioobe := &classfile.ClassFile{Name: "java/lang/ArrayIndexOutOfBoundsException", SuperClassName: "java/lang/RuntimeException"}
	arith := &classfile.ClassFile{Name: "java/lang/ArithmeticException", SuperClassName: "java/lang/RuntimeException"}
	return &fakeLoader{classes: map[string]*classfile.ClassFile{
		object.Name:    object,
		throwable.Name: throwable,
		exception.Name: exception,
		rte.Name:       rte,
		npe.Name:       npe,
		aioobe.Name:    aioobe,
		arith.Name:     arith,
	}}
}

// constantPoolWithClass builds a minimal ConstantPool containing a single
// Utf8 entry (index 1) and a Class entry (index 2) naming it, for tests that
// need an exception handler's catch_type to resolve to a real class name.
func constantPoolWithClass(t *testing.T, className string) *classfile.ConstantPool {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte(uint8(classfile.TagUtf8))
	binary.Write(&buf, binary.BigEndian, uint16(len(className)))
	buf.WriteString(className)
	buf.WriteByte(uint8(classfile.TagClass))
	binary.Write(&buf, binary.BigEndian, uint16(1))

	pool, err := classfile.ParseConstantPool(&buf, 3)
	if err != nil {
		t.Fatalf("building constant pool: %v", err)
	}
	return pool
}

func newContext(code []byte, handlers []classfile.ExceptionHandler, pool *classfile.ConstantPool, loader ClassResolver) *Context {
	class := &classfile.ClassFile{Name: "Test", ConstantPool: pool}
	return &Context{
		Heap:   heap.New(),
		Loader: loader,
		Class:  class,
		Code: &classfile.CodeBlock{
			MaxStack:       8,
			MaxLocals:      4,
			Code:           code,
			ExceptionTable: handlers,
		},
	}
}

func TestExecuteArithmeticReturnsSum(t *testing.T) {
	code := []byte{opIconst2, opIconst3, opIadd, opIreturn}
	ctx := newContext(code, nil, nil, newFakeLoader())

	result, err := Execute(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Threw {
		t.Fatalf("unexpected exception at offset %d", result.ExceptionOffset)
	}
	if result.Value.Kind != KindInt || result.Value.Int != 5 {
		t.Errorf("got %+v, want Integer(5)", result.Value)
	}
}

func TestExecuteArrayStoreOutOfBoundsUncaught(t *testing.T) {
	// newarray int[3]; iconst_5; iconst_1; iastore (store at out-of-bounds index 5)
	code := []byte{
		opBipush, 3,
		opNewarray, atypeInt,
		opIconst5,
		opIconst1,
		opIastore,
		opReturn,
	}
	ctx := newContext(code, nil, nil, newFakeLoader())

	result, err := Execute(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Threw {
		t.Fatal("expected an uncaught ArrayIndexOutOfBoundsException")
	}
	inst, ok := ctx.Heap.GetInstance(result.ExceptionOffset).Get()
	if !ok {
		t.Fatal("exception offset does not reference a heap instance")
	}
	if inst.Class.Name != "java/lang/ArrayIndexOutOfBoundsException" {
		t.Errorf("got exception class %q, want ArrayIndexOutOfBoundsException", inst.Class.Name)
	}
}

func TestExecuteExceptionHandlerTransfer(t *testing.T) {
	// aconst_null; arraylength (throws NPE at pc=1); ... padding ...; handler at pc=10: areturn
	code := make([]byte, 11)
	code[0] = opAconstNull
	code[1] = opArraylength
	for i := 2; i < 10; i++ {
		code[i] = opNop
	}
	code[10] = opAreturn

	pool := constantPoolWithClass(t, "java/lang/NullPointerException")
	handlers := []classfile.ExceptionHandler{
		{StartPC: 0, EndPC: 4, HandlerPC: 10, CatchType: 2},
	}
	ctx := newContext(code, handlers, pool, newFakeLoader())

	result, err := Execute(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Threw {
		t.Fatalf("expected the handler to catch the exception, got uncaught at offset %d", result.ExceptionOffset)
	}
	if result.Value.Kind != KindRef || result.Value.RefIsNull {
		t.Fatalf("expected ARETURN of the exception reference, got %+v", result.Value)
	}
	inst, ok := ctx.Heap.GetInstance(result.Value.RefOffset).Get()
	if !ok || inst.Class.Name != "java/lang/NullPointerException" {
		t.Errorf("handler returned wrong object: ok=%v", ok)
	}
}
