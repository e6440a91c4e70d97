package vm

import (
	"testing"

	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/interp"
)

type fakeResolver struct {
	classes map[string]*classfile.ClassFile
}

func (r *fakeResolver) Resolve(name string) (*classfile.ClassFile, error) {
	cf, ok := r.classes[name]
	if !ok {
		return nil, classNotFound(name)
	}
	return cf, nil
}

type classNotFoundError struct{ name string }

func (e *classNotFoundError) Error() string { return "class not found: " + e.name }

func classNotFound(name string) error { return &classNotFoundError{name: name} }

func TestRunMainExecutesMainAndReturns(t *testing.T) {
	// iconst_2; iconst_3; iadd; pop; return
	code := []byte{0x05, 0x06, 0x60, 0x57, 0xb1}
	main := classfile.Method{
		Name:       "main",
		Descriptor: "([Ljava/lang/String;)V",
		Code: &classfile.CodeBlock{
			MaxStack:  4,
			MaxLocals: 1,
			Code:      code,
		},
	}
	class := &classfile.ClassFile{Name: "Main", Methods: []classfile.Method{main}}
	resolver := &fakeResolver{classes: map[string]*classfile.ClassFile{"Main": class}}

	machine := New(resolver)
	result, err := machine.RunMain("Main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Threw {
		t.Fatalf("unexpected exception at offset %d", result.ExceptionOffset)
	}
}

func TestEnsureInitializedRunsSuperclassChainOnceEach(t *testing.T) {
	superInit := classfile.Method{
		Name:       "<clinit>",
		Descriptor: "()V",
		Code:       &classfile.CodeBlock{MaxStack: 1, MaxLocals: 0, Code: []byte{0xb1}}, // return
	}
	super := &classfile.ClassFile{
		Name:    "Super",
		Fields:  []classfile.Field{{Name: "x", Descriptor: "I", AccessFlags: classfile.AccStatic}},
		Methods: []classfile.Method{superInit},
	}
	sub := &classfile.ClassFile{
		Name:           "Sub",
		SuperClassName: "Super",
	}
	resolver := &fakeResolver{classes: map[string]*classfile.ClassFile{
		"Super": super,
		"Sub":   sub,
	}}
	machine := New(resolver)

	if err := machine.ensureInitialized(sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !machine.initialized["Super"] || !machine.initialized["Sub"] {
		t.Fatal("expected both Super and Sub marked initialized")
	}

	// Idempotent: a second call must not re-run <clinit> or error. Super's
	// <clinit> now holds an unhandled opcode, so a re-run would fail.
	superInit.Code.Code = []byte{0xff}
	if err := machine.ensureInitialized(sub); err != nil {
		t.Fatalf("unexpected error on second init: %v", err)
	}
}

func TestStaticFieldRoundTripThroughFieldResolver(t *testing.T) {
	class := &classfile.ClassFile{
		Name:   "Counter",
		Fields: []classfile.Field{{Name: "count", Descriptor: "I", AccessFlags: classfile.AccStatic}},
	}
	resolver := &fakeResolver{classes: map[string]*classfile.ClassFile{"Counter": class}}
	machine := New(resolver)

	owner, index, isStatic, err := machine.ResolveField(classfile.ResolvedFieldRef{
		ClassName: "Counter", FieldName: "count", Descriptor: "I",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isStatic {
		t.Fatal("expected count to resolve as a static field")
	}

	if err := machine.SetStatic(owner, index, interp.IntValue(42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := machine.GetStatic(owner, index)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != interp.KindInt || got.Int != 42 {
		t.Errorf("got %+v, want Integer(42)", got)
	}
}

func TestMonitorEnterExitRoundTrip(t *testing.T) {
	machine := New(&fakeResolver{classes: map[string]*classfile.ClassFile{}})
	if err := machine.Enter(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := machine.Exit(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
