// Package vm wires the decoder, heap, and interpreter into a runnable
// virtual machine: it implements interp's collaborator interfaces
// (ClassResolver, FieldResolver, MethodDispatcher, MonitorManager) and
// drives <clinit>/<init>/main invocation. Grounded on the teacher's
// pkg/vm/vm.go (VM struct, staticFields map, executeMethod dispatch), with
// method bodies delegated to internal/interp instead of being inlined here.
package vm

import (
	"io"
	"os"
	"sync"

	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/heap"
	"github.com/daimatz/gojvm/internal/interp"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// maxCallDepth guards against runaway recursion absent a real stack-overflow
// check, mirroring the teacher's maxFrameDepth constant.
const maxCallDepth = 1024

// ClassResolver is the narrow class-loading collaborator the VM is built
// against; *loader.Loader satisfies it.
type ClassResolver interface {
	Resolve(name string) (*classfile.ClassFile, error)
}

// VM bundles the heap, class resolver, and static-field/initialization
// bookkeeping, and implements every interp collaborator interface.
type VM struct {
	Loader ClassResolver
	Heap   *heap.Heap
	Stdout io.Writer

	mu           sync.Mutex
	statics      map[string][]interp.Value // class name -> static storage, ordinal-indexed
	initialized  map[string]bool           // <clinit> already run
	initializing map[string]bool           // <clinit> currently running, for cycle tolerance
	monitors     map[int]*sync.Mutex
	callDepth    int
}

// New returns a VM over the given class resolver, ready to run a main class.
func New(loader ClassResolver) *VM {
	return &VM{
		Loader:       loader,
		Heap:         heap.New(),
		Stdout:       os.Stdout,
		statics:      make(map[string][]interp.Value),
		initialized:  make(map[string]bool),
		initializing: make(map[string]bool),
		monitors:     make(map[int]*sync.Mutex),
	}
}

// Resolve implements interp.ClassResolver.
func (vm *VM) Resolve(name string) (*classfile.ClassFile, error) {
	return vm.Loader.Resolve(name)
}

// RunMain loads mainClassName, runs its static initializer chain, and
// invokes main([Ljava/lang/String;)V with a null argument array.
func (vm *VM) RunMain(mainClassName string) (interp.MethodResult, error) {
	class, err := vm.Loader.Resolve(mainClassName)
	if err != nil {
		return interp.MethodResult{}, err
	}
	if err := vm.ensureInitialized(class); err != nil {
		return interp.MethodResult{}, err
	}
	method := class.FindMethod("main", "([Ljava/lang/String;)V")
	if method == nil {
		return interp.MethodResult{}, jvmerrors.New(jvmerrors.NoSuchMethodError, "no main([Ljava/lang/String;)V in %s", mainClassName)
	}
	return vm.runMethod(class, method, []interp.Value{interp.NullValue()})
}

// runMethod executes method's Code, grounded on the teacher's executeMethod.
// Abstract methods and methods without a Code attribute (native methods)
// return an error instead of being dispatched.
func (vm *VM) runMethod(class *classfile.ClassFile, method *classfile.Method, args []interp.Value) (interp.MethodResult, error) {
	vm.mu.Lock()
	vm.callDepth++
	depth := vm.callDepth
	vm.mu.Unlock()
	defer func() {
		vm.mu.Lock()
		vm.callDepth--
		vm.mu.Unlock()
	}()
	if depth > maxCallDepth {
		return interp.MethodResult{}, jvmerrors.New(jvmerrors.InternalError, "stack overflow: call depth exceeds %d", maxCallDepth)
	}

	if method.AccessFlags.IsAbstract() {
		return interp.MethodResult{}, jvmerrors.New(jvmerrors.InternalError, "AbstractMethodError: %s.%s%s", class.Name, method.Name, method.Descriptor)
	}
	if method.Code == nil {
		return interp.MethodResult{}, jvmerrors.New(jvmerrors.InternalError, "%s.%s%s has no Code attribute (native methods are not bridged)", class.Name, method.Name, method.Descriptor)
	}

	ctx := &interp.Context{
		Heap:     vm.Heap,
		Loader:   vm,
		Fields:   vm,
		Methods:  vm,
		Monitors: vm,
		Class:    class,
		Code:     method.Code,
	}
	return interp.Execute(ctx, args)
}

// ensureInitialized runs class's <clinit>, and its superclass chain's,
// exactly once, on first use: it is called from GetStatic/SetStatic (GETSTATIC/
// PUTSTATIC), from Invoke for INVOKESTATIC, and from RunMain. NEW does not
// trigger it.
func (vm *VM) ensureInitialized(class *classfile.ClassFile) error {
	vm.mu.Lock()
	if vm.initialized[class.Name] || vm.initializing[class.Name] {
		vm.mu.Unlock()
		return nil
	}
	vm.initializing[class.Name] = true
	if _, ok := vm.statics[class.Name]; !ok {
		vm.statics[class.Name] = make([]interp.Value, class.StaticFieldCount())
	}
	vm.mu.Unlock()

	defer func() {
		vm.mu.Lock()
		delete(vm.initializing, class.Name)
		vm.initialized[class.Name] = true
		vm.mu.Unlock()
	}()

	if class.SuperClassName != "" {
		super, err := vm.Loader.Resolve(class.SuperClassName)
		if err != nil {
			return err
		}
		if err := vm.ensureInitialized(super); err != nil {
			return err
		}
	}

	clinit := class.FindMethod("<clinit>", "()V")
	if clinit == nil || clinit.Code == nil {
		return nil
	}
	_, err := vm.runMethod(class, clinit, nil)
	return err
}
