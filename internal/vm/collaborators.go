package vm

import (
	"sync"

	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/interp"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// walkSuperclasses calls visit for start and then each successive
// superclass, resolved through vm.Loader, stopping as soon as visit returns
// true (its class is then returned). Tracks the class names already seen so
// a cycle in the super chain (a class that is, directly or indirectly, its
// own superclass) raises ClassCircularityError instead of looping forever,
// per spec.md §4.7.
func (vm *VM) walkSuperclasses(start *classfile.ClassFile, visit func(*classfile.ClassFile) bool) (*classfile.ClassFile, error) {
	visited := make(map[string]bool)
	class := start
	for class != nil {
		if visited[class.Name] {
			return nil, jvmerrors.New(jvmerrors.ClassCircularityError, "superclass chain of %s cycles back to %s", start.Name, class.Name)
		}
		visited[class.Name] = true
		if visit(class) {
			return class, nil
		}
		if class.SuperClassName == "" {
			return nil, nil
		}
		next, err := vm.Loader.Resolve(class.SuperClassName)
		if err != nil {
			return nil, err
		}
		class = next
	}
	return nil, nil
}

// ResolveField implements interp.FieldResolver: walks owner's superclass
// chain looking for a field declaration by name, returning its owning class
// and a physical index — the instance slot (from FieldSlotLayout) for
// instance fields, or the static ordinal (from StaticFieldOrdinals) for
// static fields.
func (vm *VM) ResolveField(ref classfile.ResolvedFieldRef) (*classfile.ClassFile, int, bool, error) {
	start, err := vm.Loader.Resolve(ref.ClassName)
	if err != nil {
		return nil, 0, false, err
	}

	var index int
	var isStatic bool
	owner, err := vm.walkSuperclasses(start, func(class *classfile.ClassFile) bool {
		f := class.FindField(ref.FieldName)
		if f == nil {
			return false
		}
		if f.AccessFlags.IsStatic() {
			ordinals := class.StaticFieldOrdinals()
			index, isStatic = ordinals[ref.FieldName], true
		} else {
			slotOf, _ := class.FieldSlotLayout()
			index, isStatic = slotOf[ref.FieldName], false
		}
		return true
	})
	if err != nil {
		return nil, 0, false, err
	}
	if owner == nil {
		return nil, 0, false, jvmerrors.New(jvmerrors.NoSuchFieldError, "%s.%s not found", ref.ClassName, ref.FieldName)
	}
	return owner, index, isStatic, nil
}

// GetStatic/SetStatic implement interp.FieldResolver's static storage,
// mirroring the teacher's staticFields map keyed by class and field, here
// keyed by class and ordinal.
func (vm *VM) GetStatic(owner *classfile.ClassFile, fieldIndex int) (interp.Value, error) {
	if err := vm.ensureInitialized(owner); err != nil {
		return interp.Value{}, err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	slots := vm.statics[owner.Name]
	if fieldIndex < 0 || fieldIndex >= len(slots) {
		return interp.Value{}, jvmerrors.New(jvmerrors.InternalError, "static field ordinal %d out of range for %s", fieldIndex, owner.Name)
	}
	return slots[fieldIndex], nil
}

func (vm *VM) SetStatic(owner *classfile.ClassFile, fieldIndex int, v interp.Value) error {
	if err := vm.ensureInitialized(owner); err != nil {
		return err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	slots := vm.statics[owner.Name]
	if fieldIndex < 0 || fieldIndex >= len(slots) {
		return jvmerrors.New(jvmerrors.InternalError, "static field ordinal %d out of range for %s", fieldIndex, owner.Name)
	}
	slots[fieldIndex] = v
	return nil
}

// Invoke implements interp.MethodDispatcher. Virtual/interface dispatch
// resolves against the receiver's runtime class (single-inheritance method
// lookup up the superclass chain); special and static dispatch resolve
// against the referenced class directly, per JVMS §6.5's invoke* family.
func (vm *VM) Invoke(ctx *interp.Context, kind interp.InvokeKind, ref classfile.ResolvedMethodRef, args []interp.Value) (interp.MethodResult, error) {
	lookupClassName := ref.ClassName
	if kind == interp.InvokeVirtual || kind == interp.InvokeInterface {
		if len(args) == 0 {
			return interp.MethodResult{}, jvmerrors.New(jvmerrors.InternalError, "%s invoke missing receiver argument", ref.MethodName)
		}
		recv := args[0]
		inst, ok := vm.Heap.GetInstance(recv.RefOffset).Get()
		if !ok {
			return interp.MethodResult{}, jvmerrors.New(jvmerrors.InternalError, "invoke: receiver at offset %d is not an instance", recv.RefOffset)
		}
		lookupClassName = inst.Class.Name
	}

	class, err := vm.Loader.Resolve(lookupClassName)
	if err != nil {
		return interp.MethodResult{}, err
	}
	if kind == interp.InvokeStatic {
		if err := vm.ensureInitialized(class); err != nil {
			return interp.MethodResult{}, err
		}
	}

	method, owner, err := vm.findMethodUpChain(class, ref.MethodName, ref.Descriptor)
	if err != nil {
		return interp.MethodResult{}, err
	}
	if method == nil {
		return interp.MethodResult{}, jvmerrors.New(jvmerrors.NoSuchMethodError, "%s.%s%s not found", lookupClassName, ref.MethodName, ref.Descriptor)
	}
	return vm.runMethod(owner, method, args)
}

func (vm *VM) findMethodUpChain(class *classfile.ClassFile, name, descriptor string) (*classfile.Method, *classfile.ClassFile, error) {
	var method *classfile.Method
	owner, err := vm.walkSuperclasses(class, func(c *classfile.ClassFile) bool {
		if m := c.FindMethod(name, descriptor); m != nil {
			method = m
			return true
		}
		return false
	})
	if err != nil {
		return nil, nil, err
	}
	return method, owner, nil
}

// Enter/Exit implement interp.MonitorManager with a per-offset mutex,
// reentrant in the loose sense that this single-threaded interpreter never
// contends on its own lock mid-call; real reentrancy accounting is out of
// scope per spec.md §1.
func (vm *VM) Enter(objectOffset int) error {
	vm.monitorFor(objectOffset).Lock()
	return nil
}

func (vm *VM) Exit(objectOffset int) error {
	vm.monitorFor(objectOffset).Unlock()
	return nil
}

func (vm *VM) monitorFor(offset int) *sync.Mutex {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	m, ok := vm.monitors[offset]
	if !ok {
		m = &sync.Mutex{}
		vm.monitors[offset] = m
	}
	return m
}
