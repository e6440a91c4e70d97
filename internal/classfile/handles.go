package classfile

import (
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// ValidateMethodHandle enforces spec.md §4.8's kind/reference-kind rules,
// grounded on original_source/src/objects/handles.rs. major is the owning
// class file's major version (gates kind 6's InterfaceMethodRef allowance).
func ValidateMethodHandle(pool *ConstantPool, info MethodHandleInfo, major uint16) error {
	kind := info.Kind
	if kind.IsFieldRef() {
		if _, err := pool.FieldRef(info.ReferenceIndex); err != nil {
			return jvmerrors.Wrap(jvmerrors.ClassFormatError, err,
				"method handle kind %d must reference a FieldRef", kind)
		}
		return nil
	}

	status := interfaceRefStatusFor(kind, major)
	ref, err := lookupMethodRef(pool, info.ReferenceIndex, status)
	if err != nil {
		return err
	}
	return validateMethodRefForKind(kind, ref)
}

type interfaceRefStatus int

const (
	refRequired interfaceRefStatus = iota
	refAllowed
	refDenied
)

func interfaceRefStatusFor(kind ReferenceKind, major uint16) interfaceRefStatus {
	switch kind {
	case RefInvokeVirtual, RefInvokeSpecial, RefNewInvokeSpecial:
		return refDenied
	case RefInvokeStatic:
		if major < Java8 {
			return refDenied
		}
		return refAllowed
	case RefInvokeInterface:
		return refRequired
	default:
		return refDenied
	}
}

func lookupMethodRef(pool *ConstantPool, index uint16, status interfaceRefStatus) (ResolvedMethodRef, error) {
	tag, err := pool.TagAt(index)
	if err != nil {
		return ResolvedMethodRef{}, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "method handle reference index %d", index)
	}
	switch status {
	case refRequired:
		if tag != TagInterfaceMethodref {
			return ResolvedMethodRef{}, jvmerrors.New(jvmerrors.ClassFormatError,
				"method handle reference index %d must be an InterfaceMethodref, got tag %d", index, tag)
		}
		return pool.ResolveInterfaceMethodRef(index)
	case refAllowed:
		if tag == TagInterfaceMethodref {
			return pool.ResolveInterfaceMethodRef(index)
		}
		if tag == TagMethodref {
			return pool.ResolveMethodRef(index)
		}
		return ResolvedMethodRef{}, jvmerrors.New(jvmerrors.ClassFormatError,
			"method handle reference index %d must be a Methodref or InterfaceMethodref, got tag %d", index, tag)
	default: // refDenied
		if tag != TagMethodref {
			return ResolvedMethodRef{}, jvmerrors.New(jvmerrors.ClassFormatError,
				"method handle reference index %d must be a Methodref, got tag %d", index, tag)
		}
		return pool.ResolveMethodRef(index)
	}
}

func validateMethodRefForKind(kind ReferenceKind, ref ResolvedMethodRef) error {
	switch kind {
	case RefInvokeVirtual, RefInvokeStatic, RefInvokeSpecial, RefInvokeInterface:
		if ref.MethodName == staticInitializerName {
			return jvmerrors.New(jvmerrors.ClassFormatError,
				"method handle kind %d must not reference a static initializer", kind)
		}
		if ref.MethodName == constructorName {
			return jvmerrors.New(jvmerrors.ClassFormatError,
				"method handle kind %d must not reference a constructor", kind)
		}
	case RefNewInvokeSpecial:
		if ref.MethodName != constructorName {
			return jvmerrors.New(jvmerrors.ClassFormatError,
				"newInvokeSpecial method handle must reference a constructor (%s)", constructorName)
		}
	}
	return nil
}
