package heap

import "testing"

func TestHeapAllocationOffsets(t *testing.T) {
	t.Run("offset equals pre-call length", func(t *testing.T) {
		h := New()
		if got := h.AllocInstance(nil, 2); got != 0 {
			t.Errorf("first offset: got %d, want 0", got)
		}
		if got := h.AllocTypeArray(TypeInt, 4); got != 1 {
			t.Errorf("second offset: got %d, want 1", got)
		}
		if h.Len() != 2 {
			t.Errorf("Len: got %d, want 2", h.Len())
		}
	})

	t.Run("offsets never reused", func(t *testing.T) {
		h := New()
		a := h.AllocInstance(nil, 0)
		b := h.AllocInstance(nil, 0)
		if a == b {
			t.Errorf("expected distinct offsets, got %d twice", a)
		}
	})
}

func TestHeapTypedAccessorsReturnNullOnMismatch(t *testing.T) {
	h := New()
	offset := h.AllocInstance(nil, 1)

	if ref := h.GetRefArray(offset); !ref.IsNull() {
		t.Error("GetRefArray on an instance offset should be Null")
	}
	if ref := h.GetTypeArray(offset); !ref.IsNull() {
		t.Error("GetTypeArray on an instance offset should be Null")
	}
	inst := h.GetInstance(offset)
	if inst.IsNull() {
		t.Fatal("GetInstance on an instance offset should not be Null")
	}
}

func TestHeapOutOfRangeOffset(t *testing.T) {
	h := New()
	if ref := h.GetInstance(42); !ref.IsNull() {
		t.Error("out-of-range offset should yield Null")
	}
}

func TestInstanceObjectSlots(t *testing.T) {
	t.Run("int round-trip", func(t *testing.T) {
		obj := newInstanceObject(0, nil, 2)
		if err := obj.SetInt(0, -7); err != nil {
			t.Fatal(err)
		}
		got, err := obj.GetInt(0)
		if err != nil || got != -7 {
			t.Errorf("got %d, %v; want -7, nil", got, err)
		}
	})

	t.Run("long spans two slots", func(t *testing.T) {
		obj := newInstanceObject(0, nil, 2)
		if err := obj.SetLong(0, 0x0102030405060708); err != nil {
			t.Fatal(err)
		}
		got, err := obj.GetLong(0)
		if err != nil || got != 0x0102030405060708 {
			t.Errorf("got %#x, %v; want 0x0102030405060708", got, err)
		}
	})

	t.Run("double round-trip", func(t *testing.T) {
		obj := newInstanceObject(0, nil, 2)
		if err := obj.SetDouble(0, 3.5); err != nil {
			t.Fatal(err)
		}
		got, err := obj.GetDouble(0)
		if err != nil || got != 3.5 {
			t.Errorf("got %v, %v; want 3.5", got, err)
		}
	})

	t.Run("ref round-trip including null", func(t *testing.T) {
		obj := newInstanceObject(0, nil, 1)
		if err := obj.SetRef(0, Of(7)); err != nil {
			t.Fatal(err)
		}
		got, err := obj.GetRef(0)
		if err != nil {
			t.Fatal(err)
		}
		if v, ok := got.Get(); !ok || v != 7 {
			t.Errorf("got %v, %v; want 7, true", v, ok)
		}
		if err := obj.SetRef(0, Null[int]()); err != nil {
			t.Fatal(err)
		}
		got, _ = obj.GetRef(0)
		if !got.IsNull() {
			t.Error("expected null reference after SetRef(Null)")
		}
	})

	t.Run("out of range slot errors", func(t *testing.T) {
		obj := newInstanceObject(0, nil, 1)
		if _, err := obj.GetInt(5); err == nil {
			t.Error("expected error for out-of-range slot")
		}
	})
}

func TestReferenceArrayObject(t *testing.T) {
	arr := newReferenceArrayObject(0, nil, nil, 3)
	if arr.Length() != 3 {
		t.Fatalf("length: got %d, want 3", arr.Length())
	}
	if err := arr.Set(1, Of(9)); err != nil {
		t.Fatal(err)
	}
	got, err := arr.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Get(); !ok || v != 9 {
		t.Errorf("got %v, %v; want 9, true", v, ok)
	}
	if _, err := arr.Get(3); err == nil {
		t.Error("expected ArrayIndexOutOfBoundsException for index 3")
	}
}

func TestTypeArrayObjectLongSlotsPerElement(t *testing.T) {
	arr := newTypeArrayObject(0, TypeLong, 2)
	if err := arr.SetLong(0, 100); err != nil {
		t.Fatal(err)
	}
	if err := arr.SetLong(1, 200); err != nil {
		t.Fatal(err)
	}
	got0, _ := arr.GetLong(0)
	got1, _ := arr.GetLong(1)
	if got0 != 100 || got1 != 200 {
		t.Errorf("got %d, %d; want 100, 200", got0, got1)
	}
}

func TestTypeArrayObjectByteAndBool(t *testing.T) {
	arr := newTypeArrayObject(0, TypeByte, 2)
	if err := arr.SetByte(0, -1); err != nil {
		t.Fatal(err)
	}
	got, err := arr.GetByte(0)
	if err != nil || got != -1 {
		t.Errorf("got %d, %v; want -1, nil", got, err)
	}

	flags := newTypeArrayObject(0, TypeBoolean, 1)
	if err := flags.SetByte(0, 1); err != nil {
		t.Fatal(err)
	}
	if got, err := flags.GetByte(0); err != nil || got != 1 {
		t.Errorf("boolean element: got %d, %v; want 1, nil", got, err)
	}
}

func TestReferenceEquals(t *testing.T) {
	if !Equals(Null[int](), Null[int]()) {
		t.Error("two nulls should be equal")
	}
	if !Equals(Of(3), Of(3)) {
		t.Error("same value references should be equal")
	}
	if Equals(Of(3), Of(4)) {
		t.Error("different value references should not be equal")
	}
	if Equals(Null[int](), Of(0)) {
		t.Error("null and non-null should not be equal")
	}
}
