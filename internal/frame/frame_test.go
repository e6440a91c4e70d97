package frame

import "testing"

func TestOperandStackIntRoundTrip(t *testing.T) {
	t.Run("push and pop", func(t *testing.T) {
		f := New(0, 4, nil, nil)
		if err := f.PushInt(7); err != nil {
			t.Fatal(err)
		}
		got, err := f.PopInt()
		if err != nil || got != 7 {
			t.Errorf("got %d, %v; want 7, nil", got, err)
		}
	})

	t.Run("overflow returns an error", func(t *testing.T) {
		f := New(0, 1, nil, nil)
		if err := f.PushInt(1); err != nil {
			t.Fatal(err)
		}
		if err := f.PushInt(2); err == nil {
			t.Error("expected overflow error")
		}
	})

	t.Run("underflow", func(t *testing.T) {
		f := New(0, 1, nil, nil)
		if _, err := f.PopInt(); err == nil {
			t.Error("expected underflow error")
		}
	})
}

func TestOperandStackLongSpansTwoSlots(t *testing.T) {
	f := New(0, 4, nil, nil)
	if err := f.PushLong(0x1122334455667788); err != nil {
		t.Fatal(err)
	}
	if f.StackDepth() != 2 {
		t.Errorf("depth after pushing a long: got %d, want 2", f.StackDepth())
	}
	got, err := f.PopLong()
	if err != nil || got != 0x1122334455667788 {
		t.Errorf("got %#x, %v; want 0x1122334455667788", got, err)
	}
}

func TestOperandStackFloatDoubleRoundTrip(t *testing.T) {
	f := New(0, 4, nil, nil)
	if err := f.PushFloat(2.5); err != nil {
		t.Fatal(err)
	}
	gotF, err := f.PopFloat()
	if err != nil || gotF != 2.5 {
		t.Errorf("got %v, %v; want 2.5", gotF, err)
	}

	if err := f.PushDouble(-1.25); err != nil {
		t.Fatal(err)
	}
	gotD, err := f.PopDouble()
	if err != nil || gotD != -1.25 {
		t.Errorf("got %v, %v; want -1.25", gotD, err)
	}
}

func TestOperandStackRefRoundTrip(t *testing.T) {
	f := New(0, 2, nil, nil)
	if err := f.PushRef(42, false); err != nil {
		t.Fatal(err)
	}
	offset, isNull, err := f.PopRef()
	if err != nil || isNull || offset != 42 {
		t.Errorf("got %d, %v, %v; want 42, false, nil", offset, isNull, err)
	}

	if err := f.PushRef(0, true); err != nil {
		t.Fatal(err)
	}
	_, isNull, err = f.PopRef()
	if err != nil || !isNull {
		t.Errorf("expected null ref, got isNull=%v err=%v", isNull, err)
	}
}

func TestLocalLongWritesBothSlots(t *testing.T) {
	f := New(4, 0, nil, nil)
	if err := f.SetLocalLong(0, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	got, err := f.GetLocalLong(0)
	if err != nil || got != 0x0102030405060708 {
		t.Errorf("got %#x, %v; want 0x0102030405060708", got, err)
	}
	// Regression guard: slots 0 and 1 must differ, since the original source
	// wrote the same slot twice for category-2 locals.
	if f.locals[0] == f.locals[1] {
		t.Error("expected distinct high/low slots for a long local")
	}
}

func TestLocalDoubleRoundTrip(t *testing.T) {
	f := New(4, 0, nil, nil)
	if err := f.SetLocalDouble(0, 9.5); err != nil {
		t.Fatal(err)
	}
	got, err := f.GetLocalDouble(0)
	if err != nil || got != 9.5 {
		t.Errorf("got %v, %v; want 9.5", got, err)
	}
}

func TestLocalIndexOutOfRange(t *testing.T) {
	f := New(2, 0, nil, nil)
	if _, err := f.GetLocalInt(5); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestDupViaGetSetRaw(t *testing.T) {
	f := New(0, 4, nil, nil)
	if err := f.PushInt(11); err != nil {
		t.Fatal(err)
	}
	top, err := f.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.PushSlotRaw(top); err != nil {
		t.Fatal(err)
	}
	if f.StackDepth() != 2 {
		t.Fatalf("depth after dup: got %d, want 2", f.StackDepth())
	}
	a, _ := f.PopInt()
	b, _ := f.PopInt()
	if a != 11 || b != 11 {
		t.Errorf("got %d, %d; want 11, 11", a, b)
	}
}

func TestClearStackForExceptionHandlerTransfer(t *testing.T) {
	f := New(0, 4, nil, nil)
	_ = f.PushInt(1)
	_ = f.PushInt(2)
	_ = f.PushInt(3)
	f.ClearStack(99)
	if f.StackDepth() != 1 {
		t.Fatalf("depth after ClearStack: got %d, want 1", f.StackDepth())
	}
	v, err := f.PopInt()
	if err != nil || v != 99 {
		t.Errorf("got %d, %v; want 99, nil", v, err)
	}
}

func TestBytecodeCursor(t *testing.T) {
	f := New(0, 0, []byte{0x01, 0xFF, 0x00, 0x05}, nil)
	if got := f.ReadU8(); got != 0x01 {
		t.Errorf("ReadU8: got %#x, want 0x01", got)
	}
	if got := f.ReadI8(); got != -1 {
		t.Errorf("ReadI8: got %d, want -1", got)
	}
	if got := f.ReadU16(); got != 0x0005 {
		t.Errorf("ReadU16: got %#x, want 0x0005", got)
	}
}
