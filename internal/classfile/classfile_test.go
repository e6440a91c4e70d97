package classfile

import "testing"

func TestFieldSlotLayoutWidensCategory2Fields(t *testing.T) {
	cf := &ClassFile{
		Fields: []Field{
			{Name: "a", Descriptor: "I"},
			{Name: "b", Descriptor: "J"}, // long: 2 slots
			{Name: "c", Descriptor: "D"}, // double: 2 slots
			{Name: "d", Descriptor: "Ljava/lang/Object;"},
			{Name: "s", Descriptor: "I", AccessFlags: AccStatic}, // excluded
		},
	}

	slotOf, total := cf.FieldSlotLayout()
	want := map[string]int{"a": 0, "b": 1, "c": 3, "d": 5}
	for name, wantSlot := range want {
		if got := slotOf[name]; got != wantSlot {
			t.Errorf("slot of %q: got %d, want %d", name, got, wantSlot)
		}
	}
	if _, ok := slotOf["s"]; ok {
		t.Error("static field should not appear in instance slot layout")
	}
	if total != 6 {
		t.Errorf("total slots: got %d, want 6", total)
	}
}

func TestStaticFieldOrdinalsExcludeInstanceFields(t *testing.T) {
	cf := &ClassFile{
		Fields: []Field{
			{Name: "x", Descriptor: "I"},
			{Name: "count", Descriptor: "I", AccessFlags: AccStatic},
			{Name: "total", Descriptor: "J", AccessFlags: AccStatic},
		},
	}

	ordinals := cf.StaticFieldOrdinals()
	if ordinals["count"] != 0 || ordinals["total"] != 1 {
		t.Errorf("got %+v, want count=0 total=1", ordinals)
	}
	if _, ok := ordinals["x"]; ok {
		t.Error("instance field should not appear in static ordinals")
	}
	if got := cf.StaticFieldCount(); got != 2 {
		t.Errorf("StaticFieldCount: got %d, want 2", got)
	}
}

func TestNewArrayClassIsDistinctFromElementClass(t *testing.T) {
	arrayClass := NewArrayClass("java/lang/String")
	if arrayClass.Name != "[Ljava/lang/String;" {
		t.Errorf("got name %q, want [Ljava/lang/String;", arrayClass.Name)
	}
	if arrayClass.Name == "java/lang/String" {
		t.Error("array class must not be conflated with its element class")
	}
	if arrayClass.SuperClassName != "java/lang/Object" {
		t.Errorf("got super %q, want java/lang/Object", arrayClass.SuperClassName)
	}
}

func TestFindMethodAndFindField(t *testing.T) {
	cf := &ClassFile{
		Methods: []Method{
			{Name: "add", Descriptor: "(II)I"},
			{Name: "add", Descriptor: "(JJ)J"},
		},
		Fields: []Field{
			{Name: "value", Descriptor: "I"},
		},
	}

	if m := cf.FindMethod("add", "(II)I"); m == nil || m.Descriptor != "(II)I" {
		t.Error("expected to find add(II)I by exact descriptor")
	}
	if m := cf.FindMethod("add", "(FF)F"); m != nil {
		t.Error("expected no match for an undeclared descriptor")
	}
	if m := cf.FindMethodByName("add"); m == nil {
		t.Error("expected FindMethodByName to find the first add overload")
	}
	if f := cf.FindField("value"); f == nil {
		t.Error("expected to find field value")
	}
	if f := cf.FindField("missing"); f != nil {
		t.Error("expected no match for an undeclared field")
	}
}

func TestValidateVersionAcceptsAndRejects(t *testing.T) {
	cases := []struct {
		name         string
		major, minor uint16
		wantErr      bool
	}{
		{"java8 ok", Java8, 0, false},
		{"java17 ok", Java17, 0, false},
		{"too old major", 10, 0, true},
		{"too new major", Java17 + 1, 0, true},
		{"preview minor rejected", Java17, PreviewMinor, true},
		{"nonzero minor on modern major", Java11, 3, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateVersion(c.major, c.minor)
			if (err != nil) != c.wantErr {
				t.Errorf("ValidateVersion(%d,%d): got err=%v, wantErr=%v", c.major, c.minor, err, c.wantErr)
			}
		})
	}
}
