package descriptor

import "testing"

func TestParseFieldPrimitives(t *testing.T) {
	cases := map[string]Kind{
		"B": Byte, "C": Char, "D": Double, "F": Float,
		"I": Int, "J": Long, "S": Short, "Z": Boolean,
	}
	for s, want := range cases {
		t.Run(s, func(t *testing.T) {
			got, err := ParseField(s)
			if err != nil {
				t.Fatal(err)
			}
			if got.Kind != want {
				t.Errorf("got kind %v, want %v", got.Kind, want)
			}
		})
	}
}

func TestParseFieldObject(t *testing.T) {
	got, err := ParseField("Ljava/lang/String;")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != Object || got.ClassName != "java/lang/String" {
		t.Errorf("got %+v, want Object java/lang/String", got)
	}
}

func TestParseFieldArrayDimensions(t *testing.T) {
	got, err := ParseField("[[I")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != Array || got.Dimensions != 2 || got.ElementKind != Int {
		t.Errorf("got %+v, want Array dims=2 elem=Int", got)
	}
}

func TestParseFieldArrayOfObjects(t *testing.T) {
	got, err := ParseField("[Ljava/lang/Object;")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != Array || got.ElementKind != Object || got.ElementName != "java/lang/Object" {
		t.Errorf("got %+v", got)
	}
}

func TestParseFieldTrailingDataRejected(t *testing.T) {
	if _, err := ParseField("IJ"); err == nil {
		t.Error("expected error for trailing data")
	}
}

func TestParseFieldUnterminatedClassRejected(t *testing.T) {
	if _, err := ParseField("Ljava/lang/String"); err == nil {
		t.Error("expected error for unterminated class descriptor")
	}
}

func TestParseMethodVoidNoArgs(t *testing.T) {
	m, err := ParseMethod("()V")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Parameters) != 0 || m.Return.Kind != Void {
		t.Errorf("got %+v", m)
	}
}

func TestParseMethodWithParamsAndReturn(t *testing.T) {
	m, err := ParseMethod("(ILjava/lang/String;[D)Z")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Parameters) != 3 {
		t.Fatalf("got %d params, want 3", len(m.Parameters))
	}
	if m.Parameters[0].Kind != Int {
		t.Errorf("param 0: got %v, want Int", m.Parameters[0].Kind)
	}
	if m.Parameters[1].Kind != Object || m.Parameters[1].ClassName != "java/lang/String" {
		t.Errorf("param 1: got %+v", m.Parameters[1])
	}
	if m.Parameters[2].Kind != Array || m.Parameters[2].ElementKind != Double {
		t.Errorf("param 2: got %+v", m.Parameters[2])
	}
	if m.Return.Kind != Boolean {
		t.Errorf("return: got %v, want Boolean", m.Return.Kind)
	}
}

func TestParseMethodMissingOpenParen(t *testing.T) {
	if _, err := ParseMethod("I)V"); err == nil {
		t.Error("expected error for missing '('")
	}
}

func TestIsCategory2(t *testing.T) {
	if !(Type{Kind: Long}).IsCategory2() {
		t.Error("Long should be category 2")
	}
	if !(Type{Kind: Double}).IsCategory2() {
		t.Error("Double should be category 2")
	}
	if (Type{Kind: Int}).IsCategory2() {
		t.Error("Int should not be category 2")
	}
}
