package dex

import "testing"

func TestParseFundamentals(t *testing.T) {
	tests := []struct {
		raw  string
		want FundamentalKind
	}{
		{"Z", Boolean},
		{"B", Byte},
		{"C", Char},
		{"D", Double},
		{"F", Float},
		{"I", Int},
		{"J", Long},
		{"S", Short},
		{"V", Void},
	}

	for _, tt := range tests {
		typ := ParseType(tt.raw)
		f, ok := typ.(*FundamentalType)
		if !ok {
			t.Fatalf("ParseType(%q) = %T, want FundamentalType", tt.raw, typ)
		}
		if f.Fundamental != tt.want {
			t.Errorf("ParseType(%q) kind = %v, want %v", tt.raw, f.Fundamental, tt.want)
		}
		// Parsing is a left-inverse of descriptor printing
		if f.Raw() != tt.raw {
			t.Errorf("ParseType(%q).Raw() = %q", tt.raw, f.Raw())
		}
	}
}

func TestParseClass(t *testing.T) {
	typ := ParseType("Ljava/lang/String;")
	c, ok := typ.(*ClassType)
	if !ok {
		t.Fatalf("Expected ClassType, got %T", typ)
	}
	if c.Name() != "Ljava/lang/String;" {
		t.Errorf("Unexpected class name %q", c.Name())
	}
	if c.Kind() != KindClass {
		t.Errorf("Expected KindClass, got %v", c.Kind())
	}
}

func TestParseNestedArray(t *testing.T) {
	typ := ParseType("[[Ljava/lang/Object;")
	arr, ok := typ.(*ArrayType)
	if !ok {
		t.Fatalf("Expected ArrayType, got %T", typ)
	}
	if arr.Arity() != 2 {
		t.Errorf("Expected arity 2, got %d", arr.Arity())
	}

	inner, ok := arr.Inner().(*ArrayType)
	if !ok {
		t.Fatalf("Expected inner ArrayType, got %T", arr.Inner())
	}
	if _, ok := inner.Inner().(*ClassType); !ok {
		t.Fatalf("Expected innermost ClassType, got %T", inner.Inner())
	}
	if arr.Raw() != "[[Ljava/lang/Object;" {
		t.Errorf("Raw not preserved: %q", arr.Raw())
	}
}

func TestArrayArityProperty(t *testing.T) {
	// Wrapping any descriptor in one more [ adds exactly one arity level
	descriptors := []string{"I", "J", "Ljava/lang/String;", "[I", "[[D"}
	for _, d := range descriptors {
		outer := ParseType("[" + d)
		arr, ok := outer.(*ArrayType)
		if !ok {
			t.Fatalf("ParseType(%q) = %T, want ArrayType", "["+d, outer)
		}
		innerArity := 0
		if inner, ok := ParseType(d).(*ArrayType); ok {
			innerArity = inner.Arity()
		}
		if arr.Arity() != innerArity+1 {
			t.Errorf("arity(%q) = %d, want %d", "["+d, arr.Arity(), innerArity+1)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	for _, raw := range []string{"X", "Q", "123", "foo"} {
		typ := ParseType(raw)
		if typ.Kind() != KindUnknown {
			t.Errorf("ParseType(%q) kind = %v, want KindUnknown", raw, typ.Kind())
		}
		if typ.Raw() != raw {
			t.Errorf("ParseType(%q).Raw() = %q, want verbatim", raw, typ.Raw())
		}
	}
}

func TestIsExternal(t *testing.T) {
	prefixes := []string{"Ljava/", "Landroid/"}

	tests := []struct {
		descriptor string
		want       bool
	}{
		{"Ljava/lang/String;", true},
		{"Landroid/app/Activity;", true},
		{"Lcom/example/Main;", false},
		// A descriptor equal to a bare prefix names nothing: not external
		{"Ljava/", false},
	}

	for _, tt := range tests {
		c, ok := ParseType(tt.descriptor).(*ClassType)
		if !ok {
			t.Fatalf("ParseType(%q) is not a class", tt.descriptor)
		}
		if got := c.IsExternal(prefixes); got != tt.want {
			t.Errorf("IsExternal(%q) = %v, want %v", tt.descriptor, got, tt.want)
		}
	}
}
