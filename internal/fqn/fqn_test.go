package fqn

import (
	"errors"
	"testing"
)

func TestParseCallable(t *testing.T) {
	tests := []struct {
		in   string
		want Parts
	}{
		{"pkg.Foo.bar(int)", Parts{"pkg.Foo", "bar", "(int)"}},
		{"Q.m(T1,T2)", Parts{"Q", "m", "(T1,T2)"}},
		{"m()", Parts{"", "m", "()"}},
		{"Q<X>.Inner.m(T)", Parts{"Q<X>.Inner", "m", "(T)"}},
		{"a.B.m(java.lang.String,java.util.List<a.C>)", Parts{"a.B", "m", "(java.lang.String,java.util.List<a.C>)"}},
		{"java.util.Map<K,V>.put(K,V)", Parts{"java.util.Map<K,V>", "put", "(K,V)"}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in, true)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if full := RebuildFull(got); full != tt.in {
			t.Errorf("RebuildFull(Parse(%q)) = %q", tt.in, full)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Parts
	}{
		{"java.util.List<java.lang.String>", Parts{"java.util", "List", "<java.lang.String>"}},
		{"Q.C<A<B>>", Parts{"Q", "C", "<A<B>>"}},
		{"Outer<a.X>.Inner", Parts{"Outer<a.X>", "Inner", ""}},
		{"int", Parts{"", "int", ""}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in, false)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if full := RebuildFull(got); full != tt.in {
			t.Errorf("RebuildFull(Parse(%q)) = %q", tt.in, full)
		}
	}
}

func TestStripGenericArgs(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Q.C<A<B>>", "Q.C"},
		{"java.util.List<java.lang.String>", "java.util.List"},
		{"java.util.Map<K,V>.put(K,V)", "java.util.Map.put(K,V)"},
		{"a.B<T>.m(java.util.List<T>)", "a.B.m(java.util.List)"},
		{"plain.Name", "plain.Name"},
	}
	for _, tt := range tests {
		got, err := StripGenericArgs(tt.in)
		if err != nil {
			t.Fatalf("StripGenericArgs(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("StripGenericArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErase(t *testing.T) {
	p, err := Parse("Q.C<A<B>>", false)
	if err != nil {
		t.Fatal(err)
	}
	e, err := Erase(p)
	if err != nil {
		t.Fatal(err)
	}
	if got := RebuildFull(e); got != "Q.C" {
		t.Errorf("erased = %q, want Q.C", got)
	}
}

func TestMalformed(t *testing.T) {
	for _, in := range []string{"a.B<C", "a.B>C", "a.B<C>>"} {
		if _, err := StripGenericArgs(in); !errors.Is(err, ErrMalformedName) {
			t.Errorf("StripGenericArgs(%q) err = %v, want ErrMalformedName", in, err)
		}
	}
	for _, in := range []string{"a.B<C", "a.B>C", "a.m(int", "a.m)int("} {
		if _, err := Parse(in, true); !errors.Is(err, ErrMalformedName) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedName", in, err)
		}
	}
}

func TestMangle(t *testing.T) {
	if got := Mangle("pkg.Foo", "bar", []string{"int"}); got != "pkg.Foo.bar(int)" {
		t.Errorf("Mangle = %q", got)
	}
	if got := Mangle("", "main", nil); got != "main()" {
		t.Errorf("Mangle = %q", got)
	}
	if got := Mangle("a.B", "m", []string{"int", "java.lang.String"}); got != "a.B.m(int,java.lang.String)" {
		t.Errorf("Mangle = %q", got)
	}
}

func TestModuleQN(t *testing.T) {
	tests := []struct{ in, want string }{
		{"pkg/service/orders.py", "pkg.service.orders"},
		{"pkg/__init__.py", "pkg"},
		{"main.py", "main"},
	}
	for _, tt := range tests {
		if got := ModuleQN(tt.in); got != tt.want {
			t.Errorf("ModuleQN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
