package identity

import "testing"

func TestHashKnownValues(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"dummy:not_in_file:dummy", 5227985031564994343},
		{"", 5472609002491880229},
		{"a", 3414815163700866188},
		{"pkg.Foo.bar(int)", 2982056612771274916},
		// One step per character, not per UTF-8 byte.
		{"é", 3414964697282302884},
		{"Größe.λ(int)", 6319097781655358715},
		// Surrogate pair.
		{"😀", 7342092292122708184},
	}
	for _, tt := range tests {
		if got := Hash(tt.in); got != tt.want {
			t.Errorf("Hash(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHashDeterministic(t *testing.T) {
	s := FakeNodeKey("dummy", "dummy")
	if s != "dummy:not_in_file:dummy" {
		t.Fatalf("FakeNodeKey = %q", s)
	}
	first := Hash(s)
	for i := 0; i < 100; i++ {
		if Hash(s) != first {
			t.Fatal("hash changed between calls")
		}
	}
}

func TestHashNonNegative(t *testing.T) {
	for _, s := range []string{"x", "java.util.List<java.lang.String>", "A.f()", "\xff\xfe"} {
		if ID(s) < 0 {
			t.Errorf("ID(%q) is negative", s)
		}
	}
}

func TestNodeKey(t *testing.T) {
	got := NodeKey("method f", 42, 10, 20, "A.f()")
	if got != "method f:42:10:20:A.f()" {
		t.Errorf("NodeKey = %q", got)
	}
}
