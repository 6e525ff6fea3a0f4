package larch

import (
	"strings"
	"testing"
)

func TestLayerNameRoundTrip(t *testing.T) {
	tt := []LayerName{
		{0, 0, 0, 0, 0},
		{0xdeadbeef, 0x00c0ffee, 0x12345678, 0xffffffff, 0x00000001},
		{1, 2, 3, 4, 5},
	}

	for _, want := range tt {
		s := want.String()
		if len(s) != nameHexLen {
			t.Errorf("String() length: got %d, want %d", len(s), nameHexLen)
		}
		got, err := ParseLayerName(s)
		if err != nil {
			t.Fatalf("ParseLayerName(%q): unexpected error: %v", s, err)
		}
		if got != want {
			t.Errorf("round trip: got %v, want %v", got, want)
		}
	}
}

func TestParseLayerNameInvalid(t *testing.T) {
	tt := []struct {
		name string
		in   string
	}{
		{name: "TooShort", in: "abc"},
		{name: "TooLong", in: strings.Repeat("a", 41)},
		{name: "NotHex", in: strings.Repeat("zz", 20)},
		{name: "Empty", in: ""},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLayerName(tc.in)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if want := ErrBadName; !errIsKind(err, want) {
				t.Errorf("error kind: got %v, want %v", err, want)
			}
		})
	}
}

func errIsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

func TestLayerNamePrefix(t *testing.T) {
	n := MustParseLayerName(strings.Repeat("ab", 20))
	if got, want := n.Prefix(), "aba"; got != want {
		t.Errorf("Prefix(): got %q, want %q", got, want)
	}
}

func TestMustParseLayerNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustParseLayerName("not a name")
}
