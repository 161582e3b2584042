package fingerprint

import (
	"testing"
)

func TestSum_KnownValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sum([]byte(tt.input)); got != tt.want {
				t.Errorf("Sum(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSum_NilEqualsEmpty(t *testing.T) {
	if Sum(nil) != Sum([]byte{}) {
		t.Error("nil and empty content should fingerprint identically")
	}
}

func TestSum_Length(t *testing.T) {
	if got := len(Sum([]byte("page"))); got != Size {
		t.Errorf("len(Sum()) = %d, want %d", got, Size)
	}
}

func TestSum_SensitiveToContent(t *testing.T) {
	if Sum([]byte("<p>a</p>")) == Sum([]byte("<p>b</p>")) {
		t.Error("different content produced the same fingerprint")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"sum", Sum([]byte("x")), true},
		{"short", "abc", false},
		{"not_hex", "zz" + Sum([]byte("x"))[2:], false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.in); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
