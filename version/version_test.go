package version

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input      string
		normalized string
		wantErr    bool
	}{
		{"2.4", "2.4.0", false},
		{"13.0.3", "13.0.3", false},
		{"4.0.0.0", "4.0.0", false},
		{"4.0.0.1", "4.0.0.1", false},
		{"1.0-beta", "1.0.0-beta", false},
		{"1.0.0-beta.2+sha.abc", "1.0.0-beta.2", false},
		{"", "", true},
		{"1.2.3.4.5", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := v.Normalized(); got != tt.normalized {
				t.Errorf("Normalized() = %q, want %q", got, tt.normalized)
			}
			if got := v.String(); got != tt.input {
				t.Errorf("String() = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0.0", 0},
		{"1.0", "1.1", -1},
		{"2.0", "1.9.9", 1},
		{"4.0.0.1", "4.0.0", 1},
		{"1.0.0-beta", "1.0.0", -1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"1.0.0+a", "1.0.0+b", 0},
	}

	for _, tt := range tests {
		got := MustParse(tt.a).Compare(MustParse(tt.b))
		if got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestZeroVersionSortsFirst(t *testing.T) {
	var zero Version
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	if zero.Compare(MustParse("0.0.1")) != -1 {
		t.Error("zero version should sort before any parsed version")
	}
	if zero.Normalized() != "" {
		t.Errorf("zero Normalized() = %q, want empty", zero.Normalized())
	}
}
