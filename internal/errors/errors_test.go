package errors

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"simple", errors.New("alert not found"), "Error: alert not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.err); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("unknown sound %q", "alert-99")
	want := `Error: unknown sound "alert-99"`
	if got != want {
		t.Errorf("Formatf() = %q, want %q", got, want)
	}
}
