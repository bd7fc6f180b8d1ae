package bmi

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"unknown config key", ErrUnknownConfigKey, KindConfig},
		{"malformed value", ErrMalformedValue, KindConfig},
		{"unknown variable", ErrUnknownVariable, KindLookupMiss},
		{"unknown grid", ErrUnknownGrid, KindLookupMiss},
		{"size mismatch", ErrSizeMismatch, KindSizeMismatch},
		{"wrapped index", Wrap("get_value_at_indices", "x", ErrIndexOutOfRange), KindIndexOutOfRange},
		{"fmt wrapped", fmt.Errorf("outer: %w", ErrUseAfterFinalize), KindUseAfterFinalize},
		{"foreign", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("expected kind %v, got %v", tt.want, got)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	err := Errorf("get_value", "plate_surface__temperature", ErrSizeMismatch, "got %d, want %d", 3, 200)

	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatal("expected errors.Is to match ErrSizeMismatch")
	}
	if errors.Is(err, ErrIndexOutOfRange) {
		t.Error("did not expect match with ErrIndexOutOfRange")
	}

	want := "get_value: bmi: buffer size mismatch (plate_surface__temperature): got 3, want 200"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	var be *Error
	if !errors.As(err, &be) || be.Op != "get_value" {
		t.Error("expected *Error with op get_value")
	}
}

func TestIsLookupMiss(t *testing.T) {
	if !IsLookupMiss(Wrap("get_var_grid", "nope", ErrUnknownVariable)) {
		t.Error("unknown variable should be a lookup miss")
	}
	if !IsLookupMiss(ErrUnknownGrid) {
		t.Error("unknown grid should be a lookup miss")
	}
	if IsLookupMiss(ErrSizeMismatch) {
		t.Error("size mismatch is not a lookup miss")
	}
}

func TestGridKindString(t *testing.T) {
	if GridUniform.String() != "uniform_rectilinear" {
		t.Errorf("expected uniform_rectilinear, got %s", GridUniform.String())
	}
	if GridKind(99).String() != "unknown" {
		t.Errorf("expected unknown, got %s", GridKind(99).String())
	}
}
