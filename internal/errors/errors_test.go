package errors

import (
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	base := errors.New("open /etc/toolbridge.json: permission denied")

	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      New(CodeValidation, "argument rejected"),
			expected: "argument rejected",
		},
		{
			name:     "message with cause",
			err:      Wrap(CodeConfig, "reading config", base),
			expected: "reading config: open /etc/toolbridge.json: permission denied",
		},
		{
			name:     "cause only",
			err:      &Error{Code: CodeConfig, Err: base},
			expected: "open /etc/toolbridge.json: permission denied",
		},
		{
			name:     "code only",
			err:      &Error{Code: CodeRegistry},
			expected: "registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("unknown config key")
	wrapped := Wrap(CodeConfig, "invalid config", base)

	if !errors.Is(wrapped, base) {
		t.Error("errors.Is should unwrap to base error")
	}

	var coded *Error
	if !errors.As(wrapped, &coded) {
		t.Fatal("errors.As should find *Error")
	}
	if coded.Code != CodeConfig {
		t.Errorf("expected code %q, got %q", CodeConfig, coded.Code)
	}
}

// Sentinel errors in the guard and registry packages are coded; callers can
// recover the code from anything that wraps them.
func TestSentinelStyleErrorsCarryCode(t *testing.T) {
	sentinel := New(CodeValidation, "flag injection")
	wrapped := Wrap(CodeValidation, "parameter rejected", sentinel)

	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is should match the sentinel by identity")
	}
	var coded *Error
	if !errors.As(wrapped, &coded) || coded.Code != CodeValidation {
		t.Errorf("expected validation code, got %+v", coded)
	}
}

func TestNilError(t *testing.T) {
	var err *Error
	if err.Error() != "" {
		t.Errorf("nil error should render empty, got %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("nil error should unwrap to nil")
	}
}
