package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorRendering(t *testing.T) {
	err := New("core/pool", CodeTimeout, WithMessage("acquire timed out"), WithRemediation("retry or raise the deadline"))
	got := err.Error()
	want := `component=core/pool code=timeout message="acquire timed out" remediation="retry or raise the deadline"`
	if got != want {
		t.Fatalf("unexpected rendering:\n got %q\nwant %q", got, want)
	}
}

func TestNilReceiver(t *testing.T) {
	var err *E
	if err.Error() != "<nil>" {
		t.Fatalf("expected <nil>, got %q", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New("core/pool", CodeInternal, WithCause(cause))
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find cause")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Fatalf("nil error should have empty code, got %q", got)
	}
	err := New("core/pool", CodeClosed)
	if got := CodeOf(err); got != CodeClosed {
		t.Fatalf("expected %q, got %q", CodeClosed, got)
	}
	wrapped := fmt.Errorf("acquire: %w", err)
	if got := CodeOf(wrapped); got != CodeClosed {
		t.Fatalf("expected %q through wrapping, got %q", CodeClosed, got)
	}
	if got := CodeOf(errors.New("foreign")); got != CodeInternal {
		t.Fatalf("foreign errors map to internal, got %q", got)
	}
}

func TestDefaultsForBlankFields(t *testing.T) {
	err := New("  ", Code(""))
	got := err.Error()
	want := "component=unknown code=unknown"
	if got != want {
		t.Fatalf("unexpected rendering: got %q want %q", got, want)
	}
}
