package imgerr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFormatsKindAndMessage(t *testing.T) {
	err := New(KindDuplicateComponentName, "%q", "kernel")
	if got := err.Error(); !strings.HasPrefix(got, `DuplicateComponentName("kernel")`) {
		t.Fatalf("Error() = %q, want DuplicateComponentName(\"kernel\") prefix", got)
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(KindFailedDependency, Wrap(KindSubprocessFailed, cause, "nu -c"), "building %q", "top")

	if !Is(err, KindFailedDependency) {
		t.Error("outer kind should match")
	}
	if !Is(err, KindSubprocessFailed) {
		t.Error("wrapped kind should match")
	}
	if Is(err, KindLoopError) {
		t.Error("unrelated kind should not match")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the root cause through Unwrap")
	}
}

func TestBacktraceOnlyWhenEnvSet(t *testing.T) {
	t.Setenv("RUST_BACKTRACE", "")
	if msg := New(KindMountFailed, "x").Error(); strings.Contains(msg, "\n  at ") {
		t.Errorf("backtrace rendered without RUST_BACKTRACE: %q", msg)
	}

	t.Setenv("RUST_BACKTRACE", "1")
	if msg := New(KindMountFailed, "x").Error(); !strings.Contains(msg, "at ") {
		t.Errorf("expected backtrace frames with RUST_BACKTRACE=1, got %q", msg)
	}
}
