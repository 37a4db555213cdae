package fsdriver

import (
	"testing"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
)

func TestGetKnownDrivers(t *testing.T) {
	for _, name := range []string{"fat32", "ext4"} {
		if _, ok := Get(name); !ok {
			t.Errorf("expected driver %q to be registered", name)
		}
	}
}

func TestMustFormatUnknownFilesystem(t *testing.T) {
	err := MustFormat(nil, "redoxfs", "/dev/null", "label")
	if !imgerr.Is(err, imgerr.KindUnrecognisedFilesystem) {
		t.Fatalf("expected KindUnrecognisedFilesystem, got %v", err)
	}
}

func TestUnmountAllEmpty(t *testing.T) {
	c := NewCoordinator()
	if err := c.UnmountAll(); err != nil {
		t.Fatalf("UnmountAll on empty coordinator: %v", err)
	}
}
