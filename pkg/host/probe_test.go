package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dockhand/dockhand/pkg/execx"
)

func TestPresenceString(t *testing.T) {
	tests := []struct {
		p    Presence
		want string
	}{
		{Present, "present"},
		{Absent, "absent"},
		{Unknown, "unknown"},
		{Presence(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Presence(%d).String() = %q, want %q", int(tt.p), got, tt.want)
		}
	}
}

func TestPresenceZeroValueIsUnknown(t *testing.T) {
	var p Presence
	if p != Unknown {
		t.Errorf("zero value = %v, want Unknown", p)
	}
}

func TestBinaryPresence(t *testing.T) {
	fake := &execx.Fake{Paths: map[string]string{"git": "/usr/bin/git"}}

	if got := BinaryPresence(fake, "git"); got != Present {
		t.Errorf("BinaryPresence(git) = %v, want Present", got)
	}
	if got := BinaryPresence(fake, "docker"); got != Absent {
		t.Errorf("BinaryPresence(docker) = %v, want Absent", got)
	}
}

func TestDirPresence(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want Presence
	}{
		{"existing dir", dir, Present},
		{"missing", filepath.Join(dir, "nope"), Absent},
		{"regular file", file, Absent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DirPresence(tt.path); got != tt.want {
				t.Errorf("DirPresence(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFilePresence(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "key")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want Presence
	}{
		{"existing file", file, Present},
		{"missing", filepath.Join(dir, "nope"), Absent},
		{"directory", dir, Absent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilePresence(tt.path); got != tt.want {
				t.Errorf("FilePresence(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
