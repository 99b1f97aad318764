package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "shows.json")

	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.json")
	data, err := WriteJSONAtomic(path, map[string]int{"count": 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\n  \"count\": 2\n}\n" {
		t.Fatalf("unexpected encoding: %q", data)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != string(data) {
		t.Fatalf("disk content mismatch: %q", onDisk)
	}
}

func TestWriteJSONAtomicRejectsUnencodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if _, err := WriteJSONAtomic(path, map[string]any{"fn": func() {}}); err == nil {
		t.Fatal("expected encode error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file should not exist, stat err = %v", err)
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("hello"))
	if a != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatalf("unexpected checksum %s", a)
	}
	if Checksum([]byte("hello!")) == a {
		t.Fatal("different input produced same checksum")
	}
}
