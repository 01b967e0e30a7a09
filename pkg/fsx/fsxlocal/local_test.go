package fsxlocal

import (
	"context"
	"strings"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	fs, err := NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := fs.WriteFile(ctx, "uploads/a.txt", []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := fs.ReadFile(ctx, "uploads/a.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", data)
	}

	info, err := fs.Stat(ctx, "uploads/a.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size != 5 || !strings.HasPrefix(info.ContentType, "text/plain") {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestExistsAndDelete(t *testing.T) {
	fs, err := NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if ok, _ := fs.Exists(ctx, "missing.txt"); ok {
		t.Fatal("missing file reported as existing")
	}

	if err := fs.WriteFile(ctx, "f.txt", []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ok, _ := fs.Exists(ctx, "f.txt"); !ok {
		t.Fatal("written file reported as missing")
	}

	if err := fs.DeleteFile(ctx, "f.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := fs.Exists(ctx, "f.txt"); ok {
		t.Fatal("deleted file still exists")
	}

	// Deleting twice is not an error
	if err := fs.DeleteFile(ctx, "f.txt"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestPathTraversalStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	fs, err := NewLocalFileSystem(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	full := fs.fullPath("../../etc/passwd")
	if !strings.HasPrefix(full, root) {
		t.Fatalf("path escaped root: %q", full)
	}
}

func TestList(t *testing.T) {
	fs, err := NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	for _, name := range []string{"docs/a.txt", "docs/b.txt"} {
		if err := fs.WriteFile(ctx, name, []byte("x")); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	infos, err := fs.List(ctx, "docs")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(infos))
	}
}
