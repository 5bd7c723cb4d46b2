package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "https://cdn.example.com/media")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	url, err := store.Store(context.Background(), "gen-1/result-0.mp4", "video/mp4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if url != "https://cdn.example.com/media/gen-1/result-0.mp4" {
		t.Fatalf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "gen-1", "result-0.mp4"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("stored contents = %q", data)
	}
}

func TestFileStoreWithoutBaseURLReturnsKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	url, err := store.Store(context.Background(), "a/b.png", "image/png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if url != "a/b.png" {
		t.Fatalf("url = %q", url)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b.mp4", want: "a/b.mp4"},
		{in: "/a/b.mp4", want: "a/b.mp4"},
		{in: "./a/b.mp4", want: "a/b.mp4"},
		{in: "../escape.mp4", wantErr: true},
		{in: "a/../../escape.mp4", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
