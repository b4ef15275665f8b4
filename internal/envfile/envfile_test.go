package envfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "environment")
	store := New(path)

	if err := store.Append("CUSTOMTABS_VERSION", "1.3.0"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append("ENHANCED_VERSION", "5.1.0"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "CUSTOMTABS_VERSION=1.3.0\nENHANCED_VERSION=5.1.0\n"
	if string(data) != want {
		t.Errorf("expected %q, got %q", want, string(data))
	}
}

func TestAppendNeverDeduplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "environment")
	store := New(path)

	for i := 0; i < 2; i++ {
		if err := store.Append("CUSTOMTABS_VERSION", "1.3.0"); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "CUSTOMTABS_VERSION=1.3.0\nCUSTOMTABS_VERSION=1.3.0\n"
	if string(data) != want {
		t.Errorf("expected repeated lines to accumulate, got %q", string(data))
	}
}
