package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestLoader() *Loader {
	return NewLoader(Options{JVM: NewJVMHost("java", nil)})
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"tft.py", "tft.exe", "README", "tft.java"} {
		path := writeArtifact(t, dir, name, "x")
		h, err := newTestLoader().Load(path)
		if err == nil {
			h.Close()
			t.Fatalf("expected error for %s", name)
		}
		var unsupported *UnsupportedArtifactError
		if !errors.As(err, &unsupported) {
			t.Errorf("%s: expected *UnsupportedArtifactError, got %T: %v", name, err, err)
		}
		if !errors.Is(err, ErrUnsupportedArtifact) {
			t.Errorf("%s: error should match ErrUnsupportedArtifact", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newTestLoader().Load(filepath.Join(t.TempDir(), "ghost.js"))
	var le *AdapterLoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *AdapterLoadError, got %T: %v", err, err)
	}
	if le.Artifact.Name != "ghost" || le.Artifact.Kind != KindScript {
		t.Errorf("unexpected identity %+v", le.Artifact)
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"a/b/tft.so":       KindNative,
		"tft.DLL":          KindNative,
		"tft.dylib":        KindNative,
		".class/Tft.class": KindManaged,
		"tft.js":           KindScript,
		"tft.lua":          KindScript,
	}
	for path, want := range tests {
		got, err := KindOf(path)
		if err != nil {
			t.Errorf("KindOf(%q) failed: %v", path, err)
			continue
		}
		if got != want {
			t.Errorf("KindOf(%q) = %s, want %s", path, got, want)
		}
	}
	if Supported("tft.py") {
		t.Error("python scripts should not be supported")
	}
}

func TestExtensionsSorted(t *testing.T) {
	exts := Extensions()
	want := []string{".class", ".dll", ".dylib", ".js", ".lua", ".so"}
	if len(exts) != len(want) {
		t.Fatalf("Extensions() = %v, want %v", exts, want)
	}
	for i := range want {
		if exts[i] != want[i] {
			t.Errorf("Extensions()[%d] = %s, want %s", i, exts[i], want[i])
		}
	}
}

func TestNameOf(t *testing.T) {
	if got := NameOf("/x/y/TitForTat.class"); got != "TitForTat" {
		t.Errorf("NameOf = %q", got)
	}
	if got := NameOf("grim.lua"); got != "grim" {
		t.Errorf("NameOf = %q", got)
	}
}
