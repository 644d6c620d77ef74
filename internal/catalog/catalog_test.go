package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MJE43/pd-arena/internal/strategy"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "tft.js"))
	touch(t, filepath.Join(root, "grim.lua"))
	touch(t, filepath.Join(root, "build.py"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".class", "Random.class"))
	touch(t, filepath.Join(root, ".exe", "defect.so"))
	touch(t, filepath.Join(root, ".exe", "defect.c"))
	touch(t, filepath.Join(root, "deep", "nested", "hidden.js"))

	got, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []struct {
		name string
		kind strategy.Kind
	}{
		{"Random", strategy.KindManaged},
		{"defect", strategy.KindNative},
		{"grim", strategy.KindScript},
		{"tft", strategy.KindScript},
	}
	if len(got) != len(want) {
		t.Fatalf("Discover returned %d artifacts: %+v", len(got), got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Kind != w.kind {
			t.Errorf("artifact %d = %+v, want %s/%s", i, got[i], w.name, w.kind)
		}
	}
	if paths := Paths(got); paths[3] != filepath.Join(root, "tft.js") {
		t.Errorf("unexpected path %s", paths[3])
	}
}

func TestDiscoverMissingFolder(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestRegisterAndGet(t *testing.T) {
	store := testStore(t)

	e := &Entry{Name: "tft", Path: "/s/tft.js", Kind: strategy.KindScript, SHA256: "abc", InitialMove: "c"}
	if err := store.Register(e); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}

	got, err := store.Get("/s/tft.js")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != e.ID || got.Kind != strategy.KindScript || got.InitialMove != "c" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.VerifiedAt.IsZero() {
		t.Error("expected VerifiedAt to be set")
	}
}

func TestRegisterReplacesByPath(t *testing.T) {
	store := testStore(t)

	first := &Entry{Name: "tft", Path: "/s/tft.js", Kind: strategy.KindScript, SHA256: "1", InitialMove: "c"}
	if err := store.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	second := &Entry{Name: "tft", Path: "/s/tft.js", Kind: strategy.KindScript, SHA256: "2", InitialMove: "d"}
	if err := store.Register(second); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("re-registration should keep the ID, got %s vs %s", second.ID, first.ID)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].SHA256 != "2" || list[0].InitialMove != "d" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestSameNameDifferentPathsCoexist(t *testing.T) {
	store := testStore(t)

	for _, path := range []string{"/s/tft.lua", "/s/tft.js"} {
		if err := store.Register(&Entry{Name: "tft", Path: path, Kind: strategy.KindScript, InitialMove: "c"}); err != nil {
			t.Fatalf("Register %s: %v", path, err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Path != "/s/tft.js" || list[1].Path != "/s/tft.lua" {
		t.Fatalf("expected both tft entries, got %+v", list)
	}
	if list[0].ID == list[1].ID {
		t.Error("entries should have distinct IDs")
	}

	if err := store.Remove("/s/tft.js"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Get("/s/tft.lua"); err != nil {
		t.Errorf("tft.lua should survive removing tft.js: %v", err)
	}
}

func TestListOrderAndRemove(t *testing.T) {
	store := testStore(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := store.Register(&Entry{Name: name, Path: "/" + name, Kind: strategy.KindNative, InitialMove: "d"}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Name != "alpha" || list[2].Name != "zeta" {
		t.Errorf("unexpected order %+v", list)
	}

	if err := store.Remove("/mid"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove("/mid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove = %v, want ErrNotFound", err)
	}
	if _, err := store.Get("/mid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove = %v, want ErrNotFound", err)
	}
}
