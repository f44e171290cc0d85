package prefabs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func useDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := Dir
	Dir = dir
	t.Cleanup(func() { Dir = prev })
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestEmbeddedPrefabs(t *testing.T) {
	useDir(t)
	cases := []struct {
		file       string
		name       string
		shape      string
		components []string
		bounds     int
	}{
		{"crate.yaml", "crate", "box", []string{"network_sync", "model", "physics"}, 3},
		{"ball.yaml", "ball", "sphere", []string{"network_sync", "model"}, 1},
		{"pillar.yaml", "pillar", "cylinder", []string{"model", "physics"}, 2},
		{"player.yaml", "player", "", []string{"player_tag", "network_sync", "model", "player_physics"}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spec, err := LoadPrefab(c.file)
			if err != nil {
				t.Fatalf("LoadPrefab: %v", err)
			}
			if spec.Name != c.name || spec.Data[KeyShape] != c.shape {
				t.Fatalf("unexpected spec %+v", spec)
			}
			if !slices.Equal(spec.Components, c.components) {
				t.Fatalf("expected components %v, got %v", c.components, spec.Components)
			}
			n := 0
			for k := range spec.Collision {
				if len(k) > len(BoundsPrefix) && k[:len(BoundsPrefix)] == BoundsPrefix {
					n++
				}
			}
			if n != c.bounds {
				t.Fatalf("expected %d bounds, got %d", c.bounds, n)
			}
		})
	}
}

func TestDiskOverridesEmbedded(t *testing.T) {
	dir := useDir(t)
	writeFile(t, dir, "crate.yaml", "components: [model]\ndata:\n  Model: disk.obj\n")
	writeFile(t, dir, "extra.yml", "name: extra\n")

	spec, err := LoadPrefab(filepath.Join(dir, "crate.yaml"))
	if err != nil {
		t.Fatalf("LoadPrefab: %v", err)
	}
	if spec.Name != "crate" || spec.Data[KeyModel] != "disk.obj" {
		t.Fatalf("expected disk override named after its file, got %+v", spec)
	}
	if _, ok := ModTime("crate.yaml"); !ok {
		t.Fatalf("expected mod time for disk prefab")
	}

	files, err := Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"ball.yaml", "crate.yaml", "extra.yml", "pillar.yaml", "player.yaml"}
	if !slices.Equal(files, want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
}

func TestSpecCloneIsDeep(t *testing.T) {
	spec, err := ParseSpec([]byte("components: [a]\ndata: {Model: m}\ncollision: {Mass: 1}\n"), "fallback")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if spec.Name != "fallback" {
		t.Fatalf("expected fallback name, got %q", spec.Name)
	}
	c := spec.Clone()
	c.Components[0] = "b"
	c.Data[KeyModel] = "other"
	c.Collision[KeyMass] = 9
	if spec.Components[0] != "a" || spec.Data[KeyModel] != "m" || spec.Collision[KeyMass] != 1 {
		t.Fatalf("clone shares state with original: %+v", spec)
	}
	if _, err := ParseSpec([]byte("collision: [1, 2"), "bad"); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestLibraryLoadAndReload(t *testing.T) {
	dir := useDir(t)
	rejected := errors.New("rejected")
	lib := NewLibrary(func(s PrefabSpec) error {
		if s.Data[KeyModel] == "bad" {
			return rejected
		}
		return nil
	})
	if err := lib.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got := lib.Names(); !slices.Equal(got, []string{"ball", "crate", "pillar", "player"}) {
		t.Fatalf("unexpected names %v", got)
	}

	p := writeFile(t, dir, "crate.yaml", "name: crate\ndata: {Model: v2}\n")
	spec, err := lib.Reload(p)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if spec.Data[KeyModel] != "v2" {
		t.Fatalf("expected reloaded model v2, got %+v", spec)
	}
	got, err := lib.Get("crate")
	if err != nil || got.Data[KeyModel] != "v2" {
		t.Fatalf("expected library to serve v2, got %+v (%v)", got, err)
	}

	writeFile(t, dir, "crate.yaml", "name: crate\ndata: {Model: bad}\n")
	if _, err := lib.Reload(p); !errors.Is(err, rejected) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, _ := lib.Get("crate"); got.Data[KeyModel] != "v2" {
		t.Fatalf("invalid reload must keep the previous spec")
	}

	q := writeFile(t, dir, "temp.yaml", "name: temp\n")
	if _, err := lib.Reload(q); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := os.Remove(q); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := lib.Reload(q); err == nil {
		t.Fatalf("expected error reloading a deleted file")
	}
	if _, err := lib.Get("temp"); !errors.Is(err, ErrUnknownPrefab) {
		t.Fatalf("expected deleted prefab to be dropped, got %v", err)
	}
}

func TestLibraryGetReturnsCopy(t *testing.T) {
	lib := NewLibrary(nil)
	if err := lib.Put("x.yaml", PrefabSpec{Name: "x", Collision: map[string]float64{KeyMass: 1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	a, _ := lib.Get("x")
	a.Collision[KeyMass] = 100
	b, _ := lib.Get("x")
	if b.Collision[KeyMass] != 1 {
		t.Fatalf("Get must not expose library state")
	}
	if err := lib.Put("y.yaml", PrefabSpec{}); err == nil {
		t.Fatalf("expected error for unnamed spec")
	}
}

func TestWatcherReportsYAMLChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeFile(t, dir, "notes.txt", "ignored")
	target := writeFile(t, dir, "crate.yaml", "name: crate\n")

	select {
	case got := <-w.Events:
		if filepath.Clean(got) != filepath.Clean(target) {
			t.Fatalf("expected event for %s, got %s", target, got)
		}
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for watcher event")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for range w.Events {
	}
}
