package nucdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"matforge/internal/diag"
	"matforge/internal/digest"
)

const sampleTOML = `
[[nuclide]]
name = "H1"
molar_mass = 1.00782503207
temperatures = [294.0, 600.0]

[[nuclide]]
name = "O16"
molar_mass = 15.99491461956
temperatures = [294.0]

[[thermal]]
name = "c_H_in_H2O"
nuclides = ["H1"]
temperatures = [294.0]
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestReadTOML(t *testing.T) {
	snap, raw, err := ReadFile(writeTemp(t, "lib.toml", sampleTOML))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("raw content not returned")
	}
	if len(snap.Nuclides) != 2 || len(snap.Thermal) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	lib, err := FromSnapshot(snap, DefaultPolicy())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if !lib.HasCrossSections("O16", 293.6) {
		t.Fatalf("O16 missing after load")
	}
}

func TestReadTOMLRejectsUnknownKeys(t *testing.T) {
	_, _, err := ReadFile(writeTemp(t, "lib.toml", sampleTOML+"\n[extra]\nkey = 1\n"))
	if !errors.Is(err, diag.ErrMalformedLibrary) {
		t.Fatalf("expected malformed library, got %v", err)
	}
	_, _, err = ReadFile(writeTemp(t, "lib.toml", "title = 'empty'\n"))
	if !errors.Is(err, diag.ErrMalformedLibrary) {
		t.Fatalf("expected malformed library for empty file, got %v", err)
	}
	_, _, err = ReadFile(writeTemp(t, "lib.json", "{}"))
	if !errors.Is(err, diag.ErrMalformedLibrary) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestSnapshotRoundTripMsgpack(t *testing.T) {
	lib := testLibrary(t, DefaultPolicy())
	path := filepath.Join(t.TempDir(), "pack", "lib.mpk")
	if err := WriteFile(path, lib.Snapshot()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	snap, _, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	again, err := FromSnapshot(snap, DefaultPolicy())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if again.Stats().Nuclides != 3 || !again.HasThermalTable("c_H_in_H2O") {
		t.Fatalf("snapshot lost records: %+v", again.Stats())
	}
	// temperatures were sorted on insertion
	if got := snap.Nuclides[1].Temperatures; got[0] != 294 || got[1] != 600 {
		t.Fatalf("temperatures not sorted: %v", got)
	}
}

func TestCache(t *testing.T) {
	cache, err := OpenCacheDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCacheDir: %v", err)
	}
	path := writeTemp(t, "lib.toml", sampleTOML)

	first, hit, err := cache.Load(path)
	if err != nil || hit {
		t.Fatalf("first load: hit=%v err=%v", hit, err)
	}
	second, hit, err := cache.Load(path)
	if err != nil || !hit {
		t.Fatalf("second load: hit=%v err=%v", hit, err)
	}
	if len(second.Nuclides) != len(first.Nuclides) || second.Nuclides[0].Name != "H1" {
		t.Fatalf("cached snapshot differs: %+v", second)
	}

	if _, ok, err := cache.Get(digest.Of([]byte("other"))); ok || err != nil {
		t.Fatalf("unexpected hit for unknown key: %v %v", ok, err)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, hit, _ := cache.Load(path); hit {
		t.Fatalf("hit after DropAll")
	}

	var nilCache *Cache
	if _, hit, err := nilCache.Load(path); err != nil || hit {
		t.Fatalf("nil cache load: hit=%v err=%v", hit, err)
	}
}
