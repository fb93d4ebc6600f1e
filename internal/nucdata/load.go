package nucdata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"

	"matforge/internal/diag"
)

// Library file formats, chosen by extension.
const (
	ExtTOML    = ".toml"
	ExtMsgpack = ".mpk"
)

// ReadFile reads and decodes a library file. The returned bytes are the raw
// file content, used by callers as a cache key.
func ReadFile(path string) (*Snapshot, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, diag.Wrap(diag.InpNotFound, err, "library %s", path)
	}
	snap, err := Decode(path, data)
	if err != nil {
		return nil, nil, err
	}
	return snap, data, nil
}

// Decode decodes library content; the format follows the extension of name.
func Decode(name string, data []byte) (*Snapshot, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtTOML:
		return decodeTOML(name, data)
	case ExtMsgpack:
		return decodeMsgpack(name, data)
	}
	return nil, diag.Errorf(diag.DatMalformed, "%s: unsupported library format (expected %s or %s)", name, ExtTOML, ExtMsgpack)
}

func decodeTOML(name string, data []byte) (*Snapshot, error) {
	var snap Snapshot
	meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&snap)
	if err != nil {
		return nil, diag.Wrap(diag.DatMalformed, err, "%s: failed to parse TOML", name)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, diag.Errorf(diag.DatMalformed, "%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("nuclide") && !meta.IsDefined("thermal") {
		return nil, diag.Errorf(diag.DatMalformed, "%s: no [[nuclide]] or [[thermal]] entries", name)
	}
	snap.Schema = SnapshotSchema
	return &snap, nil
}

func decodeMsgpack(name string, data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, diag.Wrap(diag.DatMalformed, err, "%s: failed to decode snapshot", name)
	}
	if snap.Schema != SnapshotSchema {
		return nil, diag.Errorf(diag.DatCacheMismatch, "%s: snapshot schema %d, expected %d", name, snap.Schema, SnapshotSchema)
	}
	return &snap, nil
}

// Encode writes s to w in the format chosen by the extension of name.
func Encode(w io.Writer, name string, s *Snapshot) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtTOML:
		return toml.NewEncoder(w).Encode(s)
	case ExtMsgpack:
		out := *s
		out.Schema = SnapshotSchema
		return msgpack.NewEncoder(w).Encode(&out)
	}
	return fmt.Errorf("%s: unsupported library format", name)
}

// WriteFile atomically writes s to path.
func WriteFile(path string, s *Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := Encode(f, path, s); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// атомарная замена
	return os.Rename(tmp, path)
}
