package nucdata

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"matforge/internal/diag"
	"matforge/internal/digest"
)

// Cache keeps decoded library snapshots on disk, keyed by the digest of the
// source file bytes, so TOML libraries are parsed and validated once.
// Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cacheEntry struct {
	Schema uint16
	Source digest.Digest
	Stored int64 // unix seconds
	Data   Snapshot
}

// OpenCache opens the cache under $XDG_CACHE_HOME/app (or ~/.cache/app).
func OpenCache(app string) (*Cache, error) {
	dir, err := CacheDir(app)
	if err != nil {
		return nil, err
	}
	return OpenCacheDir(dir)
}

// CacheDir returns the directory OpenCache uses for app without creating it.
func CacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenCacheDir opens a cache rooted at dir.
func OpenCacheDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key digest.Digest) string {
	return filepath.Join(c.dir, "libs", key.Hex()+".mp")
}

// Put stores s under key.
func (c *Cache) Put(key digest.Digest, s *Snapshot) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	entry := cacheEntry{Schema: SnapshotSchema, Source: key, Stored: time.Now().Unix(), Data: *s}
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get loads the snapshot stored under key. A missing entry, an entry written
// with another schema, or one recorded for another key is a miss.
func (c *Cache) Get(key digest.Digest) (*Snapshot, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry cacheEntry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, err
	}
	if entry.Schema != SnapshotSchema || entry.Source != key {
		return nil, false, nil
	}
	return &entry.Data, true, nil
}

// DropAll removes every cached entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// Load reads a library file through the cache. Only TOML sources are cached;
// msgpack snapshots already decode quickly.
func (c *Cache) Load(path string) (*Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, diag.Wrap(diag.InpNotFound, err, "library %s", path)
	}
	isTOML := filepath.Ext(path) == ExtTOML
	key := digest.Of(data)
	if c != nil && isTOML {
		if snap, ok, err := c.Get(key); err == nil && ok {
			return snap, true, nil
		}
	}
	snap, err := Decode(path, data)
	if err != nil {
		return nil, false, err
	}
	if c != nil && isTOML {
		if err := c.Put(key, snap); err != nil {
			return snap, false, err
		}
	}
	return snap, false, nil
}
