package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/model"
)

// ErrNotPublished is returned by Get when no bulletin exists for the key.
// A missing slot is a normal condition, not an infrastructure failure.
var ErrNotPublished = errors.New("store: bulletin not published")

// Store persists bulletins as one JSON document per (region, date, period)
// under <dir>/<region>/<date>-<period>.json, with a derived index at
// <dir>/index.json. All writes go through a temp file and an atomic rename,
// so a reader never observes a partially written document and a re-run for
// the same slot replaces the prior bulletin wholesale.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// path returns the document path for a key.
func (s *Store) path(key model.Key) string {
	return filepath.Join(s.dir, key.Region, key.Date+"-"+string(key.Period)+".json")
}

// Write persists the bulletin into its slot and regenerates the index. The
// two writes are separate atomic operations; a crash in between leaves a
// correct bulletin and a stale index, which RebuildIndex re-derives at any
// time (the index is a cache, not a source of truth).
func (s *Store) Write(b *model.Bulletin) error {
	if err := b.Validate(); err != nil {
		return eris.Wrap(err, "store: refusing invalid bulletin")
	}

	target := s.path(b.Key())
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return eris.Wrapf(err, "store: mkdir %s", filepath.Dir(target))
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return eris.Wrap(err, "store: marshal bulletin")
	}

	if err := atomicWrite(target, data); err != nil {
		return err
	}

	zap.L().Info("store: bulletin written",
		zap.String("bulletin", b.ID),
		zap.String("path", target),
		zap.Int("articles", len(b.Articles)),
	)

	if _, err := s.RebuildIndex(); err != nil {
		return err
	}
	return nil
}

// Get fetches the bulletin for the exact key, or ErrNotPublished.
func (s *Store) Get(key model.Key) (*model.Bulletin, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotPublished
		}
		return nil, eris.Wrapf(err, "store: read %s", key)
	}
	var b model.Bulletin
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrapf(err, "store: decode %s", key)
	}
	return &b, nil
}

// Previous returns the bulletin immediately preceding the key's slot for
// the same region, or nil when none is stored yet.
func (s *Store) Previous(key model.Key) (*model.Bulletin, error) {
	prior, err := s.Get(key.Previous())
	if errors.Is(err, ErrNotPublished) {
		return nil, nil
	}
	return prior, err
}

// Keys scans the store and returns every stored bulletin key, sorted by
// region, then date, then period. Files that do not match the slot naming
// convention are skipped.
func (s *Store) Keys() ([]model.Key, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "store: scan %s", s.dir)
	}

	var keys []model.Key
	for _, regionDir := range entries {
		if !regionDir.IsDir() {
			continue
		}
		region := regionDir.Name()
		files, err := os.ReadDir(filepath.Join(s.dir, region))
		if err != nil {
			return nil, eris.Wrapf(err, "store: scan region %s", region)
		}
		for _, f := range files {
			key, ok := parseKey(region, f.Name())
			if !ok {
				continue
			}
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Region != keys[j].Region {
			return keys[i].Region < keys[j].Region
		}
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Period < keys[j].Period
	})
	return keys, nil
}

// Delete removes the bulletin for the key. Missing slots are not an error.
func (s *Store) Delete(key model.Key) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "store: delete %s", key)
	}
	return nil
}

// parseKey recovers a slot key from a region directory name and a document
// file name of the form "YYYY-MM-DD-period.json".
func parseKey(region, filename string) (model.Key, bool) {
	name, ok := strings.CutSuffix(filename, ".json")
	if !ok {
		return model.Key{}, false
	}
	idx := strings.LastIndex(name, "-")
	if idx <= 0 {
		return model.Key{}, false
	}
	date, periodStr := name[:idx], name[idx+1:]
	period, err := model.ParsePeriod(periodStr)
	if err != nil {
		return model.Key{}, false
	}
	key := model.Key{Region: region, Date: date, Period: period}
	if err := key.Validate(); err != nil {
		return model.Key{}, false
	}
	return key, true
}

// atomicWrite writes data to path via a same-directory temp file, fsync and
// rename, so readers only ever see the old or the new document.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return eris.Wrapf(err, "store: create temp %s", tmp)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return eris.Wrapf(err, "store: write temp %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return eris.Wrapf(err, "store: sync temp %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return eris.Wrapf(err, "store: close temp %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return eris.Wrapf(err, "store: rename %s", path)
	}
	return nil
}
