package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nri-news/brief-cli/internal/model"
)

// IndexEntry summarizes one stored bulletin for fast existence checks.
type IndexEntry struct {
	Region       string       `json:"region"`
	Date         string       `json:"date"`
	Period       model.Period `json:"period"`
	ArticleCount int          `json:"article_count"`
	GeneratedAt  time.Time    `json:"generated_at"`
	Path         string       `json:"path"` // relative to the store root
}

// Index is the store-wide listing of available bulletins. It is derived
// state: always rebuildable from a full scan.
type Index struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Bulletins   []IndexEntry `json:"bulletins"`
}

// indexPath returns the index document location.
func (s *Store) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

// ReadIndex loads the current index document. A missing index yields an
// empty one.
func (s *Store) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{}, nil
		}
		return nil, eris.Wrap(err, "store: read index")
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, eris.Wrap(err, "store: decode index")
	}
	return &idx, nil
}

// RebuildIndex re-derives the index from a full store scan and writes it
// with the same atomic-replace discipline as bulletins. Bulletins that fail
// to decode are skipped rather than failing the whole rebuild.
func (s *Store) RebuildIndex() (*Index, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}

	idx := &Index{
		GeneratedAt: time.Now().UTC(),
		Bulletins:   make([]IndexEntry, 0, len(keys)),
	}
	for _, key := range keys {
		b, err := s.Get(key)
		if err != nil {
			if errors.Is(err, ErrNotPublished) {
				continue
			}
			// A corrupt document should not block indexing the rest.
			continue
		}
		idx.Bulletins = append(idx.Bulletins, IndexEntry{
			Region:       key.Region,
			Date:         key.Date,
			Period:       key.Period,
			ArticleCount: len(b.Articles),
			GeneratedAt:  b.GeneratedAt,
			Path:         filepath.Join(key.Region, key.Date+"-"+string(key.Period)+".json"),
		})
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal index")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: mkdir %s", s.dir)
	}
	if err := atomicWrite(s.indexPath(), data); err != nil {
		return nil, err
	}
	return idx, nil
}
