// Package badger provides a VectorIndex backed by BadgerDB.
//
// Each chunk is stored as one msgpack record holding the embedding and the
// chunk metadata needed to evaluate modality, status and access predicates
// without a join. Search is an exact brute-force cosine scan.
package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

const vectorPrefix = "vec:"

// Options configures the index.
type Options struct {
	// Dir is the badger directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	// Dimensions is the expected embedding size. Zero accepts any size.
	Dimensions int
}

// Index implements driven.VectorIndex.
type Index struct {
	db   *badger.DB
	dims int
	log  logger.Scope
}

var _ driven.VectorIndex = (*Index)(nil)

// record is the stored form of one chunk vector.
type record struct {
	ChunkID     string    `msgpack:"id"`
	ItemID      string    `msgpack:"item"`
	Content     string    `msgpack:"content,omitempty"`
	Position    int       `msgpack:"pos"`
	Modality    string    `msgpack:"modality"`
	Title       string    `msgpack:"title,omitempty"`
	Tags        []string  `msgpack:"tags,omitempty"`
	Size        int64     `msgpack:"size"`
	Sensitivity int       `msgpack:"sens"`
	ProjectID   string    `msgpack:"project,omitempty"`
	CreatorID   string    `msgpack:"creator,omitempty"`
	People      []string  `msgpack:"people,omitempty"`
	Popularity  float64   `msgpack:"pop"`
	Status      string    `msgpack:"status"`
	CreatedAt   int64     `msgpack:"created"`
	Vector      []float32 `msgpack:"vec"`
}

// New opens the index.
func New(opts Options) (*Index, error) {
	var dbOpts badger.Options
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("vector index directory: %w", domain.ErrInvalidInput)
		}
		if err := os.MkdirAll(opts.Dir, 0700); err != nil {
			return nil, fmt.Errorf("creating vector index directory: %w", err)
		}
		dbOpts = badger.DefaultOptions(opts.Dir)
	}

	scope := logger.For("vector")
	dbOpts = dbOpts.WithLogger(&badgerLogger{scope: scope})
	dbOpts.Compression = options.None

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	return &Index{db: db, dims: opts.Dimensions, log: scope}, nil
}

// Upsert stores the embedding for a chunk.
func (x *Index) Upsert(_ context.Context, chunk domain.Chunk, embedding []float32) error {
	if chunk.ID == "" || len(embedding) == 0 {
		return fmt.Errorf("upsert vector: %w", domain.ErrInvalidInput)
	}
	if x.dims > 0 && len(embedding) != x.dims {
		return fmt.Errorf("upsert vector: got %d dimensions, want %d: %w",
			len(embedding), x.dims, domain.ErrInvalidInput)
	}

	data, err := msgpack.Marshal(toRecord(chunk, embedding))
	if err != nil {
		return fmt.Errorf("encoding vector record: %w", err)
	}
	err = x.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(chunk.ID), data)
	})
	if err != nil {
		return fmt.Errorf("storing vector: %w", err)
	}
	return nil
}

// Delete removes a chunk's vector. Deleting a missing vector is not an error.
func (x *Index) Delete(_ context.Context, chunkID string) error {
	err := x.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(chunkID))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("deleting vector: %w", err)
	}
	return nil
}

// Search scans every stored vector and returns the TopK most similar
// chunks that are STORED and pass the modality and access predicates.
// Ties are broken by chunk ID.
func (x *Index) Search(ctx context.Context, q driven.VectorQuery) ([]driven.VectorHit, error) {
	if q.TopK <= 0 {
		return nil, nil
	}
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("vector search: empty embedding: %w", domain.ErrInvalidInput)
	}

	var hits []driven.VectorHit
	scanned := 0
	err := x.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(vectorPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			scanned++

			var rec record
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				x.log.Warn("skipping unreadable record %s: %v", it.Item().Key(), err)
				continue
			}
			if domain.IndexingStatus(rec.Status) != domain.StatusStored {
				continue
			}
			if len(q.Modalities) > 0 && !slices.Contains(q.Modalities, domain.Modality(rec.Modality)) {
				continue
			}
			chunk := rec.chunk()
			if !q.Access.Permits(&chunk) {
				continue
			}
			hits = append(hits, driven.VectorHit{
				ChunkID:    rec.ChunkID,
				Similarity: cosine(q.Embedding, rec.Vector),
				Chunk:      chunk,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ChunkID, b.ChunkID)
	})
	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}

	x.log.Debug("scanned=%d hits=%d", scanned, len(hits))
	return hits, nil
}

// Close closes the underlying database.
func (x *Index) Close() error {
	return x.db.Close()
}

func key(chunkID string) []byte {
	return []byte(vectorPrefix + chunkID)
}

func toRecord(c domain.Chunk, embedding []float32) record {
	var created int64
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.UnixMilli()
	}
	return record{
		ChunkID:     c.ID,
		ItemID:      c.ItemID,
		Content:     c.Content,
		Position:    c.Position,
		Modality:    string(c.Modality),
		Title:       c.Title,
		Tags:        c.Tags,
		Size:        c.Size,
		Sensitivity: int(c.Sensitivity),
		ProjectID:   c.ProjectID,
		CreatorID:   c.CreatorID,
		People:      c.People,
		Popularity:  c.Popularity,
		Status:      string(c.IndexingStatus),
		CreatedAt:   created,
		Vector:      embedding,
	}
}

func (r record) chunk() domain.Chunk {
	var created time.Time
	if r.CreatedAt != 0 {
		created = time.UnixMilli(r.CreatedAt).UTC()
	}
	return domain.Chunk{
		ID:             r.ChunkID,
		ItemID:         r.ItemID,
		Content:        r.Content,
		Position:       r.Position,
		Modality:       domain.Modality(r.Modality),
		Title:          r.Title,
		Tags:           r.Tags,
		Size:           r.Size,
		Sensitivity:    domain.SensitivityLevel(r.Sensitivity),
		ProjectID:      r.ProjectID,
		CreatorID:      r.CreatorID,
		People:         r.People,
		Popularity:     r.Popularity,
		IndexingStatus: domain.IndexingStatus(r.Status),
		CreatedAt:      created,
	}
}

// cosine returns the cosine similarity of a and b over their common prefix.
// A zero vector has similarity 0 with everything.
func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
