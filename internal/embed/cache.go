package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
)

// Cache persists vectors in badger keyed by model and text, so reruns over
// the same collection skip the remote call.
type Cache struct {
	db    *badger.DB
	next  Embedder
	model string
	stats *Stats
}

// OpenCache opens (or creates) a badger directory at path.
func OpenCache(path, model string, next Embedder, stats *Stats) (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return &Cache{db: db, next: next, model: model, stats: stats}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) key(text string) []byte {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return append([]byte("emb:"), h[:]...)
}

func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	var cached []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cached, err = decodeVector(val)
			return err
		})
	})
	switch {
	case err == nil:
		c.record(true)
		return cached, nil
	case !errors.Is(err, badger.ErrKeyNotFound):
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}

	c.record(false)
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, encodeVector(v))
	}); err != nil {
		return nil, fmt.Errorf("write embedding cache: %w", err)
	}
	return v, nil
}

func (c *Cache) record(hit bool) {
	if c.stats != nil {
		c.stats.RecordCache(hit)
	}
}

// encodeVector stores float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
