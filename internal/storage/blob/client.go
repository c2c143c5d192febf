// internal/storage/blob/client.go
package blob

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// MaxDeleteBatch bounds a single DeleteBatch call; callers chunk larger sets.
const MaxDeleteBatch = 1000

// entry wraps a stored artifact. The payload stays gzip-compressed at rest;
// LastModified drives the garbage collector's age computation.
type entry struct {
	Payload      []byte    `json:"payload"`
	LastModified time.Time `json:"lastModified"`
}

// Client is a compressed blob store backed by LevelDB. It is the hub's only
// persistence layer: one gzip-compressed JSON blob per key.
type Client struct {
	db     *leveldb.DB
	logger *slog.Logger
	mutex  sync.RWMutex
}

func NewClient(cfg config.BlobConfig, logger *slog.Logger) (*Client, error) {
	opts := &opt.Options{
		CompactionTableSize: 2 * 1024 * 1024, // 2MB
		WriteBuffer:         1 * 1024 * 1024, // 1MB
	}

	db, err := leveldb.OpenFile(cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	return &Client{db: db, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// ResultsKey returns the well-known key holding a task's result record.
func ResultsKey(taskID string) string {
	return fmt.Sprintf("%s-results", taskID)
}

// PutJSON overwrites the blob at key with the gzip-compressed JSON encoding of v.
func (c *Client) PutJSON(key string, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal blob %s: %w", key, err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return fmt.Errorf("failed to compress blob %s: %w", key, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress blob %s: %w", key, err)
	}

	c.logger.Info("stored json blob",
		"key", key,
		"json_mb", toMB(len(raw)),
		"gzip_mb", toMB(buf.Len()),
	)

	data, err := json.Marshal(entry{Payload: buf.Bytes(), LastModified: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal blob entry %s: %w", key, err)
	}

	return c.db.Put([]byte(key), data, nil)
}

// GetJSON reads and decompresses the blob at key into v. The second return is
// false when no blob exists; absence is an outcome, not an error.
func (c *Client) GetJSON(key string, v any) (bool, error) {
	payload, _, found, err := c.GetRaw(key)
	if err != nil || !found {
		return found, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return true, fmt.Errorf("failed to decompress blob %s: %w", key, err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return true, fmt.Errorf("failed to decompress blob %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to unmarshal blob %s: %w", key, err)
	}
	return true, nil
}

// GetRaw returns the stored gzip bytes as-is, for direct client consumption.
func (c *Client) GetRaw(key string) ([]byte, time.Time, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, err := c.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to unmarshal blob entry %s: %w", key, err)
	}
	return e.Payload, e.LastModified, true, nil
}

// Exists reports whether a blob is present at key, regardless of its contents.
func (c *Client) Exists(key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	found, err := c.db.Has([]byte(key), nil)
	if err != nil {
		return false, err
	}
	return found, nil
}

// Walk enumerates every stored key with its last-modified timestamp. The
// iteration is lazy and restartable from the start only.
func (c *Client) Walk(fn func(key string, lastModified time.Time) error) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	iter := c.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		var e entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		if err := fn(string(iter.Key()), e.LastModified); err != nil {
			return err
		}
	}
	return iter.Error()
}

// DeleteBatch removes up to MaxDeleteBatch keys in one write. Deleting an
// absent key is a no-op.
func (c *Client) DeleteBatch(keys []string) error {
	if len(keys) > MaxDeleteBatch {
		return fmt.Errorf("delete batch of %d exceeds limit of %d", len(keys), MaxDeleteBatch)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	batch := new(leveldb.Batch)
	for _, key := range keys {
		batch.Delete([]byte(key))
	}
	return c.db.Write(batch, nil)
}

// toMB converts a byte count to megabytes rounded to two decimals.
func toMB(n int) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}
