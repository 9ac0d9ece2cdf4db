// Package cache is the analysis/batch cache façade consumed by the batch
// orchestrator. Values are zstd-compressed JSON in sqlite; keys derive from
// repository paths plus serialized analysis options, so identical logical
// requests always hit the same entry.
package cache

import (
	"encoding/json"
	"time"

	"github.com/klauspost/compress/zstd"

	"repolens/internal/analysis"
	"repolens/internal/config"
	"repolens/internal/dedup"
	"repolens/internal/logging"
	"repolens/internal/storage"
)

// Cache wraps the sqlite cache tables. All read failures degrade to a miss
// and all write failures are logged and swallowed: losing a cache entry must
// never lose computed analysis work.
type Cache struct {
	db     *storage.DB
	logger *logging.Logger

	analysisTTL time.Duration
	batchTTL    time.Duration

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a Cache over db with TTLs from cfg.
func New(db *storage.DB, logger *logging.Logger, cfg config.CacheConfig) (*Cache, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Cache{
		db:          db,
		logger:      logger,
		analysisTTL: time.Duration(cfg.AnalysisTtlSeconds) * time.Second,
		batchTTL:    time.Duration(cfg.BatchTtlSeconds) * time.Second,
		enc:         enc,
		dec:         dec,
	}, nil
}

// GetAnalysis returns the cached analysis for (path, opts), or nil on a miss.
func (c *Cache) GetAnalysis(path string, opts analysis.Options) *analysis.RepositoryAnalysis {
	key := dedup.Key([]string{path}, opts)

	blob, found, err := c.db.GetAnalysisBlob(key)
	if err != nil {
		c.logger.Warn("Analysis cache read failed, treating as miss", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	if !found {
		return nil
	}

	var result analysis.RepositoryAnalysis
	if !c.decode(blob, &result) {
		return nil
	}
	return &result
}

// SetAnalysis stores an analysis under (path, opts).
func (c *Cache) SetAnalysis(path string, opts analysis.Options, a *analysis.RepositoryAnalysis) {
	key := dedup.Key([]string{path}, opts)

	blob, ok := c.encode(a)
	if !ok {
		return
	}
	if err := c.db.SetAnalysisBlob(key, path, blob, c.analysisTTL); err != nil {
		c.logger.Warn("Analysis cache write failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// GetBatch unmarshals the cached batch result for (paths, opts) into out and
// reports whether a valid entry was found.
func (c *Cache) GetBatch(paths []string, opts analysis.Options, out interface{}) bool {
	key := dedup.Key(paths, opts)

	blob, found, err := c.db.GetBatchBlob(key)
	if err != nil {
		c.logger.Warn("Batch cache read failed, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	if !found {
		return false
	}
	return c.decode(blob, out)
}

// SetBatch stores a batch result under (paths, opts). Returns an error so the
// orchestrator can log the failure; the result itself is unaffected.
func (c *Cache) SetBatch(paths []string, opts analysis.Options, v interface{}) error {
	key := dedup.Key(paths, opts)

	blob, ok := c.encode(v)
	if !ok {
		return nil
	}
	return c.db.SetBatchBlob(key, blob, c.batchTTL)
}

func (c *Cache) encode(v interface{}) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Cache encode failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	return c.enc.EncodeAll(data, nil), true
}

func (c *Cache) decode(blob []byte, out interface{}) bool {
	data, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		c.logger.Warn("Cache decompress failed, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("Cache decode failed, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return true
}
