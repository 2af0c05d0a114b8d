// Package cache stores placement results and rendered artifacts keyed by
// their inputs.
//
// The [Cache] interface has four backends:
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: a shared Redis instance, used by the server
//   - [MongoCache]: a MongoDB collection with a TTL index, used by the server
//   - [NullCache]: disables caching
//
// Keys are built by a [Keyer] from content hashes, so identical inputs map to
// the same entry on every backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiration.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of 0 stores the entry without expiration.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry lifetimes.
const (
	TTLResult   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Keyer builds cache keys.
type Keyer interface {
	// ResultKey identifies a placement solution for hashed layer input.
	ResultKey(inputHash string, opts ResultKeyOpts) string
	// ArtifactKey identifies a rendering of a cached result.
	ArtifactKey(resultHash string, opts ArtifactKeyOpts) string
}

// ResultKeyOpts holds every option that changes a placement result.
type ResultKeyOpts struct {
	Extent     [4]float64 `json:"extent"`
	Boundary   string     `json:"boundary,omitempty"`
	Settings   string     `json:"settings"`
	DisplayAll bool       `json:"display_all"`
}

// ArtifactKeyOpts holds every option that changes a rendered artifact.
type ArtifactKeyOpts struct {
	Kind     string `json:"kind"`
	Format   string `json:"format"`
	Width    int    `json:"width,omitempty"`
	Boxes    bool   `json:"boxes,omitempty"`
	Unplaced bool   `json:"unplaced,omitempty"`
	Features bool   `json:"features,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey implements Keyer.
func (DefaultKeyer) ResultKey(inputHash string, opts ResultKeyOpts) string {
	return hashKey("result", inputHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(resultHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", resultHash, opts)
}

// hashKey returns kind + ":" + the SHA-256 of hash followed by the JSON
// encoding of opts.
func hashKey(kind, hash string, opts any) string {
	h := sha256.New()
	h.Write([]byte(hash))
	_ = json.NewEncoder(h).Encode(opts)
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data. Input and result hashes passed to a
// Keyer are built with it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NullCache misses on every Get and drops every Set. The CLI uses it for
// --no-cache and the server when no backend is configured.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() *NullCache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error)          { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }

var _ Cache = (*NullCache)(nil)
