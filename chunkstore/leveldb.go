// Package chunkstore provides a reference spora.ChunkStore implementation
// backed by LevelDB with a fastcache-based hot-chunk cache in front of
// it. The real chunk store (RocksDB-backed, with secondary indices over
// the weave) is an out-of-scope external collaborator per spec.md §1;
// this package exists so the I/O worker has a concrete, working store to
// exercise end to end.
package chunkstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"

	"github.com/weavemesh/spora-miner/spora"
)

// Store implements spora.ChunkStore over a LevelDB instance keyed by
// big-endian byte offset, rounded down to the chunk boundary.
type Store struct {
	db    *leveldb.DB
	cache *Cache
	log   *zap.SugaredLogger
}

// Open opens (creating if absent) a LevelDB store at path, wrapped with
// a cache sized cacheBytes.
func Open(path string, cacheBytes int, log *zap.SugaredLogger) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: open leveldb at %s: %w", path, err)
	}
	return &Store{db: db, cache: NewCache(cacheBytes), log: log}, nil
}

// Close releases the underlying LevelDB handle (spec §4.2, "On shutdown
// signal, close file handles").
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements spora.ChunkStore. byteOffset is rounded down to the
// chunk boundary before lookup, matching how a recall byte always
// addresses the chunk that contains it rather than an arbitrary byte.
func (s *Store) Get(ctx context.Context, byteOffset uint64) ([]byte, error) {
	key := chunkKey(byteOffset)

	if chunk, ok := s.cache.Get(key); ok {
		return chunk, nil
	}

	chunk, err := s.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, spora.ErrChunkNotFound
		}
		return nil, fmt.Errorf("chunkstore: get chunk at offset %d: %w", byteOffset, err)
	}

	s.cache.Set(key, chunk)
	return chunk, nil
}

// Put stores a chunk, for use by ingestion/backfill paths that populate
// the store the real chunk-replication pipeline would own.
func (s *Store) Put(ctx context.Context, byteOffset uint64, chunk []byte) error {
	key := chunkKey(byteOffset)
	if err := s.db.Put(key, chunk, nil); err != nil {
		return fmt.Errorf("chunkstore: put chunk at offset %d: %w", byteOffset, err)
	}
	s.cache.Set(key, chunk)
	return nil
}

func chunkKey(byteOffset uint64) []byte {
	aligned := (byteOffset / spora.ChunkSize) * spora.ChunkSize
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], aligned)
	return key[:]
}
