// Package objstore implements the content-addressed object store: the
// fanout directory layout under .VCS/objects, framing/compression of
// blob/tree/commit payloads, and a badger-backed metadata mirror plus an
// LRU payload cache in front of the filesystem.
package objstore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"cellvcs/internal/codec"
	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
)

// Kind is one of the three object variants the store holds.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

const objectsDirName = "objects"

// payloadCacheSize bounds the number of decompressed payloads held in
// memory; it trades a bounded amount of RAM for skipping inflate on
// repeated reads of the same object (hot trees and recent commits).
const payloadCacheSize = 512

// Store reads and writes objects under <root>/objects/<hh>/<rest>.
//
// meta, if non-nil, mirrors object existence/kind/size into a badger
// database so Exists can short-circuit a stat with a DB lookup; Get does
// not consult it (Get uses the LRU payload cache, then the filesystem).
// The mirror is purely a cache: every fact it holds is reconstructible by
// rescanning the objects directory, so a nil meta (or one that has lost
// its data) degrades to filesystem-only behavior, never corruption.
type Store struct {
	root string
	meta *MetaCache

	mu    sync.Mutex
	cache *lru.Cache[hashing.Hash, cachedPayload]
}

type cachedPayload struct {
	kind    Kind
	payload []byte
}

// Open prepares a Store rooted at <root>/objects, where root is the .VCS
// directory (so objects land under .VCS/objects). meta may be nil to
// run without the badger metadata mirror (filesystem-only mode).
func Open(root string, meta *MetaCache) (*Store, error) {
	objRoot := filepath.Join(root, objectsDirName)
	if err := os.MkdirAll(objRoot, 0o755); err != nil {
		return nil, errors.IoFailure("creating objects directory: " + err.Error())
	}
	c, err := lru.New[hashing.Hash, cachedPayload](payloadCacheSize)
	if err != nil {
		return nil, errors.IoFailure("allocating object cache: " + err.Error())
	}
	return &Store{root: objRoot, meta: meta, cache: c}, nil
}

func (s *Store) pathFor(h hashing.Hash) string {
	hex := h.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Put frames, hashes, zlib-compresses, and writes payload under its
// content address, skipping the write entirely if the object already
// exists (idempotent by construction — content-addressed writes of the
// same hash are indistinguishable from a no-op retry).
func (s *Store) Put(kind Kind, payload []byte) (hashing.Hash, error) {
	framed, hash, err := hashing.FrameAndHash(string(kind), payload)
	if err != nil {
		return hashing.Hash{}, err
	}

	if s.Exists(hash) {
		return hash, nil
	}

	compressed, err := codec.Deflate(framed)
	if err != nil {
		return hashing.Hash{}, errors.IoFailure("compressing object: " + err.Error())
	}

	path := s.pathFor(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return hashing.Hash{}, errors.IoFailure("creating fanout directory: " + err.Error())
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-obj-*")
	if err != nil {
		return hashing.Hash{}, errors.IoFailure("creating temp object file: " + err.Error())
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return hashing.Hash{}, errors.IoFailure("writing object: " + err.Error())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return hashing.Hash{}, errors.IoFailure("closing object: " + err.Error())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		if s.Exists(hash) {
			return hash, nil
		}
		return hashing.Hash{}, errors.IoFailure("finalizing object: " + err.Error())
	}

	if s.meta != nil {
		s.meta.Record(hash, string(kind), len(payload), len(compressed))
	}
	s.mu.Lock()
	s.cache.Add(hash, cachedPayload{kind: kind, payload: payload})
	s.mu.Unlock()

	return hash, nil
}

// Get reads and decompresses the object at hash, returning its kind and
// payload.
func (s *Store) Get(hash hashing.Hash) (Kind, []byte, error) {
	s.mu.Lock()
	if cached, ok := s.cache.Get(hash); ok {
		s.mu.Unlock()
		return cached.kind, cached.payload, nil
	}
	s.mu.Unlock()

	path := s.pathFor(hash)
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errors.NotFound("object not found: " + hash.String())
		}
		return "", nil, errors.IoFailure("reading object: " + err.Error())
	}

	framed, err := codec.Inflate(compressed)
	if err != nil {
		return "", nil, errors.CorruptObject("inflating object " + hash.String() + ": " + err.Error())
	}

	kind, payload, err := splitFramed(framed)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.cache.Add(hash, cachedPayload{kind: Kind(kind), payload: payload})
	s.mu.Unlock()

	return Kind(kind), payload, nil
}

// splitFramed parses "<type> <len>\0<payload>", verifying that len
// matches the remaining bytes.
func splitFramed(framed []byte) (kind string, payload []byte, err error) {
	nul := -1
	for i, b := range framed {
		if b == 0 {
			nul = i
			break
		}
	}
	if nul < 0 {
		return "", nil, errors.CorruptObject("object framing missing NUL separator")
	}
	header := string(framed[:nul])
	sp := strings.IndexByte(header, ' ')
	if sp < 0 {
		return "", nil, errors.CorruptObject("object header missing type/length separator")
	}
	kind = header[:sp]
	lenStr := header[sp+1:]
	n := 0
	for _, c := range lenStr {
		if c < '0' || c > '9' {
			return "", nil, errors.CorruptObject("object header has non-numeric length")
		}
		n = n*10 + int(c-'0')
	}
	payload = framed[nul+1:]
	if len(payload) != n {
		return "", nil, errors.CorruptObject("object header length mismatch")
	}
	return kind, payload, nil
}

// Exists reports whether hash resolves to an object already in the store,
// consulting the metadata mirror before falling back to a stat.
func (s *Store) Exists(hash hashing.Hash) bool {
	if s.meta != nil {
		if ok, hit := s.meta.Exists(hash); hit {
			return ok
		}
	}
	_, err := os.Stat(s.pathFor(hash))
	return err == nil
}
