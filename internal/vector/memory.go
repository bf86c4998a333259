package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search
// over unit-normalized vectors. Entries are kept in insertion order so that
// ties and truncation are reproducible across runs.
type MemoryIndex struct {
	dimensions int
	entries    []Entry
	byID       map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		byID:       make(map[string]int),
	}, nil
}

// Upsert inserts or replaces entries keyed by node id. A replaced entry keeps
// its original position so iteration order stays stable.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if e.NodeID == "" {
			return fmt.Errorf("entry missing node id")
		}
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(e.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		e.Vector = vec
		if i, ok := m.byID[e.NodeID]; ok {
			m.entries[i] = e
			continue
		}
		m.byID[e.NodeID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

// Delete removes entries by node id. Unknown ids are ignored.
func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if !removeSet[e.NodeID] {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	m.byID = make(map[string]int, len(kept))
	for i, e := range kept {
		m.byID[e.NodeID] = i
	}
	return nil
}

// Query returns up to k entries of the project ordered by ascending cosine
// distance. Ties keep insertion order.
func (m *MemoryIndex) Query(ctx context.Context, query []float32, projectID string, k int) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		return nil, nil
	}
	var scored []Result
	for _, e := range m.entries {
		if e.ProjectID != projectID {
			continue
		}
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * e.Vector[j])
		}
		scored = append(scored, Result{NodeID: e.NodeID, Distance: 1.0 - dot})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Entries returns all entries of a project in insertion order, without vectors.
func (m *MemoryIndex) Entries(ctx context.Context, projectID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.entries {
		if e.ProjectID != projectID {
			continue
		}
		e.Vector = nil
		out = append(out, e)
	}
	return out, nil
}

// Count returns the number of entries across all projects.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Save persists the index to path. Directory is created if needed. Format:
// dimension (4), n (4), then per entry: node id, project id, content hash,
// source document (each length-prefixed), page index (4), vector (dimension*4).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range m.entries {
		for _, s := range []string{e.NodeID, e.ProjectID, e.ContentHash, e.SourceDocument} {
			if err := writeString(f, s); err != nil {
				return err
			}
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(e.PageIndex)); err != nil {
			return fmt.Errorf("write page index: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimensions must match. If the file does not exist, no error is returned and
// the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	entries := make([]Entry, 0, n)
	byID := make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var e Entry
		fields := []*string{&e.NodeID, &e.ProjectID, &e.ContentHash, &e.SourceDocument}
		for _, field := range fields {
			s, err := readString(f)
			if err != nil {
				return err
			}
			*field = s
		}
		var page uint32
		if err := binary.Read(f, binary.LittleEndian, &page); err != nil {
			return fmt.Errorf("read page index: %w", err)
		}
		e.PageIndex = int(page)
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		e.Vector = bytesToFloat32Slice(buf)
		byID[e.NodeID] = len(entries)
		entries = append(entries, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.byID = byID
	return nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func writeString(f *os.File, s string) error {
	b := []byte(s)
	if err := binary.Write(f, binary.LittleEndian, uint32(len(b))); err != nil {
		return fmt.Errorf("write string len: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

func readString(f *os.File) (string, error) {
	var n uint32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read string len: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(f, b); err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
