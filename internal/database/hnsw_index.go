package database

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSWIndexMetadata stores metadata for validating cached HNSW indexes.
type HNSWIndexMetadata struct {
	IdentityCount int64     `json:"identity_count"`
	MaxIdentityID int64     `json:"max_identity_id"`
	Dim           int       `json:"dim"`
	BuildTime     time.Time `json:"build_time"`
	Version       int       `json:"version"`
}

const hnswMetadataVersion = 2

// HNSWIndex wraps the HNSW graph for descriptor search by Euclidean distance.
// Deleted identities stay in the graph but are dropped from results.
type HNSWIndex struct {
	graph *hnsw.Graph[int64]
	byID  map[int64]*StoredIdentity
	mu    sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		byID: make(map[int64]*StoredIdentity),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given identities.
func (h *HNSWIndex) Build(identities []StoredIdentity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.byID = make(map[int64]*StoredIdentity, len(identities))
	if len(identities) == 0 {
		h.graph = nil
		return
	}

	g := newGraph()
	for i := range identities {
		identity := &identities[i]
		if len(identity.Descriptor) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(identity.ID, identity.Descriptor))
		h.byID[identity.ID] = identity
	}
	h.graph = g
}

// Search finds the k nearest identities to the query descriptor.
// Returns identities and their exact Euclidean distances, nearest first.
func (h *HNSWIndex) Search(query []float32, k int) ([]StoredIdentity, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	// Over-fetch so tombstoned nodes don't starve the result.
	neighbors := h.graph.Search(query, k*HNSWSearchMultiplier)

	identities := make([]StoredIdentity, 0, k)
	distances := make([]float64, 0, k)
	for _, n := range neighbors {
		identity, ok := h.byID[n.Key]
		if !ok {
			continue
		}
		identities = append(identities, *identity)
		distances = append(distances, EuclideanDistance(query, n.Value))
		if len(identities) == k {
			break
		}
	}
	return identities, distances, nil
}

// Add adds a single identity to the index.
func (h *HNSWIndex) Add(identity StoredIdentity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(identity.Descriptor) == 0 {
		return
	}
	if h.graph == nil {
		h.graph = newGraph()
	}
	h.graph.Add(hnsw.MakeNode(identity.ID, identity.Descriptor))
	h.byID[identity.ID] = &identity
}

// Delete hides an identity from search results.
func (h *HNSWIndex) Delete(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, id)
}

// Count returns the number of indexed identities.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}

// IsEmpty returns true if the index has no graph data loaded.
func (h *HNSWIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil
}

// Save persists the graph, metadata (.meta) and identities (.identities) to disk.
func (h *HNSWIndex) Save(path string, metadata HNSWIndexMetadata) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		fmt.Printf("Identity index save: no graph loaded, removing files\n")
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		_ = os.Remove(path + ".identities")
		return nil
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if err := h.graph.Export(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing HNSW index file: %w", err)
	}

	metadata.Version = hnswMetadataVersion
	if metadata.BuildTime.IsZero() {
		metadata.BuildTime = time.Now()
	}
	metaData, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	identities := make([]StoredIdentity, 0, len(h.byID))
	for _, identity := range h.byID {
		identities = append(identities, *identity)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(identities); err != nil {
		return fmt.Errorf("failed to encode identities: %w", err)
	}
	if err := os.WriteFile(path+".identities", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write identities file: %w", err)
	}

	fmt.Printf("Identity index: wrote %s (%d identities)\n", path, len(identities))
	return nil
}

// Load restores the graph and identities written by Save.
func (h *HNSWIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("HNSW index file not found: %s", path)
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	data, err := os.ReadFile(path + ".identities") //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to read identities file: %w", err)
	}
	var identities []StoredIdentity
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&identities); err != nil {
		return fmt.Errorf("failed to decode identities: %w", err)
	}

	h.graph = saved.Graph
	h.byID = make(map[int64]*StoredIdentity, len(identities))
	for i := range identities {
		h.byID[identities[i].ID] = &identities[i]
	}
	return nil
}

// LoadHNSWMetadata loads metadata from a separate .meta file.
func LoadHNSWMetadata(path string) (HNSWIndexMetadata, error) {
	var metadata HNSWIndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return metadata, nil
}

// IsFresh reports whether cached metadata still describes the database.
func (m HNSWIndexMetadata) IsFresh(count, maxID int64, dim int) bool {
	return m.Version == hnswMetadataVersion &&
		m.IdentityCount == count &&
		m.MaxIdentityID == maxID &&
		m.Dim == dim
}
