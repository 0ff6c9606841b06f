package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/vectorstore"
)

var errNotFound = errors.New("qdrant: not found")

// Store is a minimal REST client to Qdrant keeping one collection per
// document. Collections use Euclid distance; scores are squared on the way
// out to match the other stores.
type Store struct {
	url    string
	apiKey string
	prefix string
	client *http.Client
}

var _ domain.IndexStore = (*Store)(nil)

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "hrrag_"
	}
	return &Store{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		prefix: prefix,
		client: &http.Client{Timeout: timeout},
	}
}

// Collection returns the collection name used for documentID.
func (s *Store) Collection(documentID string) string {
	return s.prefix + strings.TrimPrefix(vectorstore.IndexID(documentID), "hrrag_")
}

func (s *Store) Create(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) (string, error) {
	name := s.Collection(documentID)
	_, err := s.info(ctx, name)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, errNotFound) {
		return "", err
	}
	dim, err := vectorstore.Validate(chunks, vectors)
	if err != nil {
		return "", err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Euclid",
		},
	}
	if err := s.doJSON(ctx, http.MethodPut, s.url+"/collections/"+name, body, nil); err != nil {
		return "", err
	}
	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":      pointID(documentID, chunks[i]),
			"vector":  vectors[i],
			"payload": map[string]any{"chunk": chunks[i]},
		}
	}
	url := s.url + "/collections/" + name + "/points?wait=true"
	if err := s.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}, nil); err != nil {
		// Remove the half-built collection so the next Create starts over.
		_ = s.doJSON(ctx, http.MethodDelete, s.url+"/collections/"+name, nil, nil)
		return "", err
	}
	return name, nil
}

func (s *Store) Load(ctx context.Context, documentID string) (domain.Index, error) {
	name := s.Collection(documentID)
	n, err := s.info(ctx, name)
	if errors.Is(err, errNotFound) {
		return nil, vectorstore.ErrIndexNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Index{store: s, name: name, documentID: documentID, size: n}, nil
}

func (s *Store) Exists(ctx context.Context, documentID string) (bool, error) {
	_, err := s.info(ctx, s.Collection(documentID))
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Delete(ctx context.Context, documentID string) error {
	err := s.doJSON(ctx, http.MethodDelete, s.url+"/collections/"+s.Collection(documentID), nil, nil)
	if errors.Is(err, errNotFound) {
		return vectorstore.ErrIndexNotFound
	}
	return err
}

func (s *Store) info(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.url+"/collections/"+name, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Result.PointsCount, nil
}

// Index is a remote view over one document collection.
type Index struct {
	store      *Store
	name       string
	documentID string
	size       int
}

var _ domain.Index = (*Index)(nil)

func (x *Index) DocumentID() string { return x.documentID }

func (x *Index) Len() int { return x.size }

func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedDoc, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Chunk domain.Chunk `json:"chunk"`
			} `json:"payload"`
		} `json:"result"`
	}
	url := x.store.url + "/collections/" + x.name + "/points/search"
	if err := x.store.doJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.RetrievedDoc, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.RetrievedDoc{
			Chunk:    r.Payload.Chunk,
			Source:   x.documentID,
			Distance: r.Score * r.Score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results, nil
}

func pointID(documentID string, c domain.Chunk) string {
	key := c.ID
	if key == "" {
		key = documentID + ":" + strconv.Itoa(c.Index)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func (s *Store) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
