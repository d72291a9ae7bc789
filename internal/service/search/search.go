package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/supermarket/internal/models"
)

// Index is the full-text product index. The database stays the source of
// truth; the index only returns matching ids.
type Index interface {
	Search(ctx context.Context, query string, from, size int) ([]uint, int64, error)
	Upsert(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id uint) error
}

type Document struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type ESIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewESIndex(es *elasticsearch.Client, index string) *ESIndex {
	return &ESIndex{ES: es, Index: index}
}

func (s *ESIndex) Search(ctx context.Context, query string, from, size int) ([]uint, int64, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description", "category"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, 0, fmt.Errorf("search encode: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return nil, 0, fmt.Errorf("search: %s: %s", res.Status(), b)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("search decode: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, r.Hits.Total.Value, nil
}

func (s *ESIndex) Upsert(ctx context.Context, p models.Product) error {
	b, err := json.Marshal(Document{ID: p.ID, Name: p.Name, Description: p.Description, Category: p.Category})
	if err != nil {
		return err
	}

	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(b),
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func (s *ESIndex) Delete(ctx context.Context, id uint) error {
	res, err := s.ES.Delete(
		s.Index,
		strconv.FormatUint(uint64(id), 10),
		s.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete product %d: %s", id, res.Status())
	}
	return nil
}

var _ Index = (*ESIndex)(nil)
