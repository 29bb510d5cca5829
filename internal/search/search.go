// Package search keeps an Elasticsearch index of products and runs
// full-text queries against it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Hits struct {
	Total int64
	IDs   []uint
}

type Index interface {
	Upsert(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (Hits, error)
}

type Config struct {
	URL      string
	User     string
	Password string
}

// NewClient connects and checks the cluster answers Info.
func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

type document struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Price        string  `json:"price"`
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name,omitempty"`
	Image        *string `json:"image,omitempty"`
}

func toDocument(p *models.Product) document {
	d := document{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price.StringFixed(2),
		CategoryID:   p.CategoryID,
		CategoryName: p.Category.Name,
		Image:        p.Image,
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	return d
}

const mapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "long"},
      "name":          {"type": "text"},
      "description":   {"type": "text"},
      "price":         {"type": "scaled_float", "scaling_factor": 100},
      "category_id":   {"type": "long"},
      "category_name": {"type": "keyword"},
      "image":         {"type": "keyword", "index": false}
    }
  }
}`

type Elastic struct {
	Client *elasticsearch.Client
	Name   string
}

func NewElastic(client *elasticsearch.Client, index string) *Elastic {
	return &Elastic{Client: client, Name: index}
}

// EnsureIndex creates the index with its mapping when it is missing.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.Client.Indices.Exists([]string{e.Name}, e.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.Client.Indices.Create(e.Name,
		e.Client.Indices.Create.WithContext(ctx),
		e.Client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("index create: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index create", res.Status(), res.Body)
	}
	return nil
}

func (e *Elastic) Upsert(ctx context.Context, p *models.Product) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(toDocument(p)); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := e.Client.Index(e.Name, &buf,
		e.Client.Index.WithContext(ctx),
		e.Client.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index product", res.Status(), res.Body)
	}
	return nil
}

// Delete treats a document that is already gone as success.
func (e *Elastic) Delete(ctx context.Context, id uint) error {
	res, err := e.Client.Delete(e.Name, strconv.FormatUint(uint64(id), 10),
		e.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete product", res.Status(), res.Body)
	}
	return nil
}

func (e *Elastic) Search(ctx context.Context, query string, from, size int) (Hits, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": []string{"id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return Hits{}, fmt.Errorf("encode query: %w", err)
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.Name),
		e.Client.Search.WithBody(&buf),
		e.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return Hits{}, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Hits{}, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					ID uint `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return Hits{}, fmt.Errorf("decode search: %w", err)
	}

	out := Hits{Total: r.Hits.Total.Value, IDs: make([]uint, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		id := h.Source.ID
		if id == 0 {
			n, err := strconv.ParseUint(h.ID, 10, 64)
			if err != nil {
				continue
			}
			id = uint(n)
		}
		out.IDs = append(out.IDs, id)
	}
	return out, nil
}

var ErrResponse = errors.New("elasticsearch error response")

func responseError(op, status string, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	return fmt.Errorf("%s: %w: %s: %s", op, ErrResponse, status, b)
}
