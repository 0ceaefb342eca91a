package search

import (
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"estore/internal/models"
)

const productIndex = "products"

// Client wraps the search engine's products index.
type Client struct {
	index *meilisearch.Index
}

func New(host, apiKey string) *Client {
	c := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	return &Client{index: c.Index(productIndex)}
}

// Document is the flattened shape indexed for a product. Variant sizes,
// colors and the minimum price are lifted to top-level fields so they can be
// filtered and faceted on.
type Document struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    []string `json:"category"`
	Price       float64  `json:"price"`
	Sizes       []string `json:"sizes"`
	Colors      []string `json:"colors"`
	Image       string   `json:"image"`
	IsFeatured  bool     `json:"isFeatured"`
	Rating      float64  `json:"rating"`
}

func DocumentFor(p *models.Product) Document {
	doc := Document{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		IsFeatured:  p.IsFeatured,
		Rating:      p.AverageRating,
	}
	if len(p.ImageURLs) > 0 {
		doc.Image = p.ImageURLs[0]
	}

	sizes := map[string]bool{}
	colors := map[string]bool{}
	for _, v := range p.Variants {
		if doc.Price == 0 || v.Price < doc.Price {
			doc.Price = v.Price
		}
		if v.Size != "" && !sizes[v.Size] {
			sizes[v.Size] = true
			doc.Sizes = append(doc.Sizes, v.Size)
		}
		if v.Color != "" && !colors[v.Color] {
			colors[v.Color] = true
			doc.Colors = append(doc.Colors, v.Color)
		}
	}
	return doc
}

// Upsert adds or replaces the product document.
func (c *Client) Upsert(p *models.Product) error {
	doc := DocumentFor(p)
	if _, err := c.index.AddDocuments([]Document{doc}, "id"); err != nil {
		return fmt.Errorf("search: upsert %s: %w", doc.ID, err)
	}
	return nil
}

// Search runs a full-text query against the products index.
func (c *Client) Search(query string, limit, offset int64) ([]map[string]interface{}, int64, error) {
	res, err := c.index.Search(query, &meilisearch.SearchRequest{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search: query %q: %w", query, err)
	}

	hits := make([]map[string]interface{}, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if doc, ok := hit.(map[string]interface{}); ok {
			hits = append(hits, doc)
		}
	}
	return hits, res.EstimatedTotalHits, nil
}

// Delete removes the product document.
func (c *Client) Delete(productID string) error {
	if _, err := c.index.DeleteDocument(productID); err != nil {
		return fmt.Errorf("search: delete %s: %w", productID, err)
	}
	return nil
}
