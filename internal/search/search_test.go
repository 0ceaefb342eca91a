package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"estore/internal/models"
)

func TestDocumentForFlattensVariants(t *testing.T) {
	t.Parallel()

	p := &models.Product{
		ID:          primitive.NewObjectID(),
		Name:        "Hoodie",
		Description: "warm",
		Category:    models.StringList{"tops"},
		ImageURLs:   []string{"https://cdn/hoodie-medium.webp"},
		IsFeatured:  true,
		Variants: []models.Variant{
			{Size: "M", Color: "black", Price: 49.9, Stock: 3},
			{Size: "L", Color: "black", Price: 44.9, Stock: 1},
			{Size: "L", Color: "grey", Price: 52.0, Stock: 0},
		},
	}

	doc := DocumentFor(p)

	assert.Equal(t, p.ID.Hex(), doc.ID)
	assert.Equal(t, 44.9, doc.Price, "price is the cheapest variant")
	assert.ElementsMatch(t, []string{"M", "L"}, doc.Sizes)
	assert.ElementsMatch(t, []string{"black", "grey"}, doc.Colors)
	assert.Equal(t, "https://cdn/hoodie-medium.webp", doc.Image)
	assert.True(t, doc.IsFeatured)
}

func TestDocumentForNoVariantsNoImages(t *testing.T) {
	t.Parallel()

	doc := DocumentFor(&models.Product{ID: primitive.NewObjectID(), Name: "Bare"})

	assert.Zero(t, doc.Price)
	assert.Empty(t, doc.Sizes)
	assert.Empty(t, doc.Image)
}
