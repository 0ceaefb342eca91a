package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"estore/internal/models"
)

func TestFindCartItem(t *testing.T) {
	productA := primitive.NewObjectID()
	productB := primitive.NewObjectID()
	variantA := primitive.NewObjectID()
	variantB := primitive.NewObjectID()

	items := []models.CartItem{
		{ProductID: productA, VariantID: variantA},
		{ProductID: productA, VariantID: variantB},
		{ProductID: productB, VariantID: variantA},
	}

	if got := findCartItem(items, productA, variantB); got != 1 {
		t.Errorf("findCartItem = %d, want 1", got)
	}
	if got := findCartItem(items, productB, variantB); got != -1 {
		t.Errorf("findCartItem for absent pair = %d, want -1", got)
	}
	if got := findCartItem(nil, productA, variantA); got != -1 {
		t.Errorf("findCartItem on empty = %d, want -1", got)
	}
}

func TestSnapshotItem(t *testing.T) {
	product := models.Product{
		Name:      "Canvas Tote",
		ImageURLs: []string{"https://cdn/img-1.webp", "https://cdn/img-2.webp"},
	}
	variant := models.Variant{Size: "M", Color: "navy", Price: 24.90, Stock: 7}

	item := models.CartItem{Quantity: 2}
	snapshotItem(&item, product, variant)

	if item.NameAtTime != "Canvas Tote" {
		t.Errorf("NameAtTime = %q", item.NameAtTime)
	}
	if item.PriceAtTime != 24.90 {
		t.Errorf("PriceAtTime = %v", item.PriceAtTime)
	}
	if item.SizeAtTime != "M" || item.ColorAtTime != "navy" {
		t.Errorf("variant snapshot = %q/%q", item.SizeAtTime, item.ColorAtTime)
	}
	if item.ImageAtTime != "https://cdn/img-1.webp" {
		t.Errorf("ImageAtTime = %q", item.ImageAtTime)
	}
	if item.Quantity != 2 {
		t.Errorf("snapshot must not touch quantity, got %d", item.Quantity)
	}
}

func TestSnapshotItemClearsImageWhenProductHasNone(t *testing.T) {
	item := models.CartItem{ImageAtTime: "stale.webp"}
	snapshotItem(&item, models.Product{Name: "Bare"}, models.Variant{Price: 1})

	if item.ImageAtTime != "" {
		t.Errorf("ImageAtTime = %q, want empty", item.ImageAtTime)
	}
}
