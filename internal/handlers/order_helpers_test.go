package handlers

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"estore/internal/models"
)

func TestSnapshotOrderLinesTotalMatchesLineSum(t *testing.T) {
	toteID := primitive.NewObjectID()
	mugID := primitive.NewObjectID()
	toteM := primitive.NewObjectID()
	toteL := primitive.NewObjectID()
	mugStd := primitive.NewObjectID()

	byID := map[primitive.ObjectID]models.Product{
		toteID: {
			ID:        toteID,
			Name:      "Canvas Tote",
			ImageURLs: []string{"https://cdn/tote-1.webp"},
			Variants: []models.Variant{
				{ID: toteM, Size: "M", Price: 24.90, Stock: 10},
				{ID: toteL, Size: "L", Price: 29.90, Stock: 3},
			},
		},
		mugID: {
			ID:   mugID,
			Name: "Stoneware Mug",
			Variants: []models.Variant{
				{ID: mugStd, Price: 12.50, Stock: 5},
			},
		},
	}
	items := []models.CartItem{
		{ProductID: toteID, VariantID: toteM, Quantity: 2},
		{ProductID: toteID, VariantID: toteL, Quantity: 1},
		{ProductID: mugID, VariantID: mugStd, Quantity: 4},
	}

	lines, total, err := snapshotOrderLines(items, byID)
	if err != nil {
		t.Fatalf("snapshotOrderLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}

	sum := 0.0
	for _, line := range lines {
		sum += line.PriceAtTime * float64(line.Quantity)
	}
	if total != sum {
		t.Errorf("total = %v, want sum of line snapshots %v", total, sum)
	}
	want := 24.90*2 + 29.90 + 12.50*4
	if total != want {
		t.Errorf("total = %v, want %v", total, want)
	}

	if lines[0].NameAtTime != "Canvas Tote" || lines[0].PriceAtTime != 24.90 {
		t.Errorf("line snapshot = %q/%v", lines[0].NameAtTime, lines[0].PriceAtTime)
	}
	if lines[0].ImageAtTime != "https://cdn/tote-1.webp" {
		t.Errorf("ImageAtTime = %q", lines[0].ImageAtTime)
	}
}

func TestSnapshotOrderLinesFailsWholeCart(t *testing.T) {
	productID := primitive.NewObjectID()
	variantID := primitive.NewObjectID()
	missingProduct := primitive.NewObjectID()
	missingVariant := primitive.NewObjectID()

	byID := map[primitive.ObjectID]models.Product{
		productID: {
			ID:   productID,
			Name: "Canvas Tote",
			Variants: []models.Variant{
				{ID: variantID, Price: 24.90, Stock: 2},
			},
		},
	}

	tests := []struct {
		name  string
		items []models.CartItem
		check func(t *testing.T, err error)
	}{
		{
			name: "insufficient stock",
			items: []models.CartItem{
				{ProductID: productID, VariantID: variantID, Quantity: 1},
				{ProductID: productID, VariantID: variantID, Quantity: 3},
			},
			check: func(t *testing.T, err error) {
				var stockErr outOfStockError
				if !errors.As(err, &stockErr) {
					t.Fatalf("err = %v, want outOfStockError", err)
				}
				if stockErr.Available != 2 || stockErr.Requested != 3 {
					t.Errorf("available/requested = %d/%d, want 2/3", stockErr.Available, stockErr.Requested)
				}
			},
		},
		{
			name: "product missing",
			items: []models.CartItem{
				{ProductID: productID, VariantID: variantID, Quantity: 1},
				{ProductID: missingProduct, VariantID: variantID, Quantity: 1},
			},
			check: func(t *testing.T, err error) {
				var notFound productNotFoundError
				if !errors.As(err, &notFound) {
					t.Fatalf("err = %v, want productNotFoundError", err)
				}
			},
		},
		{
			name: "variant missing",
			items: []models.CartItem{
				{ProductID: productID, VariantID: missingVariant, Quantity: 1},
			},
			check: func(t *testing.T, err error) {
				var notFound variantNotFoundError
				if !errors.As(err, &notFound) {
					t.Fatalf("err = %v, want variantNotFoundError", err)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines, total, err := snapshotOrderLines(tc.items, byID)
			if err == nil {
				t.Fatal("expected error")
			}
			if lines != nil || total != 0 {
				t.Errorf("failed cart must produce no lines, got %d lines, total %v", len(lines), total)
			}
			tc.check(t, err)
		})
	}
}
