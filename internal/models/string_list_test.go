package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestStringListDecodesLegacyStringCategory(t *testing.T) {
	var doc struct {
		Category StringList `bson:"category"`
	}

	raw, err := bson.Marshal(bson.M{"category": "  bags "})
	if err != nil {
		t.Fatal(err)
	}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("legacy string category must decode: %v", err)
	}
	if len(doc.Category) != 1 || doc.Category[0] != "bags" {
		t.Errorf("category = %v, want [bags]", doc.Category)
	}

	raw, err = bson.Marshal(bson.M{"category": []string{"bags", "totes"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("array category must decode: %v", err)
	}
	if len(doc.Category) != 2 {
		t.Errorf("category = %v, want two entries", doc.Category)
	}

	raw, err = bson.Marshal(bson.M{"category": "   "})
	if err != nil {
		t.Fatal(err)
	}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Category == nil || len(doc.Category) != 0 {
		t.Errorf("blank category = %#v, want empty list", doc.Category)
	}
}
