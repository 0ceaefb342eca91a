package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"estore/internal/models"
)

func newMultipartContext(t *testing.T, build func(w *multipart.Writer)) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	build(writer)
	_ = writer.Close()

	req := httptest.NewRequest("POST", "/admin/products", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestParseMultipartProductRequest_Fields(t *testing.T) {
	c := newMultipartContext(t, func(w *multipart.Writer) {
		_ = w.WriteField("name", "  Linen Shirt  ")
		_ = w.WriteField("isFeatured", "true")
		_ = w.WriteField("category", "shirts")
		_ = w.WriteField("category", "summer")
		_ = w.WriteField("variants", `[{"size":"M","color":"white","price":39.9,"stock":12}]`)
	})

	parsed, err := parseMultipartProductRequest(c)
	if err != nil {
		t.Fatalf("parseMultipartProductRequest returned error: %v", err)
	}
	if !parsed.NameSet || parsed.Name != "Linen Shirt" {
		t.Fatalf("expected trimmed name, got %+v", parsed)
	}
	if !parsed.IsFeaturedSet || !parsed.IsFeatured {
		t.Fatalf("expected isFeatured=true, got %+v", parsed)
	}
	if !parsed.CategorySet || len(parsed.Category) != 2 {
		t.Fatalf("expected two categories, got %+v", parsed.Category)
	}
	if !parsed.VariantsSet || len(parsed.Variants) != 1 || parsed.Variants[0].Stock != 12 {
		t.Fatalf("expected one parsed variant, got %+v", parsed.Variants)
	}
}

func TestParseMultipartProductRequest_UnsetFieldsStayUnset(t *testing.T) {
	c := newMultipartContext(t, func(w *multipart.Writer) {
		_ = w.WriteField("name", "Only Name")
	})

	parsed, err := parseMultipartProductRequest(c)
	if err != nil {
		t.Fatalf("parseMultipartProductRequest returned error: %v", err)
	}
	if parsed.DescriptionSet || parsed.CategorySet || parsed.VariantsSet || parsed.IsFeaturedSet {
		t.Fatalf("untouched fields must remain unset: %+v", parsed)
	}
}

func TestParseMultipartProductRequest_RejectsBadVariants(t *testing.T) {
	c := newMultipartContext(t, func(w *multipart.Writer) {
		_ = w.WriteField("variants", "not json")
	})

	if _, err := parseMultipartProductRequest(c); err == nil {
		t.Fatal("expected error for malformed variants payload")
	}
}

func TestParseMultipartProductRequest_RejectsTooManyImages(t *testing.T) {
	c := newMultipartContext(t, func(w *multipart.Writer) {
		for i := 0; i < maxImagesPerRequest+1; i++ {
			part, _ := w.CreateFormFile("images", "photo.jpg")
			_, _ = part.Write([]byte("fake image bytes"))
		}
	})

	if _, err := parseMultipartProductRequest(c); err == nil {
		t.Fatal("expected error for more than 5 images")
	}
}

func TestValidateCreateProductInput(t *testing.T) {
	image := &multipart.FileHeader{Filename: "a.jpg", Size: 100}

	valid := MultipartProductInput{
		Name: "Shirt", NameSet: true,
		Variants:    parseVariants(t, `[{"size":"M","price":10,"stock":1}]`),
		VariantsSet: true,
		Images:      []*multipart.FileHeader{image},
	}
	if err := validateCreateProductInput(valid); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	noImages := valid
	noImages.Images = nil
	if err := validateCreateProductInput(noImages); err == nil {
		t.Fatal("creation without images must be rejected")
	}

	noName := valid
	noName.Name, noName.NameSet = "", false
	if err := validateCreateProductInput(noName); err == nil {
		t.Fatal("creation without name must be rejected")
	}

	noVariants := valid
	noVariants.Variants, noVariants.VariantsSet = nil, false
	if err := validateCreateProductInput(noVariants); err == nil {
		t.Fatal("creation without variants must be rejected")
	}

	negStock := valid
	negStock.Variants = parseVariants(t, `[{"size":"M","price":10,"stock":-1}]`)
	if err := validateCreateProductInput(negStock); err == nil {
		t.Fatal("negative stock must be rejected")
	}
}

func parseVariants(t *testing.T, raw string) []models.Variant {
	t.Helper()
	var variants []models.Variant
	if err := json.Unmarshal([]byte(raw), &variants); err != nil {
		t.Fatal(err)
	}
	return variants
}

func TestValidateImageFile(t *testing.T) {
	ok := &multipart.FileHeader{Filename: "a.jpg", Size: 100}
	if err := validateImageFile(ok); err != nil {
		t.Errorf("jpg should be accepted: %v", err)
	}

	bad := &multipart.FileHeader{Filename: "a.gif", Size: 100}
	if err := validateImageFile(bad); err == nil {
		t.Error("gif should be rejected")
	}

	huge := &multipart.FileHeader{Filename: "a.png", Size: 11 << 20}
	if err := validateImageFile(huge); err == nil {
		t.Error("oversized file should be rejected")
	}

	noExt := &multipart.FileHeader{Filename: "image", Size: 100}
	if err := validateImageFile(noExt); err == nil {
		t.Error("missing extension should be rejected")
	}
}
