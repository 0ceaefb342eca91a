package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRespondWithErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondWithError(c, http.StatusBadRequest, "GET /test", "invalid payload")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	success, ok := body["success"]
	if !ok {
		t.Fatal("response has no success field")
	}
	if success != false {
		t.Errorf("success = %v, want false", success)
	}
	if body["message"] != "invalid payload" {
		t.Errorf("message = %v, want %q", body["message"], "invalid payload")
	}
	if _, ok := body["error"]; ok {
		t.Error("response carries legacy error field")
	}
}

func TestHandlePanicEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	func() {
		defer handlePanic(c, "GET /test")
		panic("boom")
	}()

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["message"] != "internal server error" {
		t.Errorf("message = %v, want %q", body["message"], "internal server error")
	}
}
