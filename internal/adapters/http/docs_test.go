package http_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	handler "github.com/samirrijal/qgrid/internal/adapters/http"
)

func TestDocs_ServesValidatedJSON(t *testing.T) {
	handler.OpenAPIPath = findOpenAPISpec(t)
	t.Cleanup(func() { handler.OpenAPIPath = "api/openapi.yaml" })
	app := setupApp(makeDeps(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/docs/openapi.json", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "qgrid Microgrid Planner API") {
		t.Errorf("expected API title in JSON description")
	}
}

func TestDocs_MissingDescription(t *testing.T) {
	handler.OpenAPIPath = "does/not/exist.yaml"
	t.Cleanup(func() { handler.OpenAPIPath = "api/openapi.yaml" })
	app := setupApp(makeDeps(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
