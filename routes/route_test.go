package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"analystagent/pkg"
)

type stubAnalyzer struct {
	answer   json.RawMessage
	err      error
	question string
}

func (a *stubAnalyzer) Run(ctx context.Context, question string) (json.RawMessage, error) {
	a.question = question
	return a.answer, a.err
}

func newTestRouter(a *stubAnalyzer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, NewAnalysisService(a, zap.NewNop()), pkg.NewRateLimiter(0))
	return r
}

func questionUpload(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("question", "question.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, w.FormDataContentType()
}

func TestHandleAnalyzeSuccess(t *testing.T) {
	want := `["42", "Movie X", "2021", "data:image/png;base64,AAAA"]`
	a := &stubAnalyzer{answer: json.RawMessage(want)}
	r := newTestRouter(a)

	body, contentType := questionUpload(t, "how many films crossed 2bn?\n")
	req := httptest.NewRequest(http.MethodPost, "/api/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body)
	}
	if rec.Body.String() != want {
		t.Errorf("body = %s, want the answer array verbatim", rec.Body)
	}
	if a.question != "how many films crossed 2bn?" {
		t.Errorf("pipeline received question %q", a.question)
	}
}

func TestHandleAnalyzePipelineFailure(t *testing.T) {
	a := &stubAnalyzer{err: errors.New("stage scraper failed: boom")}
	r := newTestRouter(a)

	body, contentType := questionUpload(t, "q")
	req := httptest.NewRequest(http.MethodPost, "/api/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["error"] != "stage scraper failed: boom" {
		t.Errorf(`error = %q, want the stage-labeled message`, resp["error"])
	}
}

func TestHandleAnalyzeMissingFile(t *testing.T) {
	r := newTestRouter(&stubAnalyzer{})

	req := httptest.NewRequest(http.MethodPost, "/api/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyzeEmptyQuestion(t *testing.T) {
	r := newTestRouter(&stubAnalyzer{})

	body, contentType := questionUpload(t, "   \n")
	req := httptest.NewRequest(http.MethodPost, "/api/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubAnalyzer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
