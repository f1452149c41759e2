package source_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/handler/http/source"
	srcUC "newsbot/internal/usecase/source"
)

type stubRepo struct {
	data      map[int64]*entity.Source
	nextID    int64
	createErr error
	updateErr error
	deleteErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{data: map[int64]*entity.Source{}, nextID: 1}
}

func (s *stubRepo) Get(_ context.Context, id int64) (*entity.Source, error) {
	src, ok := s.data[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return src, nil
}
func (s *stubRepo) List(_ context.Context) ([]*entity.Source, error) {
	var out []*entity.Source
	for _, v := range s.data {
		out = append(out, v)
	}
	return out, nil
}
func (s *stubRepo) ListActive(_ context.Context) ([]*entity.Source, error) { return s.List(nil) }
func (s *stubRepo) ListActiveByType(_ context.Context, _ entity.SourceType) ([]*entity.Source, error) {
	return s.List(nil)
}
func (s *stubRepo) Create(_ context.Context, src *entity.Source) error {
	if s.createErr != nil {
		return s.createErr
	}
	src.ID = s.nextID
	s.nextID++
	s.data[src.ID] = src
	return nil
}
func (s *stubRepo) Update(_ context.Context, src *entity.Source) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.data[src.ID]; !ok {
		return entity.ErrNotFound
	}
	s.data[src.ID] = src
	return nil
}
func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.data[id]; !ok {
		return entity.ErrNotFound
	}
	delete(s.data, id)
	return nil
}
func (s *stubRepo) TouchCrawledAt(_ context.Context, _ int64, _ time.Time) error { return nil }

func TestCreateHandler_Success(t *testing.T) {
	stub := newStubRepo()
	handler := source.CreateHandler{Svc: srcUC.Service{Repo: stub}}

	body := `{"name":"Hacker News","type":"hn","url":"https://news.ycombinator.com","credibility_tier":4}`
	req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status code = %d, want %d, body=%s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var got source.DTO
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Name != "Hacker News" || got.Type != "hn" {
		t.Errorf("unexpected DTO: %+v", got)
	}
}

func TestCreateHandler_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"type":"hn","url":"https://news.ycombinator.com","credibility_tier":4}`},
		{"bad type", `{"name":"X","type":"rss","url":"https://x.example","credibility_tier":4}`},
		{"bad tier", `{"name":"X","type":"hn","url":"https://x.example","credibility_tier":9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubRepo()
			handler := source.CreateHandler{Svc: srcUC.Service{Repo: stub}}

			req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCreateHandler_InvalidJSON(t *testing.T) {
	stub := newStubRepo()
	handler := source.CreateHandler{Svc: srcUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader(`{"name":}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateHandler_Success(t *testing.T) {
	stub := newStubRepo()
	stub.data[1] = &entity.Source{ID: 1, Name: "Old", Type: entity.SourceTypeFeed, URL: "https://example.com/feed", CredibilityTier: 3, Enabled: true}
	handler := source.UpdateHandler{Svc: srcUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodPut, "/sources/1", strings.NewReader(`{"name":"Updated Name"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if stub.data[1].Name != "Updated Name" {
		t.Errorf("Name = %q, want %q", stub.data[1].Name, "Updated Name")
	}
}

func TestUpdateHandler_InvalidID(t *testing.T) {
	stub := newStubRepo()
	handler := source.UpdateHandler{Svc: srcUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodPut, "/sources/0", strings.NewReader(`{"name":"X"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateHandler_NotFound(t *testing.T) {
	stub := newStubRepo()
	handler := source.UpdateHandler{Svc: srcUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodPut, "/sources/999", strings.NewReader(`{"name":"X"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteHandler_Success(t *testing.T) {
	stub := newStubRepo()
	stub.data[1] = &entity.Source{ID: 1, Name: "Test", Type: entity.SourceTypeFeed, Enabled: true}
	handler := source.DeleteHandler{Svc: srcUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodDelete, "/sources/1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestDeleteHandler_InvalidID(t *testing.T) {
	stub := newStubRepo()
	handler := source.DeleteHandler{Svc: srcUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodDelete, "/sources/abc", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
