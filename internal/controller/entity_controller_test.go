package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/auth"
	"github.com/kplanner/kplanner-backend/internal/config"
	"github.com/kplanner/kplanner-backend/internal/controller"
	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/service"
)

// MockEntityRepo keeps companies in memory; campaigns and ad groups share the
// same maps.
type MockEntityRepo struct {
	nextID   int
	entities map[model.EntityKind]map[int]*model.AdEntity
}

func NewMockEntityRepo() *MockEntityRepo {
	m := &MockEntityRepo{entities: map[model.EntityKind]map[int]*model.AdEntity{}}
	for _, kind := range model.Kinds() {
		m.entities[kind] = map[int]*model.AdEntity{}
	}
	return m
}

func (m *MockEntityRepo) Create(e *model.AdEntity) error {
	m.nextID++
	e.ID = m.nextID
	stored := *e
	m.entities[e.Kind][e.ID] = &stored
	return nil
}

func (m *MockEntityRepo) GetByID(kind model.EntityKind, id int, owner string) (*model.AdEntity, error) {
	e, ok := m.entities[kind][id]
	if !ok || e.Owner != owner {
		return nil, appErrors.NewNotFound(kind.Name())
	}
	copy := *e
	return &copy, nil
}

func (m *MockEntityRepo) Update(e *model.AdEntity) error {
	updated := *e
	m.entities[e.Kind][e.ID] = &updated
	return nil
}

func (m *MockEntityRepo) List(kind model.EntityKind, owner string, offset, limit int, search string, isActive *bool, parentID *int, sortBy, sortOrder string) ([]*model.AdEntity, int, error) {
	out := []*model.AdEntity{}
	for _, e := range m.entities[kind] {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *MockEntityRepo) CountActive(kind model.EntityKind, owner string, excludeID int) (int, error) {
	count := 0
	for _, e := range m.entities[kind] {
		if e.Owner == owner && e.IsActive && e.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (m *MockEntityRepo) ActiveIDs(kind model.EntityKind, owner string) ([]int, error) {
	return []int{}, nil
}

func (m *MockEntityRepo) CountOwned(kind model.EntityKind, ids []int, owner string) (int, error) {
	return 0, nil
}

func (m *MockEntityRepo) BulkDelete(kind model.EntityKind, ids []int, owner string, batchSize int) (int, int, error) {
	deleted := 0
	for _, id := range ids {
		if e, ok := m.entities[kind][id]; ok && e.Owner == owner {
			delete(m.entities[kind], id)
			deleted++
		}
	}
	return deleted, 1, nil
}

const testOwner = "owner-1"

func newCompanyRouter(repo *MockEntityRepo) http.Handler {
	cfg := &config.Config{
		CompanyActiveLimit:    3,
		AdCampaignActiveLimit: 5,
		AdGroupActiveLimit:    7,
		PageSize:              50,
		MaxPageSize:           100,
		BatchSize:             25,
	}
	svc := &service.EntityService{Repo: repo, Cfg: cfg, Log: zap.NewNop()}
	ctrl := &controller.EntityController{Kind: model.KindCompany, Service: svc}

	r := chi.NewRouter()
	r.Use(middleware.Auth(&auth.DevAuth{DemoUser: testOwner}))
	r.Mount("/companies", ctrl.Routes())
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateCompanyEndpoint(t *testing.T) {
	router := newCompanyRouter(NewMockEntityRepo())

	w := postJSON(t, router, "/companies/", map[string]any{"title": "Acme", "is_active": true})
	require.Equal(t, http.StatusCreated, w.Code)

	var res struct {
		Message string `json:"message"`
		Object  struct {
			ID       int    `json:"id"`
			Title    string `json:"title"`
			IsActive bool   `json:"is_active"`
		} `json:"object"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Company created successfully", res.Message)
	assert.Equal(t, "Acme", res.Object.Title)
	assert.True(t, res.Object.IsActive)
	assert.NotZero(t, res.Object.ID)
}

func TestCreateCompanyValidationStatus(t *testing.T) {
	router := newCompanyRouter(NewMockEntityRepo())

	w := postJSON(t, router, "/companies/", map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var res map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "title is required", res["message"])
}

func TestGetCompanyNotFoundStatus(t *testing.T) {
	router := newCompanyRouter(NewMockEntityRepo())

	req := httptest.NewRequest("GET", "/companies/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var res map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "company not found", res["message"])
}

func TestToggleCompanyEndpoint(t *testing.T) {
	repo := NewMockEntityRepo()
	router := newCompanyRouter(repo)

	w := postJSON(t, router, "/companies/", map[string]any{"title": "Acme", "is_active": false})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Object struct {
			ID int `json:"id"`
		} `json:"object"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = postJSON(t, router, "/companies/"+strconv.Itoa(created.Object.ID)+"/toggle", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Message string `json:"message"`
		Object  struct {
			IsActive bool `json:"is_active"`
		} `json:"object"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Company activated successfully", res.Message)
	assert.True(t, res.Object.IsActive)
}

func TestListCompaniesEnvelope(t *testing.T) {
	repo := NewMockEntityRepo()
	router := newCompanyRouter(repo)

	for i := 0; i < 2; i++ {
		w := postJSON(t, router, "/companies/", map[string]any{"title": "Acme"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest("GET", "/companies/?page=1&page_size=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Message    string           `json:"message"`
		Objects    []map[string]any `json:"objects"`
		Pagination struct {
			Page       int `json:"page"`
			PageSize   int `json:"page_size"`
			TotalCount int `json:"total_count"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Retrieved 2 companies", res.Message)
	assert.Len(t, res.Objects, 2)
	assert.Equal(t, 1, res.Pagination.Page)
	assert.Equal(t, 10, res.Pagination.PageSize)
	assert.Equal(t, 2, res.Pagination.TotalCount)
	assert.Equal(t, 1, res.Pagination.TotalPages)
}

func TestBulkDeleteCompaniesEndpoint(t *testing.T) {
	repo := NewMockEntityRepo()
	router := newCompanyRouter(repo)

	w := postJSON(t, router, "/companies/", map[string]any{"title": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Object struct {
			ID int `json:"id"`
		} `json:"object"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = postJSON(t, router, "/companies/bulk/delete", map[string]any{"ids": []int{created.Object.ID, 999}})
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Message   string `json:"message"`
		Deleted   int    `json:"deleted"`
		Requested int    `json:"requested"`
		BatchSize int    `json:"batch_size"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Deleted 1 companies", res.Message)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 2, res.Requested)
	assert.Equal(t, 25, res.BatchSize)
}
