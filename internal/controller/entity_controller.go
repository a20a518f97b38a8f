// internal/controller/entity_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/service"
)

// EntityController serves one hierarchy level. The same controller code backs
// /companies, /ad_campaigns and /ad_groups, parameterized by kind.
type EntityController struct {
	Kind    model.EntityKind
	Service *service.EntityService
}

// entityBody is the create/update request shape. The parent FK arrives under
// its real column name; companies send neither.
type entityBody struct {
	Title        string `json:"title"`
	IsActive     bool   `json:"is_active"`
	CompanyID    int    `json:"company_id"`
	AdCampaignID int    `json:"ad_campaign_id"`
}

func (b entityBody) parentID(kind model.EntityKind) int {
	switch kind {
	case model.KindAdCampaign:
		return b.CompanyID
	case model.KindAdGroup:
		return b.AdCampaignID
	default:
		return 0
	}
}

func (c *EntityController) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", c.Create)
	r.Get("/", c.List)
	r.Get("/{id}", c.Get)
	r.Post("/{id}/update", c.Update)
	r.Post("/{id}/toggle", c.Toggle)
	r.Post("/bulk/delete", c.BulkDelete)
	return r
}

func (c *EntityController) Create(w http.ResponseWriter, r *http.Request) {
	var body entityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Service.Create(c.Kind, middleware.Owner(r.Context()), body.Title, body.IsActive, body.parentID(c.Kind))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": result.Message,
		"object":  result.Entity,
	})
}

func (c *EntityController) List(w http.ResponseWriter, r *http.Request) {
	q := service.EntityListQuery{
		Page:      queryInt(r, "page"),
		PageSize:  queryInt(r, "page_size"),
		Search:    r.URL.Query().Get("search"),
		IsActive:  queryBoolPtr(r, "is_active"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}
	if col := c.Kind.ParentColumn(); col != "" {
		q.ParentID = queryIntPtr(r, col)
	}

	entities, pagination, msg, err := c.Service.List(c.Kind, middleware.Owner(r.Context()), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    msg,
		"objects":    entities,
		"pagination": pagination,
		"filters": map[string]any{
			"search":    q.Search,
			"is_active": q.IsActive,
		},
		"sorting": map[string]any{
			"sort_by":    q.SortBy,
			"sort_order": q.SortOrder,
		},
	})
}

func (c *EntityController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Service.Get(c.Kind, middleware.Owner(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": result.Message,
		"object":  result.Entity,
	})
}

func (c *EntityController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}
	var body entityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Service.Update(c.Kind, middleware.Owner(r.Context()), id, body.Title, body.IsActive, body.parentID(c.Kind))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": result.Message,
		"object":  result.Entity,
	})
}

func (c *EntityController) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Service.Toggle(c.Kind, middleware.Owner(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": result.Message,
		"object":  result.Entity,
	})
}

func (c *EntityController) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Service.BulkDelete(c.Kind, middleware.Owner(r.Context()), body.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
