// internal/controller/project_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/service"
)

type ProjectController struct {
	Service *service.ProjectService
}

func (c *ProjectController) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", c.Create)
	r.Get("/", c.List)
	r.Get("/{id}", c.Get)
	r.Post("/{id}/update", c.Update)
	r.Post("/{id}/entities", c.UpdateEntities)
	r.Post("/{id}/delete", c.Delete)
	r.Post("/bulk/delete", c.BulkDelete)
	return r
}

func (c *ProjectController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	project, msg, err := c.Service.Create(middleware.Owner(r.Context()), body.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": msg, "object": project})
}

func (c *ProjectController) List(w http.ResponseWriter, r *http.Request) {
	projects, pagination, msg, err := c.Service.List(middleware.Owner(r.Context()),
		queryInt(r, "page"), queryInt(r, "page_size"), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    msg,
		"objects":    projects,
		"pagination": pagination,
	})
}

func (c *ProjectController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}

	project, msg, err := c.Service.Get(middleware.Owner(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": project})
}

func (c *ProjectController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	project, msg, err := c.Service.Update(middleware.Owner(r.Context()), id, body.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": project})
}

func (c *ProjectController) UpdateEntities(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}
	var body struct {
		CompanyIDs    *[]int `json:"company_ids"`
		AdCampaignIDs *[]int `json:"ad_campaign_ids"`
		AdGroupIDs    *[]int `json:"ad_group_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	project, msg, err := c.Service.UpdateEntities(middleware.Owner(r.Context()), id,
		body.CompanyIDs, body.AdCampaignIDs, body.AdGroupIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": project})
}

func (c *ProjectController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}

	msg, err := c.Service.Delete(middleware.Owner(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func (c *ProjectController) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Service.BulkDelete(middleware.Owner(r.Context()), body.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
