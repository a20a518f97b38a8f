// internal/controller/mapping_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/service"
)

type MappingController struct {
	Service *service.MappingService
}

func (c *MappingController) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/toggle", c.Toggle)
	r.Get("/", c.List)
	r.Get("/active", c.ListActive)
	return r
}

func (c *MappingController) Toggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
		model.ColumnMapping
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Service.Toggle(middleware.Owner(r.Context()), body.Action, &body.ColumnMapping)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *MappingController) List(w http.ResponseWriter, r *http.Request) {
	mappings, msg, err := c.Service.List(middleware.Owner(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "objects": mappings})
}

func (c *MappingController) ListActive(w http.ResponseWriter, r *http.Request) {
	mappings, msg, err := c.Service.ListActive(middleware.Owner(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "objects": mappings})
}
