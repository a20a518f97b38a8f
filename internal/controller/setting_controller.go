// internal/controller/setting_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/service"
)

type SettingController struct {
	Service *service.SettingService
}

type settingBody struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

func (c *SettingController) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", c.Set)
	r.Get("/", c.List)
	r.Get("/{id:[0-9]+}", c.Get)
	r.Post("/{id:[0-9]+}/update", c.Update)
	r.Get("/key/{key}", c.GetByKey)
	r.Post("/key/{key}", c.SetByKey)
	r.Post("/bulk/delete", c.BulkDelete)
	return r
}

func (c *SettingController) Set(w http.ResponseWriter, r *http.Request) {
	var body settingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	setting, msg, err := c.Service.Set(middleware.Owner(r.Context()), body.Key, body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": setting})
}

func (c *SettingController) List(w http.ResponseWriter, r *http.Request) {
	settings, pagination, msg, err := c.Service.List(middleware.Owner(r.Context()),
		queryInt(r, "page"), queryInt(r, "page_size"), r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    msg,
		"objects":    settings,
		"pagination": pagination,
	})
}

func (c *SettingController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}

	setting, msg, err := c.Service.Get(middleware.Owner(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": setting})
}

func (c *SettingController) GetByKey(w http.ResponseWriter, r *http.Request) {
	setting, msg, err := c.Service.GetByKey(middleware.Owner(r.Context()), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": setting})
}

// SetByKey upserts via the key in the URL. A body key, when present, must
// agree with the URL.
func (c *SettingController) SetByKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var body settingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}
	if body.Key != "" && body.Key != key {
		writeError(w, appErrors.NewValidation("Key in URL must match key in request body"))
		return
	}

	setting, msg, err := c.Service.Set(middleware.Owner(r.Context()), key, body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": setting})
}

func (c *SettingController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}
	var body settingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	setting, msg, err := c.Service.Update(middleware.Owner(r.Context()), id, body.Key, body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": setting})
}

func (c *SettingController) BulkDelete(w http.ResponseWriter, r *http.Request) {
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
