// internal/controller/relation_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/service"
)

// RelationController exposes bulk deletion of relation rows addressed by
// their association table name.
type RelationController struct {
	Relations *service.RelationService
}

func (c *RelationController) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{table}/bulk/delete", c.BulkDelete)
	return r
}

func relationKind(table string) (model.EntityKind, bool) {
	for _, kind := range model.Kinds() {
		if kind.RelationTable() == table {
			return kind, true
		}
	}
	return 0, false
}

func (c *RelationController) BulkDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := relationKind(chi.URLParam(r, "table"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown relation table"})
		return
	}
	var body struct {
		IDs []int `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Relations.BulkDeleteRelations(kind, middleware.Owner(r.Context()), body.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
