// internal/controller/keyword_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/repository"
	"github.com/kplanner/kplanner-backend/internal/service"
)

type KeywordController struct {
	Keywords  *service.KeywordService
	Relations *service.RelationService
}

// matchPatchBody is the tri-state patch plus override flags shared by every
// relation-touching request.
type matchPatchBody struct {
	Broad  *bool `json:"broad"`
	Phrase *bool `json:"phrase"`
	Exact  *bool `json:"exact"`
	Pause  *bool `json:"pause"`

	OverrideBroad  bool `json:"override_broad"`
	OverridePhrase bool `json:"override_phrase"`
	OverrideExact  bool `json:"override_exact"`
	OverridePause  bool `json:"override_pause"`
}

func (b matchPatchBody) patch() model.MatchTypes {
	return model.MatchTypes{Broad: b.Broad, Phrase: b.Phrase, Exact: b.Exact, Pause: b.Pause}
}

func (b matchPatchBody) overrides() model.OverrideFlags {
	return model.OverrideFlags{
		Broad:  b.OverrideBroad,
		Phrase: b.OverridePhrase,
		Exact:  b.OverrideExact,
		Pause:  b.OverridePause,
	}
}

func (c *KeywordController) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.List)
	r.Get("/{id}", c.Get)
	r.Post("/{id}/update", c.Update)
	r.Post("/bulk", c.BulkCreate)
	r.Post("/bulk/delete", c.BulkDelete)
	r.Post("/bulk/trash", c.BulkTrash)
	r.Post("/bulk/relations", c.BulkCreateRelations)
	r.Post("/bulk/relations/update", c.BulkUpdateRelations)
	return r
}

// parseSorts reads up to three cascading sort keys: sort_by/sort_order,
// sort_by_2/sort_order_2, sort_by_3/sort_order_3.
func parseSorts(r *http.Request) []repository.SortKey {
	sorts := []repository.SortKey{}
	keys := [][2]string{
		{"sort_by", "sort_order"},
		{"sort_by_2", "sort_order_2"},
		{"sort_by_3", "sort_order_3"},
	}
	for _, pair := range keys {
		field := r.URL.Query().Get(pair[0])
		if field == "" {
			continue
		}
		sorts = append(sorts, repository.SortKey{
			Field: field,
			Order: r.URL.Query().Get(pair[1]),
		})
	}
	return sorts
}

func (c *KeywordController) List(w http.ResponseWriter, r *http.Request) {
	q := service.MatrixListQuery{
		Page:      queryInt(r, "page"),
		PageSize:  queryInt(r, "page_size"),
		ProjectID: queryIntPtr(r, "project_id"),

		Search:        r.URL.Query().Get("search"),
		OnlyAttached:  r.URL.Query().Get("only_attached") == "true",
		Trash:         queryBoolPtr(r, "trash"),
		HasBroad:      queryBoolPtr(r, "has_broad"),
		HasPhrase:     queryBoolPtr(r, "has_phrase"),
		HasExact:      queryBoolPtr(r, "has_exact"),
		CreatedAfter:  queryTimePtr(r, "created_after"),
		CreatedBefore: queryTimePtr(r, "created_before"),
		UpdatedAfter:  queryTimePtr(r, "updated_after"),
		UpdatedBefore: queryTimePtr(r, "updated_before"),

		Sorts: parseSorts(r),
	}

	result, err := c.Keywords.ListMatrix(middleware.Owner(r.Context()), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    result.Message,
		"objects":    result.Objects,
		"pagination": result.Pagination,
		"filters": map[string]any{
			"search":        q.Search,
			"trash":         q.Trash,
			"has_broad":     q.HasBroad,
			"has_phrase":    q.HasPhrase,
			"has_exact":     q.HasExact,
			"only_attached": q.OnlyAttached,
			"project_id":    q.ProjectID,
		},
		"sorting": q.Sorts,
	})
}

func (c *KeywordController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}

	kw, msg, err := c.Keywords.Get(middleware.Owner(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": kw})
}

func (c *KeywordController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalidBody(w)
		return
	}
	var body struct {
		Keyword string `json:"keyword"`
		Trash   *bool  `json:"trash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	kw, msg, err := c.Keywords.Update(middleware.Owner(r.Context()), id, body.Keyword, body.Trash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "object": kw})
}

func (c *KeywordController) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Keywords []string `json:"keywords"`
		service.TargetSet
		matchPatchBody
		BatchSize int `json:"batch_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Keywords.BulkCreate(middleware.Owner(r.Context()),
		body.Keywords, body.TargetSet, body.patch(), body.overrides(), body.BatchSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *KeywordController) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Keywords.BulkDelete(middleware.Owner(r.Context()), body.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *KeywordController) BulkTrash(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs   []int `json:"ids"`
		Trash bool  `json:"trash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Keywords.BulkTrash(middleware.Owner(r.Context()), body.IDs, body.Trash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *KeywordController) BulkCreateRelations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		KeywordIDs []int `json:"keyword_ids"`
		service.TargetSet
		matchPatchBody
		BatchSize int `json:"batch_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Relations.BulkCreateRelations(middleware.Owner(r.Context()),
		body.KeywordIDs, body.TargetSet, body.patch(), body.overrides(), body.BatchSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *KeywordController) BulkUpdateRelations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		KeywordIDs []int `json:"keyword_ids"`
		matchPatchBody
		BatchSize int `json:"batch_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := c.Relations.BulkUpdateRelations(middleware.Owner(r.Context()),
		body.KeywordIDs, body.patch(), body.overrides(), body.BatchSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
