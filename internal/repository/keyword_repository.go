package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
)

// SortKey is one level of the cascading keyword sort.
type SortKey struct {
	Field string
	Order string
}

// MatrixQuery is the full parameter set for the keyword matrix listing.
// The entity id sets scope which keywords are visible at all: when any set
// is non-empty, only keywords attached to one of those entities are listed.
type MatrixQuery struct {
	Owner  string
	Offset int
	Limit  int

	Search        string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time

	// Match-type presence filters: true requires at least one relation with
	// the field set (positive or negative), false requires none.
	HasBroad  *bool
	HasPhrase *bool
	HasExact  *bool

	OnlyAttached bool
	Trash        *bool

	CompanyIDs    []int
	AdCampaignIDs []int
	AdGroupIDs    []int

	Sorts []SortKey
}

type KeywordRepositoryInterface interface {
	GetOrCreate(text, owner string) (*model.Keyword, bool, error)
	GetByID(id int, owner string) (*model.Keyword, error)
	GetByIDs(ids []int, owner string) ([]*model.Keyword, error)
	Update(k *model.Keyword) error
	ListMatrix(q MatrixQuery) ([]*model.Keyword, int, error)
	SetTrash(ids []int, owner string, trash bool, batchSize int) (int, int, error)
	BulkDelete(ids []int, owner string, batchSize int) (int, int, error)
}

type KeywordRepository struct {
	DB *sql.DB
}

const keywordColumns = "id, keyword, user_id, trash, created, updated"

func scanKeyword(row interface{ Scan(...any) error }) (*model.Keyword, error) {
	k := &model.Keyword{}
	if err := row.Scan(&k.ID, &k.Keyword, &k.Owner, &k.Trash, &k.Created, &k.Updated); err != nil {
		return nil, err
	}
	return k, nil
}

// GetOrCreate returns the owner's keyword with this exact text, inserting it
// if absent. The second return reports whether an insert happened. Relies on
// the (keyword, user_id) unique constraint to stay race-safe.
func (r *KeywordRepository) GetOrCreate(text, owner string) (*model.Keyword, bool, error) {
	now := time.Now()
	query := `
		INSERT INTO keywords (keyword, user_id, created, updated)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (keyword, user_id) DO NOTHING
		RETURNING ` + keywordColumns
	k, err := scanKeyword(r.DB.QueryRow(query, text, owner, now))
	if err == nil {
		return k, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	// Conflict: the row already existed.
	k, err = scanKeyword(r.DB.QueryRow(
		`SELECT `+keywordColumns+` FROM keywords WHERE keyword=$1 AND user_id=$2`, text, owner))
	if err != nil {
		return nil, false, err
	}
	return k, false, nil
}

func (r *KeywordRepository) GetByID(id int, owner string) (*model.Keyword, error) {
	query := `SELECT ` + keywordColumns + ` FROM keywords WHERE id=$1 AND user_id=$2`
	k, err := scanKeyword(r.DB.QueryRow(query, id, owner))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("keyword")
		}
		return nil, err
	}
	return k, nil
}

func (r *KeywordRepository) GetByIDs(ids []int, owner string) ([]*model.Keyword, error) {
	keywords := []*model.Keyword{}
	if len(ids) == 0 {
		return keywords, nil
	}
	query := `SELECT ` + keywordColumns + ` FROM keywords WHERE id = ANY($1) AND user_id=$2 ORDER BY id`
	rows, err := r.DB.Query(query, pq.Array(ids), owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		k, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

func (r *KeywordRepository) Update(k *model.Keyword) error {
	query := `UPDATE keywords SET keyword=$1, trash=$2, updated=NOW() WHERE id=$3 AND user_id=$4`
	res, err := r.DB.Exec(query, k.Keyword, k.Trash, k.ID, k.Owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound("keyword")
	}
	return nil
}

// matchFieldCondition builds the "has at least one relation with this field
// set" predicate: an EXISTS over each relation table, owner-scoped. Tri-state
// fields count both positive and negative values, hence IS NOT NULL.
func matchFieldCondition(field string) string {
	parts := make([]string, 0, 3)
	for _, kind := range model.Kinds() {
		parts = append(parts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s rel WHERE rel.keyword_id = k.id AND rel.user_id = $1 AND rel.%s IS NOT NULL)",
			kind.RelationTable(), field))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// attachedCondition is the "has at least one relation of any kind" predicate.
func attachedCondition() string {
	parts := make([]string, 0, 3)
	for _, kind := range model.Kinds() {
		parts = append(parts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s rel WHERE rel.keyword_id = k.id AND rel.user_id = $1)",
			kind.RelationTable()))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

var matrixSortFields = map[string]string{
	"has_broad":  "broad",
	"has_phrase": "phrase",
	"has_exact":  "exact",
}

var keywordSortColumns = map[string]bool{
	"id": true, "keyword": true, "created": true, "updated": true, "trash": true,
}

// ListMatrix returns one page of the owner's keywords under the query's
// filters, plus the unpaginated total. Pagination applies strictly after all
// filtering and sorting. Relation rows are fetched separately by the
// relation repository.
func (r *KeywordRepository) ListMatrix(q MatrixQuery) ([]*model.Keyword, int, error) {
	where := " WHERE k.user_id = $1"
	args := []interface{}{q.Owner}
	argPos := 2

	addArg := func(clause string, v interface{}) {
		where += fmt.Sprintf(clause, argPos)
		args = append(args, v)
		argPos++
	}

	if q.Search != "" {
		addArg(" AND k.keyword ILIKE $%d", "%"+q.Search+"%")
	}
	if q.CreatedAfter != nil {
		addArg(" AND k.created >= $%d", *q.CreatedAfter)
	}
	if q.CreatedBefore != nil {
		addArg(" AND k.created <= $%d", *q.CreatedBefore)
	}
	if q.UpdatedAfter != nil {
		addArg(" AND k.updated >= $%d", *q.UpdatedAfter)
	}
	if q.UpdatedBefore != nil {
		addArg(" AND k.updated <= $%d", *q.UpdatedBefore)
	}
	if q.Trash != nil {
		if *q.Trash {
			where += " AND k.trash IS TRUE"
		} else {
			where += " AND k.trash IS DISTINCT FROM TRUE"
		}
	}

	matchFilters := map[string]*bool{"broad": q.HasBroad, "phrase": q.HasPhrase, "exact": q.HasExact}
	for _, field := range []string{"broad", "phrase", "exact"} {
		has := matchFilters[field]
		if has == nil {
			continue
		}
		cond := matchFieldCondition(field)
		if *has {
			where += " AND " + cond
		} else {
			where += " AND NOT " + cond
		}
	}

	// Scope filter: when any entity ids are in scope, only keywords attached
	// to one of them are visible. With an empty scope every keyword shows.
	scopeParts := []string{}
	scopeSets := map[model.EntityKind][]int{
		model.KindCompany:    q.CompanyIDs,
		model.KindAdCampaign: q.AdCampaignIDs,
		model.KindAdGroup:    q.AdGroupIDs,
	}
	for _, kind := range model.Kinds() {
		ids := scopeSets[kind]
		if len(ids) == 0 {
			continue
		}
		scopeParts = append(scopeParts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s rel WHERE rel.keyword_id = k.id AND rel.%s = ANY($%d))",
			kind.RelationTable(), kind.EntityColumn(), argPos))
		args = append(args, pq.Array(ids))
		argPos++
	}
	if len(scopeParts) > 0 {
		where += " AND (" + strings.Join(scopeParts, " OR ") + ")"
	}

	if q.OnlyAttached {
		where += " AND " + attachedCondition()
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM keywords k" + where
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Up to three cascading sort keys; unknown fields are skipped. Match
	// presence keys synthesize a 0/1 column from the same EXISTS predicate
	// used for filtering. The trailing id keeps page boundaries stable.
	orderCols := []string{}
	for _, sk := range q.Sorts {
		dir := "DESC"
		if strings.ToLower(sk.Order) == "asc" {
			dir = "ASC"
		}
		field := strings.ToLower(sk.Field)
		if keywordSortColumns[field] {
			orderCols = append(orderCols, fmt.Sprintf("k.%s %s", field, dir))
		} else if mf, ok := matrixSortFields[field]; ok {
			orderCols = append(orderCols, fmt.Sprintf(
				"CASE WHEN %s THEN 1 ELSE 0 END %s", matchFieldCondition(mf), dir))
		}
	}
	if len(orderCols) == 0 {
		orderCols = append(orderCols, "k.created DESC")
	}
	orderBy := " ORDER BY " + strings.Join(orderCols, ", ") + ", k.id ASC"

	query := fmt.Sprintf("SELECT k.id, k.keyword, k.user_id, k.trash, k.created, k.updated FROM keywords k%s%s LIMIT $%d OFFSET $%d",
		where, orderBy, argPos, argPos+1)
	rows, err := r.DB.Query(query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	keywords := []*model.Keyword{}
	for rows.Next() {
		k, err := scanKeyword(rows)
		if err != nil {
			return nil, 0, err
		}
		keywords = append(keywords, k)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return keywords, total, nil
}

// SetTrash flips the trash flag on the owner's keywords in batches.
func (r *KeywordRepository) SetTrash(ids []int, owner string, trash bool, batchSize int) (int, int, error) {
	updated, batches := 0, 0
	query := `UPDATE keywords SET trash=$1, updated=NOW() WHERE id = ANY($2) AND user_id=$3`

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		res, err := r.DB.Exec(query, trash, pq.Array(ids[start:end]), owner)
		if err != nil {
			return updated, batches, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return updated, batches, err
		}
		updated += int(n)
		batches++
	}
	return updated, batches, nil
}

func (r *KeywordRepository) BulkDelete(ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	query := `DELETE FROM keywords WHERE id = ANY($1) AND user_id=$2`

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		res, err := r.DB.Exec(query, pq.Array(ids[start:end]), owner)
		if err != nil {
			return deleted, batches, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, batches, err
		}
		deleted += int(n)
		batches++
	}
	return deleted, batches, nil
}

var _ KeywordRepositoryInterface = (*KeywordRepository)(nil)
