package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
)

type EntityRepositoryInterface interface {
	Create(e *model.AdEntity) error
	GetByID(kind model.EntityKind, id int, owner string) (*model.AdEntity, error)
	Update(e *model.AdEntity) error
	List(kind model.EntityKind, owner string, offset, limit int, search string, isActive *bool, parentID *int, sortBy, sortOrder string) ([]*model.AdEntity, int, error)
	CountActive(kind model.EntityKind, owner string, excludeID int) (int, error)
	ActiveIDs(kind model.EntityKind, owner string) ([]int, error)
	CountOwned(kind model.EntityKind, ids []int, owner string) (int, error)
	BulkDelete(kind model.EntityKind, ids []int, owner string, batchSize int) (int, int, error)
}

// EntityRepository persists all three hierarchy levels through a single
// implementation. The table and FK names come from the kind, never from
// request input.
type EntityRepository struct {
	DB *sql.DB
}

// entityColumns is the select list shared by every read. Companies have no
// parent, so the parent slot is a constant 0 for them.
func entityColumns(kind model.EntityKind) string {
	parent := "0"
	if col := kind.ParentColumn(); col != "" {
		parent = col
	}
	return fmt.Sprintf("id, title, is_active, user_id, %s, created, updated", parent)
}

func scanEntity(kind model.EntityKind, row interface{ Scan(...any) error }) (*model.AdEntity, error) {
	e := &model.AdEntity{Kind: kind}
	err := row.Scan(&e.ID, &e.Title, &e.IsActive, &e.Owner, &e.ParentID, &e.Created, &e.Updated)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EntityRepository) Create(e *model.AdEntity) error {
	e.Created = time.Now()
	e.Updated = e.Created

	var query string
	var args []interface{}
	if col := e.Kind.ParentColumn(); col != "" {
		query = fmt.Sprintf(`
			INSERT INTO %s (title, is_active, user_id, %s, created, updated)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, e.Kind.Table(), col)
		args = []interface{}{e.Title, e.IsActive, e.Owner, e.ParentID, e.Created, e.Updated}
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %s (title, is_active, user_id, created, updated)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, e.Kind.Table())
		args = []interface{}{e.Title, e.IsActive, e.Owner, e.Created, e.Updated}
	}
	return r.DB.QueryRow(query, args...).Scan(&e.ID)
}

func (r *EntityRepository) GetByID(kind model.EntityKind, id int, owner string) (*model.AdEntity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1 AND user_id=$2`, entityColumns(kind), kind.Table())
	e, err := scanEntity(kind, r.DB.QueryRow(query, id, owner))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound(kind.Name())
		}
		return nil, err
	}
	return e, nil
}

func (r *EntityRepository) Update(e *model.AdEntity) error {
	var query string
	var args []interface{}
	if col := e.Kind.ParentColumn(); col != "" {
		query = fmt.Sprintf(`
			UPDATE %s SET title=$1, is_active=$2, %s=$3, updated=NOW()
			WHERE id=$4 AND user_id=$5
		`, e.Kind.Table(), col)
		args = []interface{}{e.Title, e.IsActive, e.ParentID, e.ID, e.Owner}
	} else {
		query = fmt.Sprintf(`
			UPDATE %s SET title=$1, is_active=$2, updated=NOW()
			WHERE id=$3 AND user_id=$4
		`, e.Kind.Table())
		args = []interface{}{e.Title, e.IsActive, e.ID, e.Owner}
	}
	res, err := r.DB.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound(e.Kind.Name())
	}
	return nil
}

// entitySortColumns whitelists sortable columns. Anything else falls back to id.
var entitySortColumns = map[string]bool{
	"id": true, "title": true, "is_active": true, "created": true, "updated": true,
}

func (r *EntityRepository) List(kind model.EntityKind, owner string, offset, limit int, search string, isActive *bool, parentID *int, sortBy, sortOrder string) ([]*model.AdEntity, int, error) {
	entities := []*model.AdEntity{}

	where := " WHERE user_id=$1"
	args := []interface{}{owner}
	argPos := 2

	if search != "" {
		where += fmt.Sprintf(" AND title ILIKE $%d", argPos)
		args = append(args, "%"+search+"%")
		argPos++
	}
	if isActive != nil {
		where += fmt.Sprintf(" AND is_active=$%d", argPos)
		args = append(args, *isActive)
		argPos++
	}
	if parentID != nil && kind.ParentColumn() != "" {
		where += fmt.Sprintf(" AND %s=$%d", kind.ParentColumn(), argPos)
		args = append(args, *parentID)
		argPos++
	}

	if !entitySortColumns[sortBy] {
		sortBy = "id"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		entityColumns(kind), kind.Table(), where, sortBy, sortOrder, argPos, argPos+1)
	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntity(kind, rows)
		if err != nil {
			return nil, 0, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", kind.Table(), where)
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

// CountActive counts the owner's active rows at this level, optionally
// excluding one id (the entity being updated).
func (r *EntityRepository) CountActive(kind model.EntityKind, owner string, excludeID int) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id=$1 AND is_active=TRUE AND id<>$2`, kind.Table())
	var count int
	err := r.DB.QueryRow(query, owner, excludeID).Scan(&count)
	return count, err
}

func (r *EntityRepository) ActiveIDs(kind model.EntityKind, owner string) ([]int, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id=$1 AND is_active=TRUE ORDER BY id`, kind.Table())
	rows, err := r.DB.Query(query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountOwned returns how many of the given ids exist and belong to the owner.
// Used to validate attachment sets before writing them.
func (r *EntityRepository) CountOwned(kind model.EntityKind, ids []int, owner string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ANY($1) AND user_id=$2`, kind.Table())
	var count int
	err := r.DB.QueryRow(query, pq.Array(ids), owner).Scan(&count)
	return count, err
}

// BulkDelete removes the owner's rows in batches, committing each batch on
// its own. A failure mid-way leaves earlier batches deleted. Returns the
// number of rows deleted and batches processed.
func (r *EntityRepository) BulkDelete(kind model.EntityKind, ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1) AND user_id=$2`, kind.Table())

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

var _ EntityRepositoryInterface = (*EntityRepository)(nil)
