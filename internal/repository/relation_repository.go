package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kplanner/kplanner-backend/internal/model"
)

type RelationRepositoryInterface interface {
	Get(kind model.EntityKind, entityID, keywordID int, owner string) (*model.KeywordRelation, error)
	Insert(rel *model.KeywordRelation) error
	Update(rel *model.KeywordRelation) error
	Delete(kind model.EntityKind, id int) error
	ListByKeyword(kind model.EntityKind, keywordID int, owner string) ([]*model.KeywordRelation, error)
	FetchMatrix(kind model.EntityKind, keywordIDs, entityIDs []int, owner string) (map[int]map[int]model.MatchTypes, error)
	BulkDelete(kind model.EntityKind, ids []int, owner string, batchSize int) (int, int, error)
	SweepEmpty(owner string) (int, error)
}

// RelationRepository persists keyword associations for all three hierarchy
// levels. Table and FK names come from the kind.
type RelationRepository struct {
	DB *sql.DB
}

// Get fetches one relation row. Returns (nil, nil) when no row exists; the
// reconciliation engine treats absence as a normal state, not an error.
func (r *RelationRepository) Get(kind model.EntityKind, entityID, keywordID int, owner string) (*model.KeywordRelation, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, keyword_id, user_id, broad, phrase, exact, pause
		FROM %s WHERE %s=$1 AND keyword_id=$2 AND user_id=$3
	`, kind.EntityColumn(), kind.RelationTable(), kind.EntityColumn())

	rel := &model.KeywordRelation{Kind: kind}
	err := r.DB.QueryRow(query, entityID, keywordID, owner).Scan(
		&rel.ID, &rel.EntityID, &rel.KeywordID, &rel.Owner,
		&rel.Broad, &rel.Phrase, &rel.Exact, &rel.Pause,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rel, nil
}

func (r *RelationRepository) Insert(rel *model.KeywordRelation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, keyword_id, user_id, broad, phrase, exact, pause)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, rel.Kind.RelationTable(), rel.Kind.EntityColumn())
	return r.DB.QueryRow(query,
		rel.EntityID, rel.KeywordID, rel.Owner,
		rel.Broad, rel.Phrase, rel.Exact, rel.Pause,
	).Scan(&rel.ID)
}

func (r *RelationRepository) Update(rel *model.KeywordRelation) error {
	query := fmt.Sprintf(`
		UPDATE %s SET broad=$1, phrase=$2, exact=$3, pause=$4 WHERE id=$5
	`, rel.Kind.RelationTable())
	_, err := r.DB.Exec(query, rel.Broad, rel.Phrase, rel.Exact, rel.Pause, rel.ID)
	return err
}

func (r *RelationRepository) Delete(kind model.EntityKind, id int) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, kind.RelationTable())
	_, err := r.DB.Exec(query, id)
	return err
}

// ListByKeyword returns every relation of one keyword at one hierarchy level.
func (r *RelationRepository) ListByKeyword(kind model.EntityKind, keywordID int, owner string) ([]*model.KeywordRelation, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, keyword_id, user_id, broad, phrase, exact, pause
		FROM %s WHERE keyword_id=$1 AND user_id=$2 ORDER BY id
	`, kind.EntityColumn(), kind.RelationTable())

	rows, err := r.DB.Query(query, keywordID, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relations := []*model.KeywordRelation{}
	for rows.Next() {
		rel := &model.KeywordRelation{Kind: kind}
		if err := rows.Scan(&rel.ID, &rel.EntityID, &rel.KeywordID, &rel.Owner,
			&rel.Broad, &rel.Phrase, &rel.Exact, &rel.Pause); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// FetchMatrix loads all relations between the given keywords and entity ids
// at one hierarchy level in a single query, keyed by entity id then keyword
// id. An empty entity set yields an empty matrix.
func (r *RelationRepository) FetchMatrix(kind model.EntityKind, keywordIDs, entityIDs []int, owner string) (map[int]map[int]model.MatchTypes, error) {
	matrix := map[int]map[int]model.MatchTypes{}
	if len(keywordIDs) == 0 || len(entityIDs) == 0 {
		return matrix, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, keyword_id, broad, phrase, exact, pause
		FROM %s WHERE keyword_id = ANY($1) AND user_id=$2 AND %s = ANY($3)
	`, kind.EntityColumn(), kind.RelationTable(), kind.EntityColumn())

	rows, err := r.DB.Query(query, pq.Array(keywordIDs), owner, pq.Array(entityIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entityID, keywordID int
		var mt model.MatchTypes
		if err := rows.Scan(&entityID, &keywordID, &mt.Broad, &mt.Phrase, &mt.Exact, &mt.Pause); err != nil {
			return nil, err
		}
		if matrix[entityID] == nil {
			matrix[entityID] = map[int]model.MatchTypes{}
		}
		matrix[entityID][keywordID] = mt
	}
	return matrix, rows.Err()
}

// BulkDelete removes relation rows by their own ids, batched, owner-scoped.
func (r *RelationRepository) BulkDelete(kind model.EntityKind, ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1) AND user_id=$2`, kind.RelationTable())

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

// SweepEmpty deletes any relation row whose four match fields are all NULL.
// The reconciliation engine and the storage triggers both prevent such rows,
// so this is a periodic safety net run by the worker.
func (r *RelationRepository) SweepEmpty(owner string) (int, error) {
	total := 0
	for _, kind := range model.Kinds() {
		query := fmt.Sprintf(`
			DELETE FROM %s
			WHERE user_id=$1 AND broad IS NULL AND phrase IS NULL AND exact IS NULL AND pause IS NULL
		`, kind.RelationTable())
		res, err := r.DB.Exec(query, owner)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += int(n)
	}
	return total, nil
}

var _ RelationRepositoryInterface = (*RelationRepository)(nil)
