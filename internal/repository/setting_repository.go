package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
)

type SettingRepositoryInterface interface {
	Insert(s *model.Setting) error
	Update(s *model.Setting) error
	GetByID(id int, owner string) (*model.Setting, error)
	GetByKey(owner, key string) (*model.Setting, error)
	List(owner, keyFilter string, offset, limit int) ([]*model.Setting, int, error)
	KeyTaken(owner, key string, excludeID int) (bool, error)
	BulkDelete(ids []int, owner string, batchSize int) (int, int, error)
}

type SettingRepository struct {
	DB *sql.DB
}

const settingColumns = "id, user_id, key, value, created, updated"

func scanSetting(row interface{ Scan(...any) error }) (*model.Setting, error) {
	s := &model.Setting{}
	if err := row.Scan(&s.ID, &s.Owner, &s.Key, &s.Value, &s.Created, &s.Updated); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SettingRepository) Insert(s *model.Setting) error {
	query := `
		INSERT INTO settings (user_id, key, value, created, updated)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created, updated
	`
	return r.DB.QueryRow(query, s.Owner, s.Key, s.Value).Scan(&s.ID, &s.Created, &s.Updated)
}

func (r *SettingRepository) Update(s *model.Setting) error {
	query := `UPDATE settings SET key=$1, value=$2, updated=NOW() WHERE id=$3 AND user_id=$4`
	res, err := r.DB.Exec(query, s.Key, s.Value, s.ID, s.Owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound("setting")
	}
	return nil
}

func (r *SettingRepository) GetByID(id int, owner string) (*model.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings WHERE id=$1 AND user_id=$2`
	s, err := scanSetting(r.DB.QueryRow(query, id, owner))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("setting")
		}
		return nil, err
	}
	return s, nil
}

func (r *SettingRepository) GetByKey(owner, key string) (*model.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings WHERE user_id=$1 AND key=$2`
	s, err := scanSetting(r.DB.QueryRow(query, owner, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("setting")
		}
		return nil, err
	}
	return s, nil
}

// List returns one page of the owner's settings ordered by key. keyFilter is
// an exact match when non-empty.
func (r *SettingRepository) List(owner, keyFilter string, offset, limit int) ([]*model.Setting, int, error) {
	where := " WHERE user_id=$1"
	args := []interface{}{owner}
	argPos := 2
	if keyFilter != "" {
		where += fmt.Sprintf(" AND key=$%d", argPos)
		args = append(args, keyFilter)
		argPos++
	}

	query := fmt.Sprintf("SELECT %s FROM settings%s ORDER BY key LIMIT $%d OFFSET $%d",
		settingColumns, where, argPos, argPos+1)
	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	settings := []*model.Setting{}
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, 0, err
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRow("SELECT COUNT(*) FROM settings"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return settings, total, nil
}

// KeyTaken reports whether another setting of the owner already uses key.
func (r *SettingRepository) KeyTaken(owner, key string, excludeID int) (bool, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM settings WHERE user_id=$1 AND key=$2 AND id<>$3`,
		owner, key, excludeID,
	).Scan(&count)
	return count > 0, err
}

func (r *SettingRepository) BulkDelete(ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	query := `DELETE FROM settings WHERE id = ANY($1) AND user_id=$2`

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

var _ SettingRepositoryInterface = (*SettingRepository)(nil)
