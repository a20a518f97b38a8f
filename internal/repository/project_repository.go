package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
)

type ProjectRepositoryInterface interface {
	Create(p *model.Project) error
	GetByID(id int, owner string) (*model.Project, error)
	Update(p *model.Project) error
	Delete(id int, owner string) error
	List(owner string, offset, limit int, search string) ([]*model.Project, int, error)
	AttachedIDs(kind model.EntityKind, projectID int, owner string) ([]int, error)
	ReplaceEntities(projectID int, owner string, sets map[model.EntityKind][]int) error
	CountOwned(ids []int, owner string) (int, error)
	BulkDelete(ids []int, owner string, batchSize int) (int, int, error)
}

type ProjectRepository struct {
	DB *sql.DB
}

const projectColumns = "id, title, user_id, created, updated"

func scanProject(row interface{ Scan(...any) error }) (*model.Project, error) {
	p := &model.Project{}
	if err := row.Scan(&p.ID, &p.Title, &p.Owner, &p.Created, &p.Updated); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepository) Create(p *model.Project) error {
	p.Created = time.Now()
	p.Updated = p.Created
	query := `
		INSERT INTO projects (title, user_id, created, updated)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRow(query, p.Title, p.Owner, p.Created, p.Updated).Scan(&p.ID)
}

func (r *ProjectRepository) GetByID(id int, owner string) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id=$1 AND user_id=$2`
	p, err := scanProject(r.DB.QueryRow(query, id, owner))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("project")
		}
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepository) Update(p *model.Project) error {
	query := `UPDATE projects SET title=$1, updated=NOW() WHERE id=$2 AND user_id=$3`
	res, err := r.DB.Exec(query, p.Title, p.ID, p.Owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound("project")
	}
	return nil
}

func (r *ProjectRepository) Delete(id int, owner string) error {
	res, err := r.DB.Exec(`DELETE FROM projects WHERE id=$1 AND user_id=$2`, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound("project")
	}
	return nil
}

func (r *ProjectRepository) List(owner string, offset, limit int, search string) ([]*model.Project, int, error) {
	projects := []*model.Project{}

	where := " WHERE user_id=$1"
	args := []interface{}{owner}
	argPos := 2
	if search != "" {
		where += fmt.Sprintf(" AND title ILIKE $%d", argPos)
		args = append(args, "%"+search+"%")
		argPos++
	}

	query := fmt.Sprintf("SELECT %s FROM projects%s ORDER BY id DESC LIMIT $%d OFFSET $%d",
		projectColumns, where, argPos, argPos+1)
	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRow("SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// projectJoinTable maps a hierarchy level to its project attachment table.
func projectJoinTable(kind model.EntityKind) string {
	switch kind {
	case model.KindCompany:
		return "project_company"
	case model.KindAdCampaign:
		return "project_ad_campaign"
	default:
		return "project_ad_group"
	}
}

func (r *ProjectRepository) AttachedIDs(kind model.EntityKind, projectID int, owner string) ([]int, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE project_id=$1 AND user_id=$2 ORDER BY %s`,
		kind.EntityColumn(), projectJoinTable(kind), kind.EntityColumn())
	rows, err := r.DB.Query(query, projectID, owner)
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

// ReplaceEntities swaps the project's attachment sets in one transaction.
// Only the hierarchy levels present in sets are touched: each one has its
// existing rows removed and the given ids written.
func (r *ProjectRepository) ReplaceEntities(projectID int, owner string, sets map[model.EntityKind][]int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, kind := range model.Kinds() {
		ids, ok := sets[kind]
		if !ok {
			continue
		}
		table := projectJoinTable(kind)
		if _, err := tx.Exec(
			fmt.Sprintf(`DELETE FROM %s WHERE project_id=$1 AND user_id=$2`, table),
			projectID, owner,
		); err != nil {
			return err
		}
		insert := fmt.Sprintf(`INSERT INTO %s (project_id, %s, user_id) VALUES ($1, $2, $3)`,
			table, kind.EntityColumn())
		for _, id := range ids {
			if _, err := tx.Exec(insert, projectID, id, owner); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// CountOwned returns how many of the given project ids belong to the owner.
func (r *ProjectRepository) CountOwned(ids []int, owner string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM projects WHERE id = ANY($1) AND user_id=$2`,
		pq.Array(ids), owner,
	).Scan(&count)
	return count, err
}

func (r *ProjectRepository) BulkDelete(ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	query := `DELETE FROM projects WHERE id = ANY($1) AND user_id=$2`

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

var _ ProjectRepositoryInterface = (*ProjectRepository)(nil)
