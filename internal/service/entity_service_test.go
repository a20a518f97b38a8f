package service_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/config"
	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/service"
)

// MockEntityRepo keeps all three levels in memory.
type MockEntityRepo struct {
	nextID   int
	entities map[model.EntityKind]map[int]*model.AdEntity
}

func NewMockEntityRepo() *MockEntityRepo {
	m := &MockEntityRepo{entities: map[model.EntityKind]map[int]*model.AdEntity{}}
	for _, kind := range model.Kinds() {
		m.entities[kind] = map[int]*model.AdEntity{}
	}
	return m
}

func (m *MockEntityRepo) Create(e *model.AdEntity) error {
	m.nextID++
	e.ID = m.nextID
	stored := *e
	m.entities[e.Kind][e.ID] = &stored
	return nil
}

func (m *MockEntityRepo) GetByID(kind model.EntityKind, id int, owner string) (*model.AdEntity, error) {
	e, ok := m.entities[kind][id]
	if !ok || e.Owner != owner {
		return nil, appErrors.NewNotFound(kind.Name())
	}
	copy := *e
	return &copy, nil
}

func (m *MockEntityRepo) Update(e *model.AdEntity) error {
	stored, ok := m.entities[e.Kind][e.ID]
	if !ok || stored.Owner != e.Owner {
		return appErrors.NewNotFound(e.Kind.Name())
	}
	updated := *e
	m.entities[e.Kind][e.ID] = &updated
	return nil
}

func (m *MockEntityRepo) List(kind model.EntityKind, owner string, offset, limit int, search string, isActive *bool, parentID *int, sortBy, sortOrder string) ([]*model.AdEntity, int, error) {
	all := []*model.AdEntity{}
	for _, e := range m.entities[kind] {
		if e.Owner != owner {
			continue
		}
		if isActive != nil && e.IsActive != *isActive {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return []*model.AdEntity{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MockEntityRepo) CountActive(kind model.EntityKind, owner string, excludeID int) (int, error) {
	count := 0
	for _, e := range m.entities[kind] {
		if e.Owner == owner && e.IsActive && e.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (m *MockEntityRepo) ActiveIDs(kind model.EntityKind, owner string) ([]int, error) {
	ids := []int{}
	for _, e := range m.entities[kind] {
		if e.Owner == owner && e.IsActive {
			ids = append(ids, e.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *MockEntityRepo) CountOwned(kind model.EntityKind, ids []int, owner string) (int, error) {
	count := 0
	for _, id := range ids {
		if e, ok := m.entities[kind][id]; ok && e.Owner == owner {
			count++
		}
	}
	return count, nil
}

func (m *MockEntityRepo) BulkDelete(kind model.EntityKind, ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			if e, ok := m.entities[kind][id]; ok && e.Owner == owner {
				delete(m.entities[kind], id)
				deleted++
			}
		}
		batches++
	}
	return deleted, batches, nil
}

func testConfig() *config.Config {
	return &config.Config{
		CompanyActiveLimit:    3,
		AdCampaignActiveLimit: 5,
		AdGroupActiveLimit:    7,
		PageSize:              50,
		MaxPageSize:           100,
		BatchSize:             25,
		MaxKeywordsPerRequest: 100,
	}
}

func newEntityService(repo *MockEntityRepo) *service.EntityService {
	return &service.EntityService{Repo: repo, Cfg: testConfig(), Log: zap.NewNop()}
}

func TestCreateCompanyRespectsActiveLimit(t *testing.T) {
	svc := newEntityService(NewMockEntityRepo())
	owner := "owner-1"

	for i := 0; i < 3; i++ {
		res, err := svc.Create(model.KindCompany, owner, "Company", true, 0)
		require.NoError(t, err)
		assert.True(t, res.Entity.IsActive)
		assert.Equal(t, "Company created successfully", res.Message)
	}

	// The fourth active company is created but forced inactive.
	res, err := svc.Create(model.KindCompany, owner, "One Too Many", true, 0)
	require.NoError(t, err)
	assert.False(t, res.Entity.IsActive)
	assert.Equal(t,
		"Company created as inactive. Maximum 3 active companys allowed. Please deactivate another company first.",
		res.Message)
}

func TestToggleRefusesActivationPastLimit(t *testing.T) {
	svc := newEntityService(NewMockEntityRepo())
	owner := "owner-1"

	var active []*model.AdEntity
	for i := 0; i < 3; i++ {
		res, err := svc.Create(model.KindCompany, owner, "Company", true, 0)
		require.NoError(t, err)
		active = append(active, res.Entity)
	}
	extra, err := svc.Create(model.KindCompany, owner, "Extra", false, 0)
	require.NoError(t, err)

	// Flip refused: the limit message comes back and the flag is unchanged.
	res, err := svc.Toggle(model.KindCompany, owner, extra.Entity.ID)
	require.NoError(t, err)
	assert.False(t, res.Entity.IsActive)
	assert.Equal(t,
		"Maximum 3 active companys allowed. Please deactivate another company first.",
		res.Message)

	// Deactivate one, then the flip succeeds.
	res, err = svc.Toggle(model.KindCompany, owner, active[0].ID)
	require.NoError(t, err)
	assert.False(t, res.Entity.IsActive)
	assert.Equal(t, "Company deactivated successfully", res.Message)

	res, err = svc.Toggle(model.KindCompany, owner, extra.Entity.ID)
	require.NoError(t, err)
	assert.True(t, res.Entity.IsActive)
	assert.Equal(t, "Company activated successfully", res.Message)
}

func TestUpdateChecksLimitOnlyOnActivation(t *testing.T) {
	svc := newEntityService(NewMockEntityRepo())
	owner := "owner-1"

	var first *model.AdEntity
	for i := 0; i < 3; i++ {
		res, err := svc.Create(model.KindCompany, owner, "Company", true, 0)
		require.NoError(t, err)
		if first == nil {
			first = res.Entity
		}
	}
	inactive, err := svc.Create(model.KindCompany, owner, "Spare", false, 0)
	require.NoError(t, err)

	// An already-active row staying active never trips the limit.
	res, err := svc.Update(model.KindCompany, owner, first.ID, "Renamed", true, 0)
	require.NoError(t, err)
	assert.True(t, res.Entity.IsActive)
	assert.Equal(t, "Company updated successfully", res.Message)

	// Inactive to active past the limit: saved, but kept inactive.
	res, err = svc.Update(model.KindCompany, owner, inactive.Entity.ID, "Spare v2", true, 0)
	require.NoError(t, err)
	assert.False(t, res.Entity.IsActive)
	assert.Equal(t, "Spare v2", res.Entity.Title)
	assert.Equal(t,
		"Company updated but kept inactive. Maximum 3 active companys allowed. Please deactivate another company first.",
		res.Message)
}

func TestPerKindActiveLimits(t *testing.T) {
	repo := NewMockEntityRepo()
	svc := newEntityService(repo)
	owner := "owner-1"

	company, err := svc.Create(model.KindCompany, owner, "Company", true, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		res, err := svc.Create(model.KindAdCampaign, owner, "Campaign", true, company.Entity.ID)
		require.NoError(t, err)
		assert.True(t, res.Entity.IsActive)
	}
	res, err := svc.Create(model.KindAdCampaign, owner, "Sixth", true, company.Entity.ID)
	require.NoError(t, err)
	assert.False(t, res.Entity.IsActive)
	assert.Contains(t, res.Message, "Maximum 5 active campaigns allowed")
}

func TestCreateValidatesParentOwnership(t *testing.T) {
	svc := newEntityService(NewMockEntityRepo())

	company, err := svc.Create(model.KindCompany, "owner-1", "Mine", true, 0)
	require.NoError(t, err)

	// Another owner's company is invisible as a parent.
	_, err = svc.Create(model.KindAdCampaign, "owner-2", "Theirs", true, company.Entity.ID)
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestBulkDeleteScopedToOwner(t *testing.T) {
	svc := newEntityService(NewMockEntityRepo())

	mine, err := svc.Create(model.KindCompany, "owner-1", "Mine", false, 0)
	require.NoError(t, err)
	theirs, err := svc.Create(model.KindCompany, "owner-2", "Theirs", false, 0)
	require.NoError(t, err)

	res, err := svc.BulkDelete(model.KindCompany, "owner-1", []int{mine.Entity.ID, theirs.Entity.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, "Deleted 1 companies", res.Message)

	// The foreign row is untouched.
	_, err = svc.Get(model.KindCompany, "owner-2", theirs.Entity.ID)
	assert.NoError(t, err)
}

func TestBulkDeleteRejectsEmptyIDs(t *testing.T) {
	svc := newEntityService(NewMockEntityRepo())

	_, err := svc.BulkDelete(model.KindCompany, "owner-1", nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, "ids is required and must not be empty", err.Error())
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := newEntityService(NewMockEntityRepo())

	_, err := svc.Create(model.KindCompany, "owner-1", "   ", false, 0)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}
