package service_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/repository"
	"github.com/kplanner/kplanner-backend/internal/service"
)

// MockRelationRepo keeps relation rows for all three levels in memory.
type MockRelationRepo struct {
	nextID    int
	relations map[model.EntityKind]map[int]*model.KeywordRelation
}

func NewMockRelationRepo() *MockRelationRepo {
	m := &MockRelationRepo{relations: map[model.EntityKind]map[int]*model.KeywordRelation{}}
	for _, kind := range model.Kinds() {
		m.relations[kind] = map[int]*model.KeywordRelation{}
	}
	return m
}

func (m *MockRelationRepo) Get(kind model.EntityKind, entityID, keywordID int, owner string) (*model.KeywordRelation, error) {
	for _, rel := range m.relations[kind] {
		if rel.EntityID == entityID && rel.KeywordID == keywordID && rel.Owner == owner {
			copy := *rel
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRelationRepo) Insert(rel *model.KeywordRelation) error {
	m.nextID++
	rel.ID = m.nextID
	stored := *rel
	m.relations[rel.Kind][rel.ID] = &stored
	return nil
}

func (m *MockRelationRepo) Update(rel *model.KeywordRelation) error {
	stored := *rel
	m.relations[rel.Kind][rel.ID] = &stored
	return nil
}

func (m *MockRelationRepo) Delete(kind model.EntityKind, id int) error {
	delete(m.relations[kind], id)
	return nil
}

func (m *MockRelationRepo) ListByKeyword(kind model.EntityKind, keywordID int, owner string) ([]*model.KeywordRelation, error) {
	out := []*model.KeywordRelation{}
	for _, rel := range m.relations[kind] {
		if rel.KeywordID == keywordID && rel.Owner == owner {
			copy := *rel
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRelationRepo) FetchMatrix(kind model.EntityKind, keywordIDs, entityIDs []int, owner string) (map[int]map[int]model.MatchTypes, error) {
	matrix := map[int]map[int]model.MatchTypes{}
	if len(keywordIDs) == 0 || len(entityIDs) == 0 {
		return matrix, nil
	}
	inSet := func(ids []int, id int) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}
	for _, rel := range m.relations[kind] {
		if rel.Owner != owner || !inSet(keywordIDs, rel.KeywordID) || !inSet(entityIDs, rel.EntityID) {
			continue
		}
		if matrix[rel.EntityID] == nil {
			matrix[rel.EntityID] = map[int]model.MatchTypes{}
		}
		matrix[rel.EntityID][rel.KeywordID] = rel.MatchTypes
	}
	return matrix, nil
}

func (m *MockRelationRepo) BulkDelete(kind model.EntityKind, ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			if rel, ok := m.relations[kind][id]; ok && rel.Owner == owner {
				delete(m.relations[kind], id)
				deleted++
			}
		}
		batches++
	}
	return deleted, batches, nil
}

func (m *MockRelationRepo) SweepEmpty(owner string) (int, error) {
	total := 0
	for _, kind := range model.Kinds() {
		for id, rel := range m.relations[kind] {
			if rel.Owner == owner && rel.IsEmpty() {
				delete(m.relations[kind], id)
				total++
			}
		}
	}
	return total, nil
}

// MockKeywordRepo keeps keywords in memory.
type MockKeywordRepo struct {
	nextID   int
	keywords map[int]*model.Keyword
}

func NewMockKeywordRepo() *MockKeywordRepo {
	return &MockKeywordRepo{keywords: map[int]*model.Keyword{}}
}

func (m *MockKeywordRepo) GetOrCreate(text, owner string) (*model.Keyword, bool, error) {
	for _, k := range m.keywords {
		if k.Keyword == text && k.Owner == owner {
			copy := *k
			return &copy, false, nil
		}
	}
	m.nextID++
	k := &model.Keyword{ID: m.nextID, Keyword: text, Owner: owner}
	m.keywords[k.ID] = k
	copy := *k
	return &copy, true, nil
}

func (m *MockKeywordRepo) GetByID(id int, owner string) (*model.Keyword, error) {
	k, ok := m.keywords[id]
	if !ok || k.Owner != owner {
		return nil, appErrors.NewNotFound("keyword")
	}
	copy := *k
	return &copy, nil
}

func (m *MockKeywordRepo) GetByIDs(ids []int, owner string) ([]*model.Keyword, error) {
	out := []*model.Keyword{}
	for _, id := range ids {
		if k, ok := m.keywords[id]; ok && k.Owner == owner {
			copy := *k
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockKeywordRepo) Update(k *model.Keyword) error {
	stored, ok := m.keywords[k.ID]
	if !ok || stored.Owner != k.Owner {
		return appErrors.NewNotFound("keyword")
	}
	updated := *k
	m.keywords[k.ID] = &updated
	return nil
}

func (m *MockKeywordRepo) ListMatrix(q repository.MatrixQuery) ([]*model.Keyword, int, error) {
	all := []*model.Keyword{}
	for _, k := range m.keywords {
		if k.Owner != q.Owner {
			continue
		}
		if q.Search != "" && !strings.Contains(k.Keyword, q.Search) {
			continue
		}
		all = append(all, k)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if q.Offset >= total {
		return []*model.Keyword{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func (m *MockKeywordRepo) SetTrash(ids []int, owner string, trash bool, batchSize int) (int, int, error) {
	updated, batches := 0, 0
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			if k, ok := m.keywords[id]; ok && k.Owner == owner {
				t := trash
				k.Trash = &t
				updated++
			}
		}
		batches++
	}
	return updated, batches, nil
}

func (m *MockKeywordRepo) BulkDelete(ids []int, owner string, batchSize int) (int, int, error) {
	deleted, batches := 0, 0
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			if k, ok := m.keywords[id]; ok && k.Owner == owner {
				delete(m.keywords, id)
				deleted++
			}
		}
		batches++
	}
	return deleted, batches, nil
}

func truePtr() *bool  { b := true; return &b }
func falsePtr() *bool { b := false; return &b }

func newRelationService(relations *MockRelationRepo, keywords *MockKeywordRepo) *service.RelationService {
	return &service.RelationService{
		Relations: relations,
		Keywords:  keywords,
		Cfg:       testConfig(),
		Log:       zap.NewNop(),
	}
}

func seedKeyword(t *testing.T, keywords *MockKeywordRepo, text, owner string) *model.Keyword {
	t.Helper()
	k, created, err := keywords.GetOrCreate(text, owner)
	require.NoError(t, err)
	require.True(t, created)
	return k
}

func TestReconcileCreatesVerbatimIgnoringOverrides(t *testing.T) {
	relations := NewMockRelationRepo()
	keywords := NewMockKeywordRepo()
	svc := newRelationService(relations, keywords)
	owner := "owner-1"
	kw := seedKeyword(t, keywords, "running shoes", owner)

	// Overrides have no meaning when there is no row yet.
	res, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{Broad: truePtr(), Exact: falsePtr()},
		model.OverrideFlags{Broad: true, Phrase: true, Exact: true, Pause: true},
		0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Updated)

	rel, err := relations.Get(model.KindCompany, 10, kw.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, true, *rel.Broad)
	assert.Nil(t, rel.Phrase)
	assert.Equal(t, false, *rel.Exact)
	assert.Nil(t, rel.Pause)
}

func TestReconcileSkipsAllNilPatchOnMissingRow(t *testing.T) {
	relations := NewMockRelationRepo()
	keywords := NewMockKeywordRepo()
	svc := newRelationService(relations, keywords)
	owner := "owner-1"
	kw := seedKeyword(t, keywords, "running shoes", owner)

	res, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{}, model.OverrideFlags{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, res.Relations)

	rel, err := relations.Get(model.KindCompany, 10, kw.ID, owner)
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestReconcileWithheldOverrideLeavesField(t *testing.T) {
	relations := NewMockRelationRepo()
	keywords := NewMockKeywordRepo()
	svc := newRelationService(relations, keywords)
	owner := "owner-1"
	kw := seedKeyword(t, keywords, "running shoes", owner)

	_, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{Broad: truePtr()}, model.OverrideFlags{}, 0)
	require.NoError(t, err)

	// Without override_broad the set field keeps its value; the unset phrase
	// field always takes the patch.
	res, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{Broad: falsePtr(), Phrase: truePtr()},
		model.OverrideFlags{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)

	rel, err := relations.Get(model.KindCompany, 10, kw.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, true, *rel.Broad)
	assert.Equal(t, true, *rel.Phrase)

	// Patching only set fields without overrides changes nothing at all.
	res, err = svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{Broad: falsePtr(), Phrase: falsePtr()},
		model.OverrideFlags{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
}

func TestReconcileOverrideOverwritesAndIsIdempotent(t *testing.T) {
	relations := NewMockRelationRepo()
	keywords := NewMockKeywordRepo()
	svc := newRelationService(relations, keywords)
	owner := "owner-1"
	kw := seedKeyword(t, keywords, "running shoes", owner)

	_, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{Broad: truePtr()}, model.OverrideFlags{}, 0)
	require.NoError(t, err)

	patch := model.MatchTypes{Broad: falsePtr()}
	overrides := model.OverrideFlags{Broad: true}

	res, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}}, patch, overrides, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	// Same patch again: the value no longer changes, so nothing counts as
	// updated.
	res, err = svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}}, patch, overrides, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 0, res.Deleted)
}

func TestReconcileDeletesEmptiedRowAndReportsTombstone(t *testing.T) {
	relations := NewMockRelationRepo()
	keywords := NewMockKeywordRepo()
	svc := newRelationService(relations, keywords)
	owner := "owner-1"
	kw := seedKeyword(t, keywords, "running shoes", owner)

	_, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{AdGroupIDs: []int{7}},
		model.MatchTypes{Broad: truePtr()}, model.OverrideFlags{}, 0)
	require.NoError(t, err)

	// Overriding the only set field to nil empties the row: it is deleted
	// and reported as a tombstone with every flag nil.
	res, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{AdGroupIDs: []int{7}},
		model.MatchTypes{}, model.OverrideFlags{Broad: true}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	require.Len(t, res.Relations, 1)

	tomb := res.Relations[0]
	assert.Equal(t, 0, tomb.ID)
	assert.Equal(t, 7, tomb.EntityID)
	assert.Equal(t, kw.ID, tomb.KeywordID)
	assert.True(t, tomb.IsEmpty())

	rel, err := relations.Get(model.KindAdGroup, 7, kw.ID, owner)
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestBulkCreateRelationsSkipsForeignKeywords(t *testing.T) {
	relations := NewMockRelationRepo()
	keywords := NewMockKeywordRepo()
	svc := newRelationService(relations, keywords)

	mine := seedKeyword(t, keywords, "mine", "owner-1")
	theirs := seedKeyword(t, keywords, "theirs", "owner-2")

	res, err := svc.BulkCreateRelations("owner-1", []int{mine.ID, theirs.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{Broad: truePtr()}, model.OverrideFlags{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Requested)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, "Processed 1 keywords", res.Message)

	rel, err := relations.Get(model.KindCompany, 10, theirs.ID, "owner-2")
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestBulkUpdateRelationsTouchesOnlyExistingRows(t *testing.T) {
	relations := NewMockRelationRepo()
	keywords := NewMockKeywordRepo()
	svc := newRelationService(relations, keywords)
	owner := "owner-1"
	kw := seedKeyword(t, keywords, "running shoes", owner)

	_, err := svc.BulkCreateRelations(owner, []int{kw.ID},
		service.TargetSet{CompanyIDs: []int{10}},
		model.MatchTypes{Broad: truePtr()}, model.OverrideFlags{}, 0)
	require.NoError(t, err)

	res, err := svc.BulkUpdateRelations(owner, []int{kw.ID},
		model.MatchTypes{Phrase: truePtr()}, model.OverrideFlags{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "Updated 1 relations for 1 keywords", res.Message)

	// No new rows appear at other levels.
	rel, err := relations.Get(model.KindAdCampaign, 10, kw.ID, owner)
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestBulkUpdateRelationsEnforcesKeywordCap(t *testing.T) {
	svc := newRelationService(NewMockRelationRepo(), NewMockKeywordRepo())

	ids := make([]int, 101)
	for i := range ids {
		ids[i] = i + 1
	}
	_, err := svc.BulkUpdateRelations("owner-1", ids, model.MatchTypes{}, model.OverrideFlags{}, 0)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, "Maximum 100 keywords allowed per request", err.Error())
}

func TestSweepEmptyRemovesOnlyEmptyRows(t *testing.T) {
	relations := NewMockRelationRepo()
	svc := newRelationService(relations, NewMockKeywordRepo())
	owner := "owner-1"

	empty := &model.KeywordRelation{Kind: model.KindCompany, EntityID: 1, KeywordID: 1, Owner: owner}
	full := &model.KeywordRelation{
		Kind: model.KindCompany, EntityID: 2, KeywordID: 1, Owner: owner,
		MatchTypes: model.MatchTypes{Broad: truePtr()},
	}
	require.NoError(t, relations.Insert(empty))
	require.NoError(t, relations.Insert(full))

	n, err := svc.SweepEmpty(owner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rel, err := relations.Get(model.KindCompany, 2, 1, owner)
	require.NoError(t, err)
	assert.NotNil(t, rel)
}
