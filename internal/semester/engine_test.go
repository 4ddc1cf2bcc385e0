package semester

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/storage"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newEngine(t *testing.T, backend storage.Backend) *Engine {
	t.Helper()
	mgr := storage.NewManager(backend, nil)
	e := New(mgr, StockDefaults(), WithClock(fixedClock))
	t.Cleanup(e.Close)
	return e
}

func seed(t *testing.T, b storage.Backend, key string, value any) {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, b.SetItem(key, string(raw)))
}

func stored(t *testing.T, b storage.Backend, key string) map[string]json.RawMessage {
	t.Helper()
	v, ok, err := b.GetItem(key)
	require.NoError(t, err)
	require.True(t, ok, "key %s not stored", key)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(v), &out))
	return out
}

func storedCourses(t *testing.T, b storage.Backend, key string) []model.Course {
	t.Helper()
	var courses []model.Course
	require.NoError(t, json.Unmarshal(stored(t, b, key)["courses"], &courses))
	return courses
}

func TestNewWithEmptyStorage(t *testing.T) {
	e := newEngine(t, storage.NewMemoryBackend())

	assert.Equal(t, Ready, e.Phase())
	assert.Equal(t, model.Start, e.ActiveSemester())
	assert.Empty(t, e.Courses())
	assert.Equal(t, model.DefaultStartTasks(), e.Tasks())
	assert.Empty(t, e.TaskStatus())
	assert.Zero(t, e.LoadReport().Count())

	st := e.Status()
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.StorageError)
}

func TestLoadRestoresActiveSemester(t *testing.T) {
	b := storage.NewMemoryBackend()
	seed(t, b, KeyActiveSemester, "end")
	seed(t, b, KeyEndSemester, map[string]any{
		"courses":    []map[string]any{{"id": 7, "code": "BIO101"}},
		"tasks":      map[string][]string{"EBS": {"Grades"}},
		"taskStatus": map[string]any{"7-EBS-Grades": true},
	})

	e := newEngine(t, b)

	assert.Equal(t, model.End, e.ActiveSemester())
	assert.Equal(t, []model.Course{{ID: 7, Code: "BIO101"}}, e.Courses())
	assert.Equal(t, model.Complete, e.TaskStatus().Get(model.Key(7, "EBS", "Grades")))
	assert.Zero(t, e.LoadReport().Count())
}

func TestLoadInvalidSelectorFallsBackToStart(t *testing.T) {
	b := storage.NewMemoryBackend()
	seed(t, b, KeyActiveSemester, "middle")

	e := newEngine(t, b)

	assert.Equal(t, model.Start, e.ActiveSemester())
	assert.Equal(t, 1, e.LoadReport().Count())
}

func TestLoadUnparsableRecordUsesDefaults(t *testing.T) {
	b := storage.NewMemoryBackend()
	require.NoError(t, b.SetItem(KeyStartSemester, "{not json"))

	e := newEngine(t, b)

	assert.Equal(t, Ready, e.Phase())
	assert.Empty(t, e.Courses())
	assert.Equal(t, model.DefaultStartTasks(), e.Tasks())
	assert.Equal(t, 1, e.LoadReport().Count())
}

func TestLoadPrunesOrphanedStatus(t *testing.T) {
	b := storage.NewMemoryBackend()
	seed(t, b, KeyStartSemester, map[string]any{
		"courses": []map[string]any{{"id": 1, "code": "A"}},
		"tasks":   map[string][]string{"T": {"S"}},
		"taskStatus": map[string]any{
			"1-T-S":  true,
			"99-T-S": true,
		},
	})

	e := newEngine(t, b)

	assert.Equal(t, model.TaskStatus{model.Key(1, "T", "S"): model.Complete}, e.TaskStatus())
	assert.Equal(t, 1, e.LoadReport().Count())

	// The repaired record is written back.
	e.Flush()
	var status map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored(t, b, KeyStartSemester)["taskStatus"], &status))
	assert.Len(t, status, 1)
	assert.Contains(t, status, "1-T-S")
}

func TestLoadKeepsHyphenatedNames(t *testing.T) {
	b := storage.NewMemoryBackend()
	seed(t, b, KeyStartSemester, map[string]any{
		"courses":    []map[string]any{{"id": 5, "code": "X"}},
		"tasks":      map[string][]string{"Set-up": {"Check-in"}},
		"taskStatus": map[string]any{"5-Set-up-Check-in": "na"},
	})

	e := newEngine(t, b)

	assert.Equal(t, model.NotApplicable, e.TaskStatus().Get(model.Key(5, "Set-up", "Check-in")))
	assert.Zero(t, e.LoadReport().Count())
}

func TestCopyIntoEmptySemesterAssignsNewIDs(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)
	e.SetCourses([]model.Course{{ID: 1, Code: "MATH101"}, {ID: 2, Code: "CS201"}})
	e.SetTaskStatus(model.TaskStatus{model.Key(1, "Moodle", "Dates"): model.Complete})

	n := e.CopyCourses()
	require.Equal(t, 2, n)

	other := e.OtherSemesterCourses()
	require.Len(t, other, 2)
	assert.Equal(t, "MATH101", other[0].Code)
	assert.Equal(t, "CS201", other[1].Code)
	assert.NotEqual(t, int64(1), other[0].ID)
	assert.NotEqual(t, int64(2), other[1].ID)
	assert.NotEqual(t, other[0].ID, other[1].ID)
	assert.Equal(t, fixedNow.UnixMilli(), other[0].ID)

	e.SetActiveSemester(model.End)
	assert.Empty(t, e.TaskStatus(), "statuses are not copied")

	e.Flush()
	assert.Len(t, storedCourses(t, b, KeyEndSemester), 2)
}

func TestCopySkipsConflictingCodes(t *testing.T) {
	e := newEngine(t, storage.NewMemoryBackend())
	e.SetActiveSemester(model.End)
	e.SetCourses([]model.Course{{ID: 10, Code: "cs201"}})
	e.SetActiveSemester(model.Start)
	e.SetCourses([]model.Course{{ID: 1, Code: "MATH101"}, {ID: 2, Code: "CS201"}})

	n := e.CopyCourses()

	assert.Equal(t, 1, n)
	other := e.OtherSemesterCourses()
	require.Len(t, other, 2)
	assert.Equal(t, "cs201", other[0].Code)
	assert.Equal(t, "MATH101", other[1].Code)
}

func TestCopyIDsExceedExistingIDs(t *testing.T) {
	e := newEngine(t, storage.NewMemoryBackend())
	high := fixedNow.UnixMilli() + 500
	e.SetCourses([]model.Course{{ID: high, Code: "A"}})

	require.Equal(t, 1, e.CopyCourses())

	assert.Equal(t, high+1, e.OtherSemesterCourses()[0].ID)
}

func TestCopyNothingDoesNotSave(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)

	assert.Zero(t, e.CopyCourses())
	e.Flush()

	_, ok, _ := b.GetItem(KeyEndSemester)
	assert.False(t, ok)
}

func TestSwitchingSemestersKeepsDataApart(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)
	e.SetCourses([]model.Course{{ID: 1, Code: "START1"}})

	e.SetActiveSemester(model.End)
	assert.Empty(t, e.Courses())
	assert.Equal(t, model.DefaultEndTasks(), e.Tasks())
	e.SetCourses([]model.Course{{ID: 2, Code: "END1"}})

	e.SetActiveSemester(model.Start)
	assert.Equal(t, []model.Course{{ID: 1, Code: "START1"}}, e.Courses())

	e.Flush()
	assert.Equal(t, []model.Course{{ID: 1, Code: "START1"}}, storedCourses(t, b, KeyStartSemester))
	assert.Equal(t, []model.Course{{ID: 2, Code: "END1"}}, storedCourses(t, b, KeyEndSemester))
	v, _, _ := b.GetItem(KeyActiveSemester)
	assert.Equal(t, `"start"`, v)
}

func TestSetActiveSemesterIdempotent(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)

	e.SetActiveSemester(model.Start)
	e.Flush()

	_, ok, _ := b.GetItem(KeyActiveSemester)
	assert.False(t, ok, "selecting the active semester must not save")
	assert.True(t, e.Status().LastSaved.IsZero())
}

func TestSetActiveSemesterIgnoresInvalid(t *testing.T) {
	e := newEngine(t, storage.NewMemoryBackend())
	e.SetActiveSemester(model.Semester("middle"))
	assert.Equal(t, model.Start, e.ActiveSemester())
}

func TestLastSaveReflectsLatestState(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)

	for i := 1; i <= 50; i++ {
		e.SetCourses([]model.Course{{ID: int64(i), Code: "C"}})
	}
	e.Flush()

	assert.Equal(t, []model.Course{{ID: 50, Code: "C"}}, storedCourses(t, b, KeyStartSemester))
	st := e.Status()
	assert.False(t, st.Saving)
	assert.Equal(t, fixedNow, st.LastSaved)
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)
	e.SetCourses([]model.Course{{ID: 1, Code: "A"}})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := string(rune('a' + i))
			e.UpdateTaskStatus(func(prev model.TaskStatus) model.TaskStatus {
				prev[model.Key(1, "T", sub)] = model.Complete
				return prev
			})
		}(i)
	}
	wg.Wait()
	e.Flush()

	assert.Len(t, e.TaskStatus(), 20)
	var status map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored(t, b, KeyStartSemester)["taskStatus"], &status))
	assert.Len(t, status, 20)
}

func TestUnavailableStorageSetsError(t *testing.T) {
	e := newEngine(t, storage.DisabledBackend{})

	assert.Equal(t, Ready, e.Phase())
	assert.Contains(t, e.Status().StorageError, "not available")

	e.ClearStorageError()
	e.SetCourses([]model.Course{{ID: 1, Code: "A"}})
	e.Flush()

	assert.Equal(t, []model.Course{{ID: 1, Code: "A"}}, e.Courses(), "memory state survives")
	assert.Empty(t, e.Status().StorageError, "unavailable storage is reported once")
}

// flakyBackend fails writes while failing is set.
type flakyBackend struct {
	*storage.MemoryBackend
	mu      sync.Mutex
	failing bool
}

func (f *flakyBackend) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *flakyBackend) SetItem(key, value string) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errors.New("disk on fire")
	}
	return f.MemoryBackend.SetItem(key, value)
}

func TestSaveFailureSurfacesAndClears(t *testing.T) {
	b := &flakyBackend{MemoryBackend: storage.NewMemoryBackend()}
	e := newEngine(t, b)

	b.setFailing(true)
	e.SetCourses([]model.Course{{ID: 1, Code: "A"}})
	e.Flush()
	assert.Contains(t, e.Status().StorageError, "Failed to save start semester data")
	assert.Contains(t, e.Status().StorageError, "disk on fire")

	b.setFailing(false)
	e.SetCourses([]model.Course{{ID: 2, Code: "B"}})
	e.Flush()
	assert.Empty(t, e.Status().StorageError)
	assert.Equal(t, []model.Course{{ID: 2, Code: "B"}}, storedCourses(t, b, KeyStartSemester))
}

// gatedStore turns writes away the way an unavailable Manager does.
type gatedStore struct {
	*storage.Manager
	mu         sync.Mutex
	down       bool
	rejectOnce map[string]bool
}

func (g *gatedStore) setDown(v bool) {
	g.mu.Lock()
	g.down = v
	g.mu.Unlock()
}

func (g *gatedStore) Write(key string, value any, opts ...storage.Option) storage.Result[struct{}] {
	g.mu.Lock()
	reject := g.down || g.rejectOnce[key]
	delete(g.rejectOnce, key)
	g.mu.Unlock()
	if reject {
		return storage.Result[struct{}]{Error: storage.ErrUnavailable.Error()}
	}
	return g.Manager.Write(key, value, opts...)
}

func (g *gatedStore) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.down && g.Manager.Available()
}

func newGatedEngine(t *testing.T, b storage.Backend) (*Engine, *gatedStore) {
	t.Helper()
	g := &gatedStore{Manager: storage.NewManager(b, nil), rejectOnce: map[string]bool{}}
	e := New(g, StockDefaults(), WithClock(fixedClock))
	t.Cleanup(e.Close)
	return e, g
}

func TestRejectedSaveRetriesWhenStoreAlreadyRecovered(t *testing.T) {
	b := storage.NewMemoryBackend()
	e, g := newGatedEngine(t, b)
	g.rejectOnce[KeyEndSemester] = true

	e.ReplaceSemester(model.End, model.SemesterData{Courses: []model.Course{{ID: 7, Code: "E"}}})
	e.Flush()

	assert.Empty(t, e.Status().StorageError)
	assert.Equal(t, []model.Course{{ID: 7, Code: "E"}}, storedCourses(t, b, KeyEndSemester))
}

func TestRejectedSaveRetriesAfterAnotherKeySaves(t *testing.T) {
	b := storage.NewMemoryBackend()
	e, g := newGatedEngine(t, b)

	g.setDown(true)
	e.ReplaceSemester(model.End, model.SemesterData{Courses: []model.Course{{ID: 7, Code: "E"}}})
	e.Flush()
	assert.NotEmpty(t, e.Status().StorageError)
	_, ok, err := b.GetItem(KeyEndSemester)
	require.NoError(t, err)
	assert.False(t, ok)

	g.setDown(false)
	e.SetCourses([]model.Course{{ID: 1, Code: "S"}})
	e.Flush()

	assert.Empty(t, e.Status().StorageError)
	assert.Equal(t, []model.Course{{ID: 1, Code: "S"}}, storedCourses(t, b, KeyStartSemester))
	assert.Equal(t, []model.Course{{ID: 7, Code: "E"}}, storedCourses(t, b, KeyEndSemester))
}

func TestClearAll(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)
	e.SetCourses([]model.Course{{ID: 1, Code: "A"}})
	e.SetActiveSemester(model.End)
	e.Flush()

	require.True(t, e.ClearAll())

	keys, err := b.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, model.Start, e.ActiveSemester())
	assert.Empty(t, e.Courses())
}

func TestCloseFlushesPendingSaves(t *testing.T) {
	b := storage.NewMemoryBackend()
	mgr := storage.NewManager(b, nil)
	e := New(mgr, StockDefaults(), WithClock(fixedClock))

	e.SetCourses([]model.Course{{ID: 3, Code: "Z"}})
	e.Close()
	e.Close()

	assert.Equal(t, []model.Course{{ID: 3, Code: "Z"}}, storedCourses(t, b, KeyStartSemester))
}

func TestReplaceSemesterLeavesActiveAlone(t *testing.T) {
	b := storage.NewMemoryBackend()
	e := newEngine(t, b)
	e.SetCourses([]model.Course{{ID: 1, Code: "A"}})

	e.ReplaceSemester(model.End, model.SemesterData{
		Courses: []model.Course{{ID: 9, Code: "Z"}},
		Tasks:   model.DefaultEndTasks(),
	})
	e.ReplaceSemester("middle", model.SemesterData{})
	e.Flush()

	assert.Equal(t, model.Start, e.ActiveSemester())
	assert.Equal(t, []model.Course{{ID: 1, Code: "A"}}, e.Courses())
	assert.Equal(t, []model.Course{{ID: 9, Code: "Z"}}, storedCourses(t, b, KeyEndSemester))
	assert.NotNil(t, e.Snapshot(model.End).TaskStatus)
}
