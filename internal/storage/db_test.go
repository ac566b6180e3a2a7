package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"slide-extractor/internal/appdirs"
	"slide-extractor/internal/types"
)

func useTestDB(t *testing.T) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "db", "slides.db"))
	require.NoError(t, err)
	old := DB
	DB = db
	t.Cleanup(func() { DB = old })
}

func TestResolveDBPathUsesCacheDir(t *testing.T) {
	originalResolver := appDirsResolver
	t.Cleanup(func() { appDirsResolver = originalResolver })

	cacheDir := filepath.Join(t.TempDir(), "cache-root")
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{CacheDir: cacheDir}, nil
	}

	got, err := resolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "slides.db"), got)
}

func TestTaskLifecycle(t *testing.T) {
	useTestDB(t)

	task := &types.SlideTask{TaskId: "t1", VideoSrc: "local:/tmp/a.mp4", Threshold: 0.85, Status: types.SlideTaskStatusProcessing}
	require.NoError(t, SaveTask(task))
	firstID := task.Id

	task.Status = types.SlideTaskStatusSuccess
	task.SlideCount = 2
	require.NoError(t, SaveTask(task))
	assert.Equal(t, firstID, task.Id, "saving again updates the same row")

	require.NoError(t, ReplaceSlides("t1", []types.SlideInfo{{Seq: 2, Timestamp: 5}, {Seq: 1}}))
	require.NoError(t, UpdateProgress("t1", 100, "done"))

	got, err := GetTask("t1")
	require.NoError(t, err)
	assert.Equal(t, types.SlideTaskStatusSuccess, got.Status)
	assert.Equal(t, uint8(100), got.ProcessPct)
	require.Len(t, got.SlideInfos, 2)
	assert.Equal(t, 1, got.SlideInfos[0].Seq)

	require.NoError(t, ReplaceSlides("t1", []types.SlideInfo{{Seq: 1}}))
	got, err = GetTask("t1")
	require.NoError(t, err)
	assert.Len(t, got.SlideInfos, 1)

	require.NoError(t, SaveTask(&types.SlideTask{TaskId: "t2"}))
	history, err := GetTaskHistory(10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, DeleteTask("t1"))
	_, err = GetTask("t1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkStaleTasks(t *testing.T) {
	useTestDB(t)

	require.NoError(t, SaveTask(&types.SlideTask{TaskId: "running", Status: types.SlideTaskStatusProcessing}))
	require.NoError(t, SaveTask(&types.SlideTask{TaskId: "done", Status: types.SlideTaskStatusSuccess}))
	require.NoError(t, SaveTask(&types.SlideTask{TaskId: "queued", Status: types.SlideTaskStatusPending}))

	n, err := MarkStaleTasks(false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = MarkStaleTasks(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the pending task is left to fail")

	got, err := GetTask("running")
	require.NoError(t, err)
	assert.Equal(t, types.SlideTaskStatusFailed, got.Status)
	assert.NotEmpty(t, got.FailReason)
}

func TestUninitialised(t *testing.T) {
	old := DB
	DB = nil
	t.Cleanup(func() { DB = old })

	assert.ErrorIs(t, SaveTask(&types.SlideTask{}), ErrNotInitialized)
	_, err := GetTask("x")
	assert.ErrorIs(t, err, ErrNotInitialized)
}
