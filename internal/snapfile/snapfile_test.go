package snapfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monify-labs/procwatch/pkg/models"
)

func sampleSet(id string, at time.Time) *models.SnapshotSet {
	return &models.SnapshotSet{
		ID:      id,
		TakenAt: at,
		Snapshots: []models.ProcessSnapshot{
			{PID: 1, Name: "init", CPUPercent: 0.5, Memory: 4096, SampledAt: at},
			{PID: 42, Name: "db", CPUPercent: 12.25, Memory: 1 << 20, SampledAt: at},
		},
	}
}

func TestSaveLoad(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, name := range []string{"set.json", "set.yaml", "set.yml", "nested/dir/set.snap"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, sampleSet("a", at)))

			sets, err := Load(path)
			require.NoError(t, err)
			require.Len(t, sets, 1)
			assert.Equal(t, "a", sets[0].ID)
			assert.True(t, at.Equal(sets[0].TakenAt))
			assert.Equal(t, []int32{1, 42}, sets[0].PIDs())
			assert.Equal(t, 12.25, sets[0].Snapshots[1].CPUPercent)
		})
	}
}

func TestLoadList(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	sets := []models.SnapshotSet{*sampleSet("a", at), *sampleSet("b", at.Add(time.Minute))}

	for _, name := range []string{"sets.json", "sets.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveAll(path, sets))

			got, err := Load(path)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "a", got[0].ID)
			assert.Equal(t, "b", got[1].ID)
		})
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := filepath.Join(dir, "1.json")
	second := filepath.Join(dir, "2.yaml")
	require.NoError(t, Save(first, sampleSet("one", at)))
	require.NoError(t, Save(second, sampleSet("two", at)))

	sets, err := LoadAll(first, second)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "one", sets[0].ID)
	assert.Equal(t, "two", sets[1].ID)

	_, err = LoadAll(first, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("malformed_json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("empty_file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		sets, err := Load(path)
		require.NoError(t, err)
		assert.Empty(t, sets)
	})
}
