package proclist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/pkg/models"
)

func snap(pid, ppid int32, name, user string, cpu float64, mem uint64) models.ProcessSnapshot {
	return models.ProcessSnapshot{PID: pid, ParentPID: ppid, Name: name, User: user, CPUPercent: cpu, Memory: mem}
}

func snapPIDs(rows []models.ProcessSnapshot) []int32 {
	out := make([]int32, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.PID)
	}
	return out
}

func memberPIDs(rows []Member) []int32 {
	out := make([]int32, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.PID)
	}
	return out
}

var table = []models.ProcessSnapshot{
	snap(1, 0, "init", "root", 0.1, 10),
	snap(20, 1, "nginx", "www", 5, 300),
	snap(21, 20, "nginx-worker", "www", 40, 200),
	snap(22, 20, "nginx-worker", "www", 40, 250),
	snap(30, 1, "postgres", "postgres", 12, 900),
	snap(31, 30, "postgres-wal", "postgres", 1, 50),
}

func TestParseSortKey(t *testing.T) {
	tests := map[string]SortKey{
		"cpu": SortCPU, "MEM": SortMemory, "ram": SortMemory, "memory": SortMemory,
		"name": SortName, "user": SortUser, " pid ": SortPID,
	}
	for in, want := range tests {
		got, err := ParseSortKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSortKey("disk")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSelect(t *testing.T) {
	t.Run("cpu_descending_ties_by_pid", func(t *testing.T) {
		rows, err := Select(table, Filter{}, SortCPU, 0)
		require.NoError(t, err)
		assert.Equal(t, []int32{21, 22, 30, 20, 31, 1}, snapPIDs(rows))
	})

	t.Run("memory_descending", func(t *testing.T) {
		rows, err := Select(table, Filter{}, SortMemory, 2)
		require.NoError(t, err)
		assert.Equal(t, []int32{30, 20}, snapPIDs(rows))
	})

	t.Run("name_and_user_ascending", func(t *testing.T) {
		rows, err := Select(table, Filter{}, SortName, 0)
		require.NoError(t, err)
		assert.Equal(t, []int32{1, 20, 21, 22, 30, 31}, snapPIDs(rows))

		rows, err = Select(table, Filter{}, SortUser, 0)
		require.NoError(t, err)
		assert.Equal(t, []int32{30, 31, 1, 20, 21, 22}, snapPIDs(rows))
	})

	t.Run("filter_before_top", func(t *testing.T) {
		rows, err := Select(table, Filter{Name: "postgres"}, SortPID, 1)
		require.NoError(t, err)
		assert.Equal(t, []int32{30}, snapPIDs(rows))

		rows, err = Select(table, Filter{Name: "worker", User: "www"}, SortMemory, 0)
		require.NoError(t, err)
		assert.Equal(t, []int32{22, 21}, snapPIDs(rows))
	})

	t.Run("no_match", func(t *testing.T) {
		rows, err := Select(table, Filter{User: "nobody"}, SortCPU, 0)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("input_untouched", func(t *testing.T) {
		before := snapPIDs(table)
		_, err := Select(table, Filter{}, SortMemory, 0)
		require.NoError(t, err)
		assert.Equal(t, before, snapPIDs(table))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Select(table, Filter{}, SortCPU, -1)
		assert.ErrorIs(t, err, errs.ErrValidation)
		_, err = Select(table, Filter{}, SortKey("disk"), 0)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestFamily(t *testing.T) {
	t.Run("subtree_depth_first", func(t *testing.T) {
		family, err := Family(table, 20)
		require.NoError(t, err)
		assert.Equal(t, []int32{20, 21, 22}, memberPIDs(family))
		assert.Equal(t, 0, family[0].Depth)
		assert.Equal(t, 1, family[1].Depth)
	})

	t.Run("whole_tree", func(t *testing.T) {
		family, err := Family(table, 1)
		require.NoError(t, err)
		assert.Equal(t, []int32{1, 20, 21, 22, 30, 31}, memberPIDs(family))
		assert.Equal(t, 2, family[5].Depth)
	})

	t.Run("leaf", func(t *testing.T) {
		family, err := Family(table, 31)
		require.NoError(t, err)
		assert.Equal(t, []int32{31}, memberPIDs(family))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Family(table, 99)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("parent_loop", func(t *testing.T) {
		loop := []models.ProcessSnapshot{snap(5, 6, "a", "", 0, 0), snap(6, 5, "b", "", 0, 0), snap(7, 7, "self", "", 0, 0)}
		family, err := Family(loop, 5)
		require.NoError(t, err)
		assert.Equal(t, []int32{5, 6}, memberPIDs(family))

		family, err = Family(loop, 7)
		require.NoError(t, err)
		assert.Equal(t, []int32{7}, memberPIDs(family))
	})
}

func TestMemberJSONIsFlat(t *testing.T) {
	data, err := json.Marshal(Member{ProcessSnapshot: snap(21, 20, "nginx-worker", "www", 40, 200), Depth: 1})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, float64(21), fields["pid"])
	assert.Equal(t, float64(20), fields["parent_pid"])
	assert.Equal(t, float64(1), fields["depth"])
}
