package isolate_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/isolate"
	"github.com/JakeFAU/topic-harvester/internal/isolate/isolatetest"
	"github.com/JakeFAU/topic-harvester/internal/pool"
)

func TestMain(m *testing.M) {
	isolatetest.ServeIfHelper()
	os.Exit(m.Run())
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestProcessExecutorRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exec := isolate.NewProcessExecutor(isolatetest.Command(), nil)
	t.Cleanup(func() { _ = exec.Close() })

	res, err := exec.Execute(context.Background(), pool.Task{Identifier: "A", Location: dir})
	require.NoError(t, err)
	assert.Equal(t, "A", res.Identifier)
	assert.Equal(t, "A.txt", res.Key)
	assert.True(t, res.OK())

	res, err = exec.Execute(context.Background(), pool.Task{Identifier: "B", Location: dir})
	require.NoError(t, err)
	assert.Equal(t, harvest.KindTimeout, res.Kind)
	assert.Contains(t, res.Detail, "Timeout: ")

	data, err := os.ReadFile(filepath.Join(dir, "A.txt"))
	require.NoError(t, err)
	assert.Equal(t, "r1\nr2", string(data))
	assert.Equal(t, 1, exec.Spawned())

	require.NoError(t, exec.Close())
}

func TestProcessExecutorRespawnsAfterCrash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exec := isolate.NewProcessExecutor(isolatetest.Command(), nil)
	t.Cleanup(func() { _ = exec.Close() })

	_, err := exec.Execute(context.Background(), pool.Task{Identifier: isolatetest.CrashIdentifier, Location: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "crashing on purpose")

	res, err := exec.Execute(context.Background(), pool.Task{Identifier: "C", Location: dir})
	require.NoError(t, err)
	assert.Equal(t, "C.txt", res.Key)
	assert.Equal(t, 2, exec.Spawned())
}

func TestProcessExecutorMissingPath(t *testing.T) {
	t.Parallel()

	exec := isolate.NewProcessExecutor(isolate.Command{}, nil)
	_, err := exec.Execute(context.Background(), pool.Task{Identifier: "A"})
	require.Error(t, err)
	assert.NoError(t, exec.Close())
}

func TestPoolWithProcessExecutorsContainsCrash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := pool.New(pool.Config{Size: 2, Location: dir}, isolate.Factory(isolatetest.Command(), nil))

	var results []harvest.Result
	agg := p.Run(context.Background(), []string{"A", isolatetest.CrashIdentifier, "B", "C"}, reporterFunc(func(res harvest.Result) {
		results = append(results, res)
	}))

	assert.Equal(t, harvest.Aggregate{OK: 2, Skipped: 2}, agg)
	require.Len(t, results, 4)
	for _, res := range results {
		if res.Identifier == isolatetest.CrashIdentifier {
			assert.Equal(t, harvest.KindOrchestrationFault, res.Kind)
			assert.Contains(t, res.Detail, "worker error: ")
		}
	}
	assert.Equal(t, []string{"A.txt", "C.txt"}, listDir(t, dir))
}

type reporterFunc func(harvest.Result)

func (f reporterFunc) Report(res harvest.Result) { f(res) }
