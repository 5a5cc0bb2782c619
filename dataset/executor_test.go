package dataset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/test"

	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
)

func fakeFactory(ik func() kinematics.InverseKinematics) ChainFactory {
	return func() (*kinematics.Chain, kinematics.InverseKinematics, error) {
		c, err := newTwoLink()
		if err != nil {
			return nil, nil, err
		}
		return c, ik(), nil
	}
}

func testTargets(n int) []r3.Vector {
	return lo.Times(n, func(i int) r3.Vector { return r3.Vector{X: float64(i)} })
}

func TestShardedRun(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	maxDone := 0
	e := &ShardedExecutor{
		Factory: fakeFactory(func() kinematics.InverseKinematics { return &fakeIK{} }),
		Options: SamplerOptions{Constraints: planarConstraints, Grid: Grid{Min: 0, Max: 2, Step: 0.1}},
		Shards:  3,
		Seed:    lo.ToPtr(int64(1)),
		WorkDir: dir,
		RunID:   "test",
		Logger:  logging.NewTestLogger(t),
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			test.That(t, total, test.ShouldEqual, 10)
			if done > maxDone {
				maxDone = done
			}
		},
	}
	result, err := e.Run(context.Background(), testTargets(10))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.RunID, test.ShouldEqual, "test")
	test.That(t, result.Seed, test.ShouldEqual, 1)
	test.That(t, result.Partitions, test.ShouldResemble, []string{
		PartitionPath(dir, "test", 1),
		PartitionPath(dir, "test", 2),
		PartitionPath(dir, "test", 3),
	})
	test.That(t, maxDone, test.ShouldEqual, 10)

	// shards get 4, 3 and 3 targets of 8 samples each
	for i, want := range []int{4, 3, 3} {
		test.That(t, readJSONArray(t, result.Partitions[i]), test.ShouldHaveLength, 8*want)
		test.That(t, result.ShardStats[i].Targets, test.ShouldEqual, want)
	}
	test.That(t, result.Stats.Targets, test.ShouldEqual, 10)
	test.That(t, result.Stats.Records, test.ShouldEqual, 80)

	output := filepath.Join(dir, "DATA.json")
	count, err := AssembleDataset(result.Partitions, output, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 80)
	test.That(t, readJSONArray(t, output), test.ShouldHaveLength, 80)
	for _, path := range result.Partitions {
		_, err := os.Stat(path)
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	}
}

func TestShardedRunDefaults(t *testing.T) {
	dir := t.TempDir()
	e := &ShardedExecutor{
		Factory: fakeFactory(func() kinematics.InverseKinematics { return &fakeIK{} }),
		Options: SamplerOptions{Grid: Grid{Min: 0, Max: 1, Step: 0.1}},
		WorkDir: dir,
		Logger:  logging.NewTestLogger(t),
	}
	result, err := e.Run(context.Background(), testTargets(3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.RunID, test.ShouldNotBeEmpty)
	test.That(t, result.Partitions, test.ShouldHaveLength, DefaultShards)
	// every partition exists, the trailing ones hold empty arrays
	for i, path := range result.Partitions {
		want := 0
		if i < 3 {
			want = 1
		}
		test.That(t, readJSONArray(t, path), test.ShouldHaveLength, want)
	}
	test.That(t, result.Stats.Records, test.ShouldEqual, 3)
}

func TestShardedRunSeed(t *testing.T) {
	run := func(seed *int64) (*RunResult, [][]byte) {
		e := &ShardedExecutor{
			Factory: fakeFactory(func() kinematics.InverseKinematics { return &fakeIK{} }),
			Options: SamplerOptions{Grid: Grid{Min: 0, Max: 1, Step: 0.1}},
			Shards:  3,
			Seed:    seed,
			WorkDir: t.TempDir(),
			RunID:   "seeded",
			Logger:  logging.NewTestLogger(t),
		}
		result, err := e.Run(context.Background(), testTargets(12))
		test.That(t, err, test.ShouldBeNil)
		contents := make([][]byte, 0, len(result.Partitions))
		for _, path := range result.Partitions {
			data, err := os.ReadFile(path)
			test.That(t, err, test.ShouldBeNil)
			contents = append(contents, data)
		}
		return result, contents
	}

	// an unset seed is drawn and reported, and replaying it splits the targets the same way
	drawn, first := run(nil)
	replayed, second := run(lo.ToPtr(drawn.Seed))
	test.That(t, replayed.Seed, test.ShouldEqual, drawn.Seed)
	test.That(t, second, test.ShouldResemble, first)
}

func TestShardedRunFailures(t *testing.T) {
	logger := logging.NewTestLogger(t)
	grid := Grid{Min: 0, Max: 1, Step: 0.1}

	assertCleanedUp := func(t *testing.T, dir string) {
		t.Helper()
		entries, err := os.ReadDir(dir)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, entries, test.ShouldBeEmpty)
	}

	t.Run("solver error", func(t *testing.T) {
		dir := t.TempDir()
		boom := errors.New("boom")
		e := &ShardedExecutor{
			Factory: fakeFactory(func() kinematics.InverseKinematics { return &fakeIK{err: boom} }),
			Options: SamplerOptions{Grid: grid},
			Shards:  2,
			WorkDir: dir,
			Logger:  logger,
		}
		_, err := e.Run(context.Background(), testTargets(4))
		test.That(t, err, test.ShouldWrap, boom)
		assertCleanedUp(t, dir)
	})

	t.Run("panic", func(t *testing.T) {
		dir := t.TempDir()
		e := &ShardedExecutor{
			Factory: func() (*kinematics.Chain, kinematics.InverseKinematics, error) {
				panic("no chain for you")
			},
			Options: SamplerOptions{Grid: grid},
			Shards:  2,
			WorkDir: dir,
			Logger:  logger,
		}
		_, err := e.Run(context.Background(), testTargets(4))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "panicked")
		test.That(t, err.Error(), test.ShouldContainSubstring, "no chain for you")
		assertCleanedUp(t, dir)
	})

	t.Run("factory error", func(t *testing.T) {
		dir := t.TempDir()
		e := &ShardedExecutor{
			Factory: func() (*kinematics.Chain, kinematics.InverseKinematics, error) {
				return nil, nil, errors.New("bad model")
			},
			Options: SamplerOptions{Grid: grid},
			WorkDir: dir,
			Logger:  logger,
		}
		_, err := e.Run(context.Background(), testTargets(4))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "bad model")
		assertCleanedUp(t, dir)
	})

	t.Run("unwritable partition", func(t *testing.T) {
		dir := t.TempDir()
		e := &ShardedExecutor{
			Factory: fakeFactory(func() kinematics.InverseKinematics { return &fakeIK{} }),
			Options: SamplerOptions{Grid: grid},
			Shards:  3,
			WorkDir: filepath.Join(dir, "missing"),
			Logger:  logger,
		}
		_, err := e.Run(context.Background(), testTargets(6))
		test.That(t, err, test.ShouldWrap, ErrIO)
		test.That(t, errors.Is(err, fs.ErrNotExist), test.ShouldBeTrue)
		assertCleanedUp(t, dir)
	})

	t.Run("no factory", func(t *testing.T) {
		_, err := (&ShardedExecutor{Logger: logger}).Run(context.Background(), nil)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
