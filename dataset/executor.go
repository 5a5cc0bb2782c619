package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
	"go.viam.com/ikdata/utils"
)

// DefaultShards is the number of shards a run uses when none is configured.
const DefaultShards = 8

// ChainFactory returns a new chain, posed at its reference configuration, and a solver for it. Every shard
// calls it once so that no chain is shared between goroutines.
type ChainFactory func() (*kinematics.Chain, kinematics.InverseKinematics, error)

// SamplerOptions are the sampler settings shared by every shard.
type SamplerOptions struct {
	Constraints           kinematics.Constraints
	Grid                  Grid
	TrackedLinks          []string
	IncludeBulkTransforms bool
	ReseedEachSample      bool
}

// ShardedExecutor samples the neighborhoods of a target list over parallel shards, each writing its own
// partition file.
type ShardedExecutor struct {
	Factory ChainFactory
	Options SamplerOptions
	Shards  int
	// Seed orders the targets before they are split. When nil a seed is drawn from the clock and reported in
	// the result, so every run splits differently but can be replayed.
	Seed *int64
	// WorkDir holds the partition files. Defaults to the current directory.
	WorkDir string
	// RunID namespaces the partition files. A random one is generated when empty.
	RunID  string
	Logger logging.Logger
	// Progress, when set, is called after every target of every shard, possibly concurrently.
	Progress func(done, total int)
}

// RunResult describes a finished sharded run.
type RunResult struct {
	RunID string
	// Seed is the shuffle seed the run used.
	Seed int64
	// Partitions are the partition files in shard order.
	Partitions []string
	Stats      SampleStats
	ShardStats []SampleStats
}

// PartitionPath returns the partition file of shard index (1-based) for a run.
func PartitionPath(dir, runID string, index int) string {
	return filepath.Join(dir, fmt.Sprintf(".%s-data%d.json", runID, index))
}

// Run shuffles and splits targets, samples every part on its own goroutine and waits for all of them. If any
// shard fails the run is canceled, the partition files are removed and the first error is returned.
func (e *ShardedExecutor) Run(ctx context.Context, targets []r3.Vector) (*RunResult, error) {
	if e.Factory == nil {
		return nil, errors.New("sharded executor needs a chain factory")
	}
	shards := e.Shards
	if shards <= 0 {
		shards = DefaultShards
	}
	runID := e.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	dir := e.WorkDir
	if dir == "" {
		dir = "."
	}

	seed := time.Now().UnixNano()
	if e.Seed != nil {
		seed = *e.Seed
	}

	parts := Partition(Shuffle(targets, seed), shards)
	result := &RunResult{
		RunID:      runID,
		Seed:       seed,
		Partitions: lo.Times(shards, func(i int) string { return PartitionPath(dir, runID, i+1) }),
		ShardStats: make([]SampleStats, shards),
	}
	e.Logger.Infow("starting sharded run", "run_id", runID, "seed", seed, "targets", len(targets), "shards", shards,
		"sizes", lo.Map(parts, func(p []r3.Vector, _ int) int { return len(p) }))

	done := atomic.NewInt64(0)
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("shard %d panicked: %v", i+1, r)
				}
			}()
			st, err := e.runShard(gctx, i+1, part, result.Partitions[i], func() {
				n := done.Inc()
				if e.Progress != nil {
					e.Progress(int(n), len(targets))
				}
			})
			result.ShardStats[i] = st
			return err
		})
	}
	if err := g.Wait(); err != nil {
		utils.RemoveFilesNoError(result.Partitions...)
		return nil, err
	}

	for _, st := range result.ShardStats {
		result.Stats.Merge(st)
	}
	return result, nil
}

func (e *ShardedExecutor) runShard(
	ctx context.Context,
	index int,
	targets []r3.Vector,
	path string,
	onTarget func(),
) (st SampleStats, err error) {
	logger := e.Logger.Sublogger(fmt.Sprintf("shard%d", index))
	chain, ik, err := e.Factory()
	if err != nil {
		return st, errors.Wrapf(err, "shard %d", index)
	}
	sink, err := NewJSONArraySink(path)
	if err != nil {
		return st, err
	}
	defer func() {
		err = multierr.Combine(err, sink.Close())
	}()

	sampler := &NeighborhoodSampler{
		Chain:                 chain,
		IK:                    ik,
		Constraints:           e.Options.Constraints,
		Grid:                  e.Options.Grid,
		TrackedLinks:          e.Options.TrackedLinks,
		IncludeBulkTransforms: e.Options.IncludeBulkTransforms,
		ReseedEachSample:      e.Options.ReseedEachSample,
		Logger:                logger,
		OnTarget:              onTarget,
	}
	logger.Debugw("sampling", "targets", len(targets), "partition", path)
	st, err = sampler.Sample(ctx, targets, sink)
	if err != nil {
		return st, errors.Wrapf(err, "shard %d", index)
	}
	logger.Infow("shard finished", "records", st.Records, "skipped_targets", st.SkippedTargets, "failures", st.Failures)
	return st, nil
}
