package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/golang/geo/r3"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/ikdata/config"
	"go.viam.com/ikdata/dataset"
	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
)

func generateSteps() []*Step {
	return []*Step{
		{ID: "generate", Message: "Generating dataset"},
		{ID: "explore", Message: "Exploring reachable targets", IndentLevel: 1},
		{ID: "sample", Message: "Sampling target neighborhoods", IndentLevel: 1},
		{ID: "assemble", Message: "Assembling dataset", IndentLevel: 1},
	}
}

// GenerateAction runs the whole pipeline: reachability exploration, sharded neighborhood sampling and assembly
// of the partitions into the output file.
func GenerateAction(c *cli.Context) error {
	cfg, logger, err := fromContext(c)
	if err != nil {
		return err
	}
	if err := applyRunFlags(c, cfg); err != nil {
		return err
	}

	pm := NewProgressManager(c.App.Writer, generateSteps(), WithProgressOutput(showProgress(c)))
	defer pm.Stop()
	if err := pm.Start("generate"); err != nil {
		return err
	}

	if err := pm.Start("explore"); err != nil {
		return err
	}
	targets, err := explore(c, cfg, logger, pm.progressReporter("slices"))
	if err != nil {
		return multierr.Combine(err, pm.Fail("explore", err))
	}
	if err := pm.CompleteWithMessage("explore", fmt.Sprintf("Found %d reachable targets", len(targets))); err != nil {
		return err
	}

	if err := pm.Start("sample"); err != nil {
		return err
	}
	executor := &dataset.ShardedExecutor{
		Factory:  cfg.ChainFactory(logger.Sublogger("ik")),
		Options:  cfg.SamplerOptions(),
		Shards:   cfg.Shards,
		Seed:     cfg.Seed,
		WorkDir:  cfg.WorkDir,
		RunID:    c.String(flagRunID),
		Logger:   logger,
		Progress: pm.progressReporter("targets"),
	}
	result, err := executor.Run(c.Context, targets)
	if err != nil {
		return multierr.Combine(err, pm.Fail("sample", err))
	}
	if err := pm.CompleteWithMessage("sample", fmt.Sprintf("Sampled %d records", result.Stats.Records)); err != nil {
		return err
	}

	if err := pm.Start("assemble"); err != nil {
		return err
	}
	count, err := dataset.AssembleDataset(result.Partitions, cfg.Output, logger)
	if err != nil {
		return multierr.Combine(err, pm.Fail("assemble", err))
	}
	info, err := os.Stat(cfg.Output)
	if err != nil {
		err = dataset.NewIOError(err, "reading %s", cfg.Output)
		return multierr.Combine(err, pm.Fail("assemble", err))
	}
	msg := fmt.Sprintf("Wrote %d records (%s) to %s", count, units.HumanSize(float64(info.Size())), cfg.Output)
	if err := pm.CompleteWithMessage("assemble", msg); err != nil {
		return err
	}
	if err := pm.Complete("generate"); err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, renderRunSummary(result))
	return err
}

func explore(
	c *cli.Context,
	cfg *config.Config,
	logger logging.Logger,
	progress func(done, total int),
) ([]r3.Vector, error) {
	chain, reference, err := cfg.MakeChain()
	if err != nil {
		return nil, err
	}
	explorer := &dataset.ReachabilityExplorer{
		Chain:       chain,
		IK:          kinematics.NewJacobianIK(logger.Sublogger("ik"), cfg.Solver),
		Constraints: cfg.Constraints,
		Grid:        cfg.Reachability,
		Reference:   reference,
		Logger:      logger.Sublogger("explorer"),
		Progress:    progress,
	}
	return explorer.Explore(c.Context)
}

// TableAction samples the neighborhood of the reference pose alone, without sharding, into a CSV table.
func TableAction(c *cli.Context) error {
	cfg, logger, err := fromContext(c)
	if err != nil {
		return err
	}
	if err := applyRunFlags(c, cfg); err != nil {
		return err
	}
	chain, _, err := cfg.MakeChain()
	if err != nil {
		return err
	}
	start, err := chain.EndEffectorPose()
	if err != nil {
		return err
	}

	opts := cfg.SamplerOptions()
	tracked := opts.TrackedLinks
	if len(tracked) == 0 {
		tracked = chain.MovableJointNames()
	}
	sink, err := dataset.NewCSVSink(cfg.Output, len(tracked), chain.DoF())
	if err != nil {
		return err
	}

	steps := []*Step{{ID: "table", Message: "Sampling reference neighborhood", IndentLevel: 1}}
	pm := NewProgressManager(c.App.Writer, steps, WithProgressOutput(showProgress(c)))
	defer pm.Stop()
	if err := pm.Start("table"); err != nil {
		return multierr.Combine(err, sink.Close())
	}

	sampler := &dataset.NeighborhoodSampler{
		Chain:            chain,
		IK:               kinematics.NewJacobianIK(logger.Sublogger("ik"), cfg.Solver),
		Constraints:      opts.Constraints,
		Grid:             opts.Grid,
		TrackedLinks:     tracked,
		ReseedEachSample: opts.ReseedEachSample,
		Logger:           logger.Sublogger("table"),
	}
	st, err := sampler.Sample(c.Context, []r3.Vector{start.Point()}, sink)
	if err = multierr.Combine(err, sink.Close()); err != nil {
		return multierr.Combine(err, pm.Fail("table", err))
	}
	if err := pm.CompleteWithMessage("table", fmt.Sprintf("Wrote %d rows to %s", st.Records, cfg.Output)); err != nil {
		return err
	}
	logger.Infow("table written", "path", cfg.Output, "rows", st.Records, "failures", st.Failures)
	return nil
}

// ReachableAction writes the reachable targets of the configured chain as a JSON array of points.
func ReachableAction(c *cli.Context) error {
	cfg, logger, err := fromContext(c)
	if err != nil {
		return err
	}
	steps := []*Step{{ID: "explore", Message: "Exploring reachable targets", IndentLevel: 1}}
	pm := NewProgressManager(c.App.Writer, steps, WithProgressOutput(showProgress(c)))
	defer pm.Stop()
	if err := pm.Start("explore"); err != nil {
		return err
	}
	targets, err := explore(c, cfg, logger, pm.progressReporter("slices"))
	if err != nil {
		return multierr.Combine(err, pm.Fail("explore", err))
	}

	data, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return err
	}
	path := c.String(flagOutput)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		err = dataset.NewIOError(err, "writing %s", path)
		return multierr.Combine(err, pm.Fail("explore", err))
	}
	return pm.CompleteWithMessage("explore", fmt.Sprintf("Wrote %d reachable targets to %s", len(targets), path))
}

// SchemaAction prints the JSON schema of configuration files.
func SchemaAction(c *cli.Context) error {
	data, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
