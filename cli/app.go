// Package cli contains the ikdata command line tool.
package cli

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"
	"golang.org/x/term"

	"go.viam.com/ikdata/config"
	"go.viam.com/ikdata/logging"
	"go.viam.com/ikdata/robots"
)

const (
	// Global flags.
	flagConfig  = "config"
	flagPreset  = "preset"
	flagModel   = "model"
	flagDebug   = "debug"
	flagLogFile = "log-file"
	flagQuiet   = "quiet"

	// Run flags.
	flagOutput  = "output"
	flagShards  = "shards"
	flagSeed    = "seed"
	flagWorkDir = "work-dir"
	flagRunID   = "run-id"

	// Publish flags.
	flagMongoURI   = "uri"
	flagDatabase   = "database"
	flagCollection = "collection"

	metadataConfig = "config"
	metadataLogger = "logger"
)

var runFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "write the dataset to `FILE` instead of the configured output",
	},
	&cli.IntFlag{
		Name:  flagShards,
		Usage: "number of parallel shards",
	},
	&cli.Int64Flag{
		Name:  flagSeed,
		Usage: "seed of the target shuffle, drawn per run when unset",
	},
	&cli.StringFlag{
		Name:  flagWorkDir,
		Usage: "directory holding the partition files",
	},
	&cli.StringFlag{
		Name:  flagRunID,
		Usage: "name partition files after `ID` instead of a random one",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "ikdata",
		Usage:           "generate inverse kinematics training data for serial chains",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagPreset,
				Usage: "start from the built-in configuration `NAME` when no file is given",
				Value: robots.Planar4,
			},
			&cli.StringFlag{
				Name:  flagModel,
				Usage: "use the built-in model or model JSON file `MODEL` instead of the configured one",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to the rotating log `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagQuiet,
				Aliases: []string{"q"},
				Usage:   "do not show progress",
			},
		},
		Before: before,
		After:  after,
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "explore the reachable workspace, sample every target's neighborhood and assemble the dataset",
				UsageText: "ikdata [global options] generate [options]",
				Flags:     runFlags,
				Action:    GenerateAction,
			},
			{
				Name:   "table",
				Usage:  "sample the neighborhood of the reference pose into a CSV table",
				Flags:  runFlags[:1],
				Action: TableAction,
			},
			{
				Name:  "reachable",
				Usage: "write the reachable targets as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagOutput,
						Aliases: []string{"o"},
						Usage:   "write the targets to `FILE`",
						Value:   "reachable.json",
					},
				},
				Action: ReachableAction,
			},
			{
				Name:   "print",
				Usage:  "print the joints of the configured chain",
				Action: PrintAction,
			},
			{
				Name:      "publish",
				Usage:     "insert an assembled dataset into MongoDB",
				ArgsUsage: "[dataset file]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagMongoURI,
						Usage: "MongoDB connection `URI`",
					},
					&cli.StringFlag{
						Name:  flagDatabase,
						Usage: "database name",
					},
					&cli.StringFlag{
						Name:  flagCollection,
						Usage: "collection name",
					},
					&cli.StringFlag{
						Name:  flagRunID,
						Usage: "tag every sample with run `ID`",
					},
				},
				Action: PublishAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of configuration files",
				Action: SchemaAction,
			},
		},
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// before loads the configuration and builds the logger every command uses.
func before(c *cli.Context) error {
	var cfg *config.Config
	var err error
	if path := c.String(flagConfig); path != "" {
		cfg, err = config.Read(path)
	} else {
		cfg, err = config.FromPreset(c.String(flagPreset))
	}
	if err != nil {
		return err
	}
	if model := c.String(flagModel); model != "" {
		cfg.Model = model
	}

	level := cfg.Log.Level
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	fileCfg := cfg.Log.File
	if path := c.String(flagLogFile); path != "" {
		fileCfg = &logging.FileConfig{Path: path}
	}
	var logger logging.Logger
	if fileCfg != nil {
		logger = logging.NewFileLogger("ikdata", level, *fileCfg)
	} else {
		logger = logging.NewLogger("ikdata")
		logger.SetLevel(level)
	}
	logging.ReplaceGlobal(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[metadataConfig] = cfg
	c.App.Metadata[metadataLogger] = logger
	return nil
}

func after(c *cli.Context) error {
	if logger, ok := c.App.Metadata[metadataLogger].(logging.Logger); ok {
		// syncing a console fails on some platforms
		utils.UncheckedError(logger.Sync())
	}
	return nil
}

// fromContext returns the configuration and logger set up before the command ran.
func fromContext(c *cli.Context) (*config.Config, logging.Logger, error) {
	cfg, ok := c.App.Metadata[metadataConfig].(*config.Config)
	if !ok {
		return nil, nil, errors.New("configuration was not loaded")
	}
	logger, ok := c.App.Metadata[metadataLogger].(logging.Logger)
	if !ok {
		return nil, nil, errors.New("logger was not set up")
	}
	return cfg, logger, nil
}

// applyRunFlags lays the run flags that were set over cfg.
func applyRunFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet(flagOutput) {
		cfg.Output = c.String(flagOutput)
	}
	if c.IsSet(flagShards) {
		cfg.Shards = c.Int(flagShards)
	}
	if c.IsSet(flagSeed) {
		cfg.Seed = lo.ToPtr(c.Int64(flagSeed))
	}
	if c.IsSet(flagWorkDir) {
		cfg.WorkDir = c.String(flagWorkDir)
	}
	path := cfg.ConfigFilePath
	if path == "" {
		path = "flags"
	}
	return cfg.Validate(path)
}

// showProgress reports whether commands draw their steps: only when not quiet and writing to a terminal.
func showProgress(c *cli.Context) bool {
	if c.Bool(flagQuiet) {
		return false
	}
	f, ok := c.App.Writer.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
