// Package config defines the configuration of a dataset generation run.
package config

import (
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/ikdata/dataset"
	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
	"go.viam.com/ikdata/robots"
)

// Config describes a dataset generation run.
type Config struct {
	// Preset names the built-in config the file's values are laid over. Defaults to the planar four joint run.
	Preset string `json:"preset,omitempty"`
	// Model is a built-in model name or the path of a model JSON file.
	Model string `json:"model"`
	// ReferenceAngles overrides the model's reference configuration when set.
	ReferenceAngles []float64 `json:"reference_angles,omitempty"`

	Reachability dataset.Grid `json:"reachability"`
	Neighborhood dataset.Grid `json:"neighborhood"`

	Shards int `json:"shards"`
	// Seed fixes the shard shuffle. Unset, every run draws its own.
	Seed *int64 `json:"seed,omitempty"`

	Solver      kinematics.JacobianOptions `json:"solver"`
	Constraints kinematics.Constraints     `json:"constraints"`

	TrackedLinks          []string `json:"tracked_links,omitempty"`
	IncludeBulkTransforms bool     `json:"include_bulk_transforms"`
	ReseedEachSample      bool     `json:"reseed_each_sample"`

	Output  string `json:"output"`
	WorkDir string `json:"work_dir,omitempty"`

	Log   LogConfig   `json:"log"`
	Mongo MongoConfig `json:"mongo"`

	// ConfigFilePath is the file the config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// LogConfig controls the run's logger.
type LogConfig struct {
	Level logging.Level       `json:"level"`
	File  *logging.FileConfig `json:"file,omitempty"`
}

// MongoConfig says where the publish command inserts samples.
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
	BatchSize  int    `json:"batch_size,omitempty"`
}

// Default returns the configuration of the planar four joint arm run: a wide reachability sweep, a dense
// neighborhood around every reachable target and eight shards.
func Default() *Config {
	solver := kinematics.DefaultJacobianOptions()
	solver.MaxIterations = 12
	constraints := kinematics.DefaultConstraints()
	constraints.RotationX = false
	constraints.RotationZ = false
	return &Config{
		Model:                 robots.Planar4,
		Reachability:          dataset.Grid{Min: -20, Max: 20, Step: 0.05},
		Neighborhood:          dataset.Grid{Min: -10, Max: 10, Step: 0.1},
		Shards:                dataset.DefaultShards,
		Solver:                solver,
		Constraints:           constraints,
		IncludeBulkTransforms: true,
		Output:                "DATA_12.json",
		Log:                   LogConfig{Level: logging.INFO},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "ikdata",
			Collection: "samples",
			BatchSize:  dataset.DefaultPublishBatchSize,
		},
	}
}

// Humanoid returns the configuration of the seven joint arm table: a single neighborhood around the reference
// pose, every sample starting again from the reference, written as a CSV table.
func Humanoid() *Config {
	cfg := Default()
	cfg.Model = robots.Humanoid7
	cfg.Neighborhood = dataset.Grid{Min: -100, Max: 100, Step: 0.1}
	cfg.Shards = 1
	cfg.Solver = kinematics.DefaultJacobianOptions()
	cfg.Constraints = kinematics.DefaultConstraints()
	cfg.Constraints.RotationX = false
	cfg.IncludeBulkTransforms = false
	cfg.ReseedEachSample = true
	cfg.Output = "data.csv"
	return cfg
}

// Presets are the named starting points a config can be built from.
var Presets = map[string]func() *Config{
	robots.Planar4:   Default,
	robots.Humanoid7: Humanoid,
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if c.Output == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "output")
	}
	if err := c.Reachability.Validate(); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "reachability"))
	}
	if err := c.Neighborhood.Validate(); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "neighborhood"))
	}
	if c.Shards < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("shards must be at least 1, got %d", c.Shards))
	}
	if c.Solver.MaxIterations < 0 {
		return utils.NewConfigValidationError(path, errors.New("solver.max_iterations cannot be negative"))
	}
	if c.Mongo.BatchSize < 0 {
		return utils.NewConfigValidationError(path, errors.New("mongo.batch_size cannot be negative"))
	}
	if c.Log.File != nil && c.Log.File.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "log.file.path")
	}
	for i, link := range c.TrackedLinks {
		if link == "" {
			return utils.NewConfigValidationFieldRequiredError(path, fmt.Sprintf("tracked_links.%d", i))
		}
	}
	return nil
}

// MakeChain builds the configured chain posed at the configured reference, returning the reference.
func (c *Config) MakeChain() (*kinematics.Chain, []float64, error) {
	chain, reference, err := robots.MakeChain(c.Model)
	if err != nil {
		return nil, nil, err
	}
	if len(c.ReferenceAngles) > 0 {
		if err := chain.SetJointPositions(c.ReferenceAngles); err != nil {
			return nil, nil, errors.Wrap(err, "reference_angles")
		}
		chain.RecomputeTransforms()
		reference = chain.JointPositions()
	}
	for _, link := range c.TrackedLinks {
		if _, err := chain.WorldTransform(link); err != nil {
			return nil, nil, errors.Wrap(err, "tracked_links")
		}
	}
	return chain, reference, nil
}

// ChainFactory returns a factory making a fresh chain and solver from the config on every call.
func (c *Config) ChainFactory(logger logging.Logger) dataset.ChainFactory {
	return func() (*kinematics.Chain, kinematics.InverseKinematics, error) {
		chain, _, err := c.MakeChain()
		if err != nil {
			return nil, nil, err
		}
		return chain, kinematics.NewJacobianIK(logger, c.Solver), nil
	}
}

// SamplerOptions returns the sampler settings of the config.
func (c *Config) SamplerOptions() dataset.SamplerOptions {
	return dataset.SamplerOptions{
		Constraints:           c.Constraints,
		Grid:                  c.Neighborhood,
		TrackedLinks:          c.TrackedLinks,
		IncludeBulkTransforms: c.IncludeBulkTransforms,
		ReseedEachSample:      c.ReseedEachSample,
	}
}

// Schema returns the JSON schema of a config file.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
