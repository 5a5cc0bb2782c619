// Package robots holds the built-in chain models.
package robots

import (
	_ "embed"
	"os"
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/referenceframe"
)

// Names of the built-in models.
const (
	Planar4   = "planar4"
	Humanoid7 = "humanoid7"
)

//go:embed planar4.json
var planar4JSON []byte

//go:embed humanoid7.json
var humanoid7JSON []byte

var presets = map[string][]byte{
	Planar4:   planar4JSON,
	Humanoid7: humanoid7JSON,
}

// Names returns the names of the built-in models in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MakeModel returns a model given either a built-in model name or the path of a model JSON file.
func MakeModel(nameOrPath string) (*referenceframe.Model, error) {
	if data, ok := presets[nameOrPath]; ok {
		return referenceframe.UnmarshalModelJSON(data, nameOrPath)
	}
	if _, err := os.Stat(nameOrPath); err != nil {
		return nil, errors.Errorf("%q is neither a built-in model %v nor a readable model file", nameOrPath, Names())
	}
	return referenceframe.ParseModelJSONFile(nameOrPath, "")
}

// MakeChain returns a chain posed at the model's reference angles along with a copy of those angles.
// Models without reference angles are posed at zero.
func MakeChain(nameOrPath string) (*kinematics.Chain, []float64, error) {
	model, err := MakeModel(nameOrPath)
	if err != nil {
		return nil, nil, err
	}
	chain, err := kinematics.NewChainFromModel(model)
	if err != nil {
		return nil, nil, err
	}
	chain.RecomputeTransforms()
	return chain, chain.JointPositions(), nil
}
