package referenceframe

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	spatial "go.viam.com/ikdata/spatialmath"
)

// World is the reserved parent name of the first joint of a chain.
const World = "world"

// AxisConfig represents the configuration format representing an axis or translation.
type AxisConfig struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewAxisConfig returns the config form of v.
func NewAxisConfig(v r3.Vector) AxisConfig {
	return AxisConfig{X: v.X, Y: v.Y, Z: v.Z}
}

// ParseConfig converts an AxisConfig into an r3.Vector.
func (a AxisConfig) ParseConfig() r3.Vector {
	return r3.Vector{X: a.X, Y: a.Y, Z: a.Z}
}

// PoseConfig is the JSON form of a pose: a translation and euler angles in radians.
type PoseConfig struct {
	Translation AxisConfig          `json:"translation"`
	Orientation spatial.EulerAngles `json:"orientation"`
}

// ParseConfig converts a PoseConfig into a Pose.
func (pc *PoseConfig) ParseConfig() spatial.Pose {
	if pc == nil {
		return spatial.NewZeroPose()
	}
	return spatial.NewPose(pc.Translation.ParseConfig(), pc.Orientation.Quaternion())
}

// JointConfig is a struct that stores the configuration of a single joint.
type JointConfig struct {
	ID          string     `json:"id"`
	Type        JointType  `json:"type"`
	Parent      string     `json:"parent,omitempty"`
	Axis        AxisConfig `json:"axis"`
	Translation AxisConfig `json:"translation"`
	Limit       *Limit     `json:"limit,omitempty"`
}

// ToFrame converts a JointConfig into a joint frame.
func (cfg JointConfig) ToFrame() (Frame, error) {
	limit := Unlimited()
	if cfg.Limit != nil {
		if cfg.Limit.Min > cfg.Limit.Max {
			return nil, errors.Wrapf(ErrConfig, "joint %q has min limit %f above max limit %f", cfg.ID, cfg.Limit.Min, cfg.Limit.Max)
		}
		limit = *cfg.Limit
	}
	switch cfg.Type {
	case FixedJoint:
		return NewStaticFrame(cfg.ID, cfg.Translation.ParseConfig())
	case RevoluteJoint:
		return NewRotationalFrame(cfg.ID, cfg.Translation.ParseConfig(), cfg.Axis.ParseConfig(), limit)
	case PrismaticJoint:
		return NewTranslationalFrame(cfg.ID, cfg.Translation.ParseConfig(), cfg.Axis.ParseConfig(), limit)
	default:
		return nil, NewUnsupportedJointTypeError(string(cfg.Type))
	}
}

// JointConfigFromFrame returns the configuration that builds f with the given parent.
func JointConfigFromFrame(f Frame, parent string) JointConfig {
	cfg := JointConfig{
		ID:          f.Name(),
		Type:        f.Type(),
		Parent:      parent,
		Axis:        NewAxisConfig(f.Axis()),
		Translation: NewAxisConfig(f.Offset()),
	}
	if dof := f.DoF(); len(dof) == 1 && !dof[0].IsUnlimited() {
		limit := dof[0]
		cfg.Limit = &limit
	}
	return cfg
}

// ModelConfigJSON represents all supported fields in a chain JSON file.
type ModelConfigJSON struct {
	Name            string        `json:"name"`
	RootPose        *PoseConfig   `json:"root_pose,omitempty"`
	Joints          []JointConfig `json:"joints"`
	ReferenceAngles []float64     `json:"reference_angles,omitempty"`
}

// Model is a parsed chain description: a root pose plus joint frames ordered from the root to the end effector.
type Model struct {
	Name            string
	RootPose        spatial.Pose
	Frames          []Frame
	ReferenceAngles []float64
}

// DoF returns the number of movable joints of the model.
func (m *Model) DoF() int {
	dof := 0
	for _, f := range m.Frames {
		dof += len(f.DoF())
	}
	return dof
}

// UnmarshalModelJSON will parse the given JSON data into a chain model. modelName sets the name of the model,
// will use the name from the JSON if string is empty.
func UnmarshalModelJSON(jsonData []byte, modelName string) (*Model, error) {
	// empty data probably means that the file has no model information
	if len(jsonData) == 0 {
		return nil, ErrNoModelInformation
	}

	m := &ModelConfigJSON{}
	if err := json.Unmarshal(jsonData, m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}

	return m.ParseConfig(modelName)
}

// ParseConfig converts the ModelConfigJSON struct into a full Model with the name modelName.
func (cfg *ModelConfigJSON) ParseConfig(modelName string) (*Model, error) {
	if modelName == "" {
		modelName = cfg.Name
	}
	if len(cfg.Joints) == 0 {
		return nil, errors.Wrapf(ErrConfig, "model %q has no joints", modelName)
	}

	frames := map[string]Frame{}
	// Make a map of parents for each element for post-process, to allow items to be processed out of order
	parentMap := map[string]string{}
	for _, joint := range cfg.Joints {
		if joint.ID == World {
			return nil, errors.Wrapf(ErrConfig, "cannot use reserved word %q as a joint name", World)
		}
		if _, ok := frames[joint.ID]; ok {
			return nil, NewDuplicateJointError(joint.ID)
		}
		f, err := joint.ToFrame()
		if err != nil {
			return nil, err
		}
		frames[joint.ID] = f
		parent := joint.Parent
		if parent == "" {
			parent = World
		}
		parentMap[joint.ID] = parent
	}

	ordered, err := sortFrames(frames, parentMap)
	if err != nil {
		return nil, err
	}

	model := &Model{
		Name:            modelName,
		RootPose:        cfg.RootPose.ParseConfig(),
		Frames:          ordered,
		ReferenceAngles: cfg.ReferenceAngles,
	}
	if model.ReferenceAngles != nil && len(model.ReferenceAngles) != model.DoF() {
		return nil, NewIncorrectDoFError(len(model.ReferenceAngles), model.DoF())
	}
	return model, nil
}

// ParseModelJSONFile will read a given file and then parse the contained JSON data.
func ParseModelJSONFile(filename, modelName string) (*Model, error) {
	//nolint:gosec
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}
	return UnmarshalModelJSON(jsonData, modelName)
}

// Create an ordered list of frames given a mapping of child to parent frames.
func sortFrames(frames map[string]Frame, parents map[string]string) ([]Frame, error) {
	// find the end effector first - determine which frames have no children
	ees := map[string]string{}
	for child, parent := range parents {
		ees[child] = parent
	}
	children := map[string]int{}
	for _, parent := range parents {
		delete(ees, parent)
		children[parent]++
	}
	// ensure there is only one end effector and no branching
	if len(ees) != 1 {
		return nil, fmt.Errorf("%w, have %v", ErrNeedOneEndEffector, ees)
	}
	for parent, n := range children {
		if n > 1 {
			return nil, errors.Wrapf(ErrConfig, "frame %q has %d children, chains cannot branch", parent, n)
		}
	}

	var curr string
	for ee := range ees {
		curr = ee
	}

	// start the search from the end effector
	seen := map[string]bool{curr: true}
	ordered := []Frame{}
	for {
		ordered = append(ordered, frames[curr])

		// find the parent of the current frame
		parent := parents[curr]
		if parent == World {
			break
		}
		if _, ok := frames[parent]; !ok {
			return nil, NewFrameMissingError(parent)
		}

		// make sure it wasn't seen, mark it seen, then add it to the list
		if seen[parent] {
			return nil, ErrCircularReference
		}
		seen[parent] = true

		curr = parent
	}
	if len(ordered) != len(frames) {
		return nil, errors.Wrap(ErrConfig, "joints do not form a single chain rooted at world")
	}

	// After the above loop, the frames are in reverse order, so we reverse the list.
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}

	return ordered, nil
}
