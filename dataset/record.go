package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ikdata/kinematics"
	spatial "go.viam.com/ikdata/spatialmath"
)

// LinkState is the world pose of one link.
type LinkState struct {
	Translation r3.Vector
	Rotation    quat.Number
}

func linkStateFromPose(p spatial.Pose) LinkState {
	return LinkState{Translation: p.Point(), Rotation: p.Orientation()}
}

func (ls LinkState) translationSlice() []float64 {
	return []float64{ls.Translation.X, ls.Translation.Y, ls.Translation.Z}
}

// Record is one training sample: the state of every tracked link before a target perturbation and after the
// chain was re-solved for it, plus the joint vectors at both moments.
//
// Bulk, when set, holds the first len(Before) entries of the full transform list computed after the re-solve,
// indexed from the root joint.
type Record struct {
	Before       []LinkState
	After        []LinkState
	Bulk         []LinkState
	BeforeJoints []float64
	AfterJoints  []float64
}

// snapshot returns the world state of the named links. Transforms must be fresh.
func snapshot(chain *kinematics.Chain, links []string) ([]LinkState, error) {
	states := make([]LinkState, 0, len(links))
	for _, name := range links {
		pose, err := chain.WorldTransform(name)
		if err != nil {
			return nil, err
		}
		states = append(states, linkStateFromPose(pose))
	}
	return states, nil
}

// MarshalJSON emits the flat layout used by the dataset files: l<i>, l<i>_rot, l<i>_final, l<i>_rot_final,
// optionally l<i>_trans and l<i>_rot_trans, then a_joint_pos and b_joint_pos. Rotations are quaternion
// coordinates ordered x, y, z, w.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, 4*len(r.Before)+2*len(r.Bulk)+2)
	for i, ls := range r.Before {
		m[fmt.Sprintf("l%d", i)] = ls.translationSlice()
		m[fmt.Sprintf("l%d_rot", i)] = spatial.QuaternionCoords(ls.Rotation)
	}
	for i, ls := range r.After {
		m[fmt.Sprintf("l%d_final", i)] = ls.translationSlice()
		m[fmt.Sprintf("l%d_rot_final", i)] = spatial.QuaternionCoords(ls.Rotation)
	}
	for i, ls := range r.Bulk {
		m[fmt.Sprintf("l%d_trans", i)] = ls.translationSlice()
		m[fmt.Sprintf("l%d_rot_trans", i)] = spatial.QuaternionCoords(ls.Rotation)
	}
	m["a_joint_pos"] = r.BeforeJoints
	m["b_joint_pos"] = r.AfterJoints
	return json.Marshal(m)
}

// CSVHeader returns the column names of CSVRow for a record tracking the given number of links over the given
// number of joints.
func CSVHeader(links, joints int) []string {
	header := []string{}
	group := func(prefix string, suffixes ...string) {
		for i := 0; i < links; i++ {
			for _, s := range suffixes {
				header = append(header, fmt.Sprintf("l%d%s_%s", i, prefix, s))
			}
		}
	}
	group("", "x", "y", "z")
	group("_rot", "x", "y", "z", "w")
	group("_final", "x", "y", "z")
	group("_rot_final", "x", "y", "z", "w")
	for j := 0; j < joints; j++ {
		header = append(header, fmt.Sprintf("a_joint_pos_%d", j))
	}
	for j := 0; j < joints; j++ {
		header = append(header, fmt.Sprintf("b_joint_pos_%d", j))
	}
	return header
}

// CSVRow returns the record's values in the column order of CSVHeader. Bulk transforms are not part of the
// table.
func (r Record) CSVRow() []string {
	values := []float64{}
	for _, ls := range r.Before {
		values = append(values, ls.translationSlice()...)
	}
	for _, ls := range r.Before {
		values = append(values, spatial.QuaternionCoords(ls.Rotation)...)
	}
	for _, ls := range r.After {
		values = append(values, ls.translationSlice()...)
	}
	for _, ls := range r.After {
		values = append(values, spatial.QuaternionCoords(ls.Rotation)...)
	}
	values = append(values, r.BeforeJoints...)
	values = append(values, r.AfterJoints...)

	row := make([]string, 0, len(values))
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return row
}
