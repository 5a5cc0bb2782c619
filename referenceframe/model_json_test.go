package referenceframe

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/ikdata/utils"
)

func TestParseJSONFile(t *testing.T) {
	model, err := ParseModelJSONFile(utils.ResolveFile("referenceframe/testjson/threelink.json"), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.Name, test.ShouldEqual, "threelink")
	test.That(t, model.DoF(), test.ShouldEqual, 2)
	test.That(t, model.ReferenceAngles, test.ShouldResemble, []float64{0.1, 0.5})
	test.That(t, model.RootPose.Point(), test.ShouldResemble, r3.Vector{Z: 0.5})

	names := []string{}
	for _, f := range model.Frames {
		names = append(names, f.Name())
	}
	test.That(t, names, test.ShouldResemble, []string{"base", "lift", "elbow", "tip"})
	test.That(t, model.Frames[1].DoF(), test.ShouldResemble, []Limit{{Min: 0, Max: 0.4}})

	renamed, err := ParseModelJSONFile(utils.ResolveFile("referenceframe/testjson/threelink.json"), "other")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, renamed.Name, test.ShouldEqual, "other")
}

func TestParseBadJSONFiles(t *testing.T) {
	badFiles := []string{
		"referenceframe/testjson/branching.json",
		"referenceframe/testjson/missingparent.json",
		"referenceframe/testjson/badaxis.json",
		"referenceframe/testjson/duplicate.json",
		"referenceframe/testjson/worldjoint.json",
	}

	for _, f := range badFiles {
		t.Run(f, func(t *testing.T) {
			_, err := ParseModelJSONFile(utils.ResolveFile(f), "")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, ErrConfig), test.ShouldBeTrue)
		})
	}

	_, err := ParseModelJSONFile(utils.ResolveFile("referenceframe/testjson/missingparent.json"), "")
	test.That(t, err.Error(), test.ShouldContainSubstring, "pedestal")

	_, err = ParseModelJSONFile(utils.ResolveFile("referenceframe/testjson/nosuchfile.json"), "")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUnmarshalModelJSON(t *testing.T) {
	_, err := UnmarshalModelJSON(nil, "")
	test.That(t, err, test.ShouldEqual, ErrNoModelInformation)

	_, err = UnmarshalModelJSON([]byte(`{"name": "empty", "joints": []}`), "")
	test.That(t, errors.Is(err, ErrConfig), test.ShouldBeTrue)

	_, err = UnmarshalModelJSON([]byte(`{"name": "spring", "joints": [{"id": "a", "type": "helical"}]}`), "")
	test.That(t, errors.Is(err, ErrConfig), test.ShouldBeTrue)

	_, err = UnmarshalModelJSON([]byte(`{"joints": [{"id": "a", "type": "revolute", "axis": {"z": 1}}], "reference_angles": [1, 2]}`), "")
	test.That(t, errors.Is(err, ErrDimensionMismatch), test.ShouldBeTrue)

	_, err = UnmarshalModelJSON([]byte(`{"joints": [{"id": "a", "type": "revolute", "axis": {"z": 1}, "limit": {"min": 1, "max": -1}}]}`), "")
	test.That(t, errors.Is(err, ErrConfig), test.ShouldBeTrue)

	_, err = UnmarshalModelJSON([]byte(`{"joints": [`), "")
	test.That(t, err, test.ShouldNotBeNil)

	model, err := UnmarshalModelJSON([]byte(`{"name": "one", "joints": [{"id": "a", "type": "revolute", "axis": {"z": 1}}]}`), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.DoF(), test.ShouldEqual, 1)
	test.That(t, model.ReferenceAngles, test.ShouldBeNil)
}
