package cli

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"go.viam.com/ikdata/dataset"
	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/referenceframe"
	spatial "go.viam.com/ikdata/spatialmath"
	"go.viam.com/ikdata/utils"
)

// PrintAction prints every joint of the configured chain at its reference configuration.
func PrintAction(c *cli.Context) error {
	cfg, _, err := fromContext(c)
	if err != nil {
		return err
	}
	chain, _, err := cfg.MakeChain()
	if err != nil {
		return err
	}
	out, err := renderChain(chain)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, out)
	return err
}

// renderChain returns a table of the chain's joints in order. Transforms must be fresh.
func renderChain(chain *kinematics.Chain) (string, error) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%d DoF), end effector %s", chain.Name(), chain.DoF(), chain.EndEffector()))
	t.AppendHeader(table.Row{"#", "Name", "Type", "Axis", "Translation", "Position", "World Position", "World Orientation"})

	root := chain.RootPose()
	rootOri := spatial.QuatToEuler(root.Orientation())
	t.AppendRow(table.Row{"0", "root", "", "", "", "", formatVector(root.Point()), formatEuler(rootOri)})

	positions := chain.JointPositions()
	idx := 0
	for i, joint := range chain.Joints() {
		world, err := chain.WorldTransform(joint.ID)
		if err != nil {
			return "", err
		}
		axis, position := "", ""
		if joint.Type != referenceframe.FixedJoint {
			axis = formatVector(joint.Axis.ParseConfig())
			position = fmt.Sprintf("%.3f", positions[idx])
			idx++
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i+1),
			joint.ID,
			string(joint.Type),
			axis,
			formatVector(joint.Translation.ParseConfig()),
			position,
			formatVector(world.Point()),
			formatEuler(spatial.QuatToEuler(world.Orientation())),
		})
	}
	return t.Render(), nil
}

// renderRunSummary returns a table of what a sharded run produced, per shard and in total.
func renderRunSummary(result *dataset.RunResult) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("run %s (seed %d)", result.RunID, result.Seed))
	t.AppendHeader(table.Row{"Shard", "Targets", "Skipped", "Attempts", "Failures", "Records"})
	for i, st := range result.ShardStats {
		t.AppendRow(table.Row{i + 1, st.Targets, st.SkippedTargets, st.Attempts, st.Failures, st.Records})
	}
	total := result.Stats
	t.AppendFooter(table.Row{"Total", total.Targets, total.SkippedTargets, total.Attempts, total.Failures, total.Records})

	d := total.Displacement
	summary := table.NewWriter()
	summary.SetTitle("end effector displacement")
	summary.AppendHeader(table.Row{"Mean", "Median", "P95", "Max"})
	summary.AppendRow(table.Row{
		fmt.Sprintf("%.4f", d.Mean()),
		fmt.Sprintf("%.4f", d.Median()),
		fmt.Sprintf("%.4f", d.Percentile(95)),
		fmt.Sprintf("%.4f", d.Max()),
	})
	return t.Render() + "\n" + summary.Render()
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", v.X, v.Y, v.Z)
}

func formatEuler(rpy []float64) string {
	return fmt.Sprintf("Roll:%.1f, Pitch:%.1f, Yaw:%.1f",
		utils.RadToDeg(rpy[0]), utils.RadToDeg(rpy[1]), utils.RadToDeg(rpy[2]))
}
