package kinematics

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/ikdata/logging"
	"go.viam.com/ikdata/referenceframe"
	spatial "go.viam.com/ikdata/spatialmath"
	"go.viam.com/ikdata/utils"
)

// singular values below this fraction of the largest one are treated as zero.
const singularCutoff = 1e-9

// JacobianOptions tune a JacobianIK solver. Zero values are replaced by the defaults.
type JacobianOptions struct {
	MaxIterations           int     `json:"max_iterations"`
	AllowableTargetDistance float64 `json:"allowable_target_distance"`
	AllowableTargetAngle    float64 `json:"allowable_target_angle"`
	JacobianMultiplier      float64 `json:"jacobian_multiplier"`
	Damping                 float64 `json:"damping"`
}

// DefaultJacobianOptions returns the default solver options.
func DefaultJacobianOptions() JacobianOptions {
	return JacobianOptions{
		MaxIterations:           10,
		AllowableTargetDistance: 0.001,
		AllowableTargetAngle:    0.005,
		JacobianMultiplier:      0.5,
	}
}

func (opts JacobianOptions) withDefaults() JacobianOptions {
	def := DefaultJacobianOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.AllowableTargetDistance <= 0 {
		opts.AllowableTargetDistance = def.AllowableTargetDistance
	}
	if opts.AllowableTargetAngle <= 0 {
		opts.AllowableTargetAngle = def.AllowableTargetAngle
	}
	if opts.JacobianMultiplier <= 0 {
		opts.JacobianMultiplier = def.JacobianMultiplier
	}
	if opts.Damping < 0 {
		opts.Damping = 0
	}
	return opts
}

// JacobianIK iteratively steps a chain towards a target along the pseudo-inverse of its geometric Jacobian.
type JacobianIK struct {
	logger logging.Logger
	opts   JacobianOptions
}

// NewJacobianIK creates a new Jacobian solver.
func NewJacobianIK(logger logging.Logger, opts JacobianOptions) *JacobianIK {
	return &JacobianIK{logger: logger, opts: opts.withDefaults()}
}

// Options returns the options in use, defaults included.
func (ik *JacobianIK) Options() JacobianOptions {
	return ik.opts
}

// Solve implements InverseKinematics. Convergence is checked before every step, so a target the end effector
// already meets is solved without moving any joint.
func (ik *JacobianIK) Solve(ctx context.Context, chain *Chain, target spatial.Pose, constraints Constraints) error {
	mask := constraints.mask()
	limits := chain.Limits()
	q := chain.JointPositions()

	// the chain is left at whatever was tried last
	finish := func(err error) error {
		if setErr := chain.SetJointPositions(q); setErr != nil {
			return setErr
		}
		return err
	}

	var residual []float64
	for iteration := 1; iteration <= ik.opts.MaxIterations+1; iteration++ {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		transforms, err := chain.Transforms(q)
		if err != nil {
			return finish(err)
		}
		residual = spatial.PoseDeltaR3(transforms[len(transforms)-1], target)
		if ik.converged(residual, mask) {
			return finish(nil)
		}
		if iteration > ik.opts.MaxIterations {
			break
		}

		dq, err := ik.step(chain, transforms, residual, mask)
		if err != nil {
			ik.logger.Debugw("jacobian is singular", "iteration", iteration, "positions", q)
			return finish(errors.Wrapf(ErrIKFailure, "singular configuration at iteration %d: %v", iteration, err))
		}
		floats.AddScaled(q, ik.opts.JacobianMultiplier, dq)
		for i, limit := range limits {
			q[i] = utils.Clamp(q[i], limit.Min, limit.Max)
		}
	}
	ik.logger.Debugw("no convergence", "iterations", ik.opts.MaxIterations, "residual", residual)
	return finish(errors.Wrapf(ErrIKFailure, "no convergence after %d iterations, remaining distance %.5f",
		ik.opts.MaxIterations, math.Sqrt(SquaredNorm(residual[:3]))))
}

func (ik *JacobianIK) converged(residual []float64, mask []bool) bool {
	var dist, angle float64
	for i, v := range residual {
		if !mask[i] {
			continue
		}
		if i < 3 {
			dist += v * v
		} else {
			angle += v * v
		}
	}
	return math.Sqrt(dist) < ik.opts.AllowableTargetDistance && math.Sqrt(angle) < ik.opts.AllowableTargetAngle
}

// step returns the joint update that removes the enforced part of residual to first order.
func (ik *JacobianIK) step(chain *Chain, transforms []spatial.Pose, residual []float64, mask []bool) ([]float64, error) {
	jac := Jacobian(chain.Frames(), transforms)
	dof := chain.DoF()

	rows := []int{}
	for i, enforced := range mask {
		if enforced {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 || dof == 0 {
		return make([]float64, dof), nil
	}

	j := mat.NewDense(len(rows), dof, nil)
	e := mat.NewVecDense(len(rows), nil)
	for r, row := range rows {
		j.SetRow(r, jac[row])
		e.SetVec(r, residual[row])
	}

	var svd mat.SVD
	if ok := svd.Factorize(j, mat.SVDThin); !ok {
		return nil, errors.New("svd factorization failed")
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] < 1e-12 {
		return nil, errors.New("jacobian has rank zero")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// dq = V * S^+ * U^T * e
	var proj mat.VecDense
	proj.MulVec(u.T(), e)
	damping := ik.opts.Damping * ik.opts.Damping
	for i, s := range values {
		if s < singularCutoff*values[0] {
			proj.SetVec(i, 0)
			continue
		}
		proj.SetVec(i, proj.AtVec(i)*s/(s*s+damping))
	}
	var dq mat.VecDense
	dq.MulVec(&v, &proj)
	return dq.RawVector().Data, nil
}

// Jacobian returns the 6 x DoF geometric Jacobian of the end effector, in world coordinates, given the world
// transform of every joint. Rows are ordered like spatialmath.PoseDeltaR3.
func Jacobian(frames []referenceframe.Frame, transforms []spatial.Pose) [][]float64 {
	dof := 0
	for _, f := range frames {
		dof += len(f.DoF())
	}
	jac := make([][]float64, 6)
	for i := range jac {
		jac[i] = make([]float64, dof)
	}
	end := transforms[len(transforms)-1].Point()

	col := 0
	for i, f := range frames {
		if len(f.DoF()) == 0 {
			continue
		}
		axis := spatial.RotateVector(transforms[i].Orientation(), f.Axis())
		switch f.Type() {
		case referenceframe.RevoluteJoint:
			linear := axis.Cross(end.Sub(transforms[i].Point()))
			jac[0][col], jac[1][col], jac[2][col] = linear.X, linear.Y, linear.Z
			jac[3][col], jac[4][col], jac[5][col] = axis.X, axis.Y, axis.Z
		case referenceframe.PrismaticJoint:
			jac[0][col], jac[1][col], jac[2][col] = axis.X, axis.Y, axis.Z
		case referenceframe.FixedJoint:
		}
		col++
	}
	return jac
}
