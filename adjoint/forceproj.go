package adjoint

import (
	"fmt"
	"math"

	"github.com/notargets/goadjoint/types"
)

// ForceCoefficients integrates the surface pressure over the solid wall
// markers and projects onto the body axes. The efficiency and
// figure-of-merit objectives need these totals before the force projection
// vector can be formed.
type ForceCoefficients struct {
	CDrag, CLift, CT, CQ float64
}

func (s *Solver) ComputeForceCoefficients() (fc ForceCoefficients) {
	var (
		alpha  = s.FS.Alpha
		beta   = s.FS.Beta
		factor = 1.0 / (0.5 * s.FS.RefDensity * s.FS.RefAreaCoeff * s.FS.RefVel2)
		forceX float64
		forceY float64
		forceZ float64
	)
	for _, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_EulerWall && marker.Kind != types.BC_NSWall {
			continue
		}
		for _, vtx := range marker.Vertices {
			cp := (s.Flow.Pressure(vtx.Node) - s.FS.Pinf) * factor
			// the vertex normal points out of the domain, into the body,
			// so the pressure force on the body follows it
			forceX += cp * vtx.Normal[0]
			forceY += cp * vtx.Normal[1]
			if s.NDim == 3 {
				forceZ += cp * vtx.Normal[2]
			}
		}
	}
	if s.NDim == 2 {
		fc.CDrag = forceX*math.Cos(alpha) + forceY*math.Sin(alpha)
		fc.CLift = -forceX*math.Sin(alpha) + forceY*math.Cos(alpha)
	} else {
		fc.CDrag = forceX*math.Cos(alpha)*math.Cos(beta) + forceY*math.Sin(beta) + forceZ*math.Sin(alpha)*math.Cos(beta)
		fc.CLift = -forceX*math.Sin(alpha) + forceZ*math.Cos(alpha)
		fc.CT = -forceZ
		fc.CQ = 1 // avoids a division by zero when no torque is monitored
	}
	return
}

// SetForceProjVector builds the objective projection vector d on every
// monitored wall vertex. The adjoint wall boundary condition imposes
// Phi = d there, so the objective enters the equations through this field
// alone.
func (s *Solver) SetForceProjVector() (err error) {
	var (
		alpha           = s.FS.Alpha
		beta            = s.FS.Beta
		refAreaCoeff    = s.FS.RefAreaCoeff
		refLengthMoment = s.FS.RefLengthMoment
		refOrigin       = s.FS.RefOriginMoment
		refVel2         = s.FS.RefVel2
		refDensity      = s.FS.RefDensity
	)
	if s.IP.RotatingFrame {
		refOrigin = s.IP.RotationOrigin
		refLengthMoment = s.IP.RefLength
		refAreaCoeff = math.Pi * refLengthMoment * refLengthMoment
		omegaMag := 0.0
		for _, w := range s.IP.RotationOmega {
			omegaMag += w * w
		}
		refVel2 = omegaMag * refLengthMoment * refLengthMoment
	}
	fc := s.ComputeForceCoefficients()
	var (
		cP     = 1.0 / (0.5 * refDensity * refAreaCoeff * refVel2)
		invCD  = 1.0 / fc.CDrag
		cLCD2  = fc.CLift / (fc.CDrag * fc.CDrag)
		invCQ  = 1.0 / fc.CQ
		cTRCQ2 = fc.CT / (refLengthMoment * fc.CQ * fc.CQ)
		wDrag  = s.IP.WeightCd
		d      = make([]float64, s.NDim)
	)
	var xo, yo, zo float64
	if len(refOrigin) > 0 {
		xo = refOrigin[0]
	}
	if len(refOrigin) > 1 {
		yo = refOrigin[1]
	}
	if len(refOrigin) > 2 {
		zo = refOrigin[2]
	}
	for _, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_EulerWall && marker.Kind != types.BC_NSWall {
			continue
		}
		for _, vtx := range marker.Vertices {
			iPoint := vtx.Node
			if iPoint >= s.NPointDomain {
				continue
			}
			var (
				x = s.Mesh.Points[iPoint].Coord[0]
				y = s.Mesh.Points[iPoint].Coord[1]
				z float64
			)
			if s.NDim == 3 {
				z = s.Mesh.Points[iPoint].Coord[2]
			}
			switch s.IP.Objective {
			case "drag":
				if s.NDim == 2 {
					d[0], d[1] = cP*math.Cos(alpha), cP*math.Sin(alpha)
				} else {
					d[0] = cP * math.Cos(alpha) * math.Cos(beta)
					d[1] = cP * math.Sin(beta)
					d[2] = cP * math.Sin(alpha) * math.Cos(beta)
				}
			case "lift":
				if s.NDim == 2 {
					d[0], d[1] = -cP*math.Sin(alpha), cP*math.Cos(alpha)
				} else {
					d[0], d[1], d[2] = -cP*math.Sin(alpha), 0, cP*math.Cos(alpha)
				}
			case "sideforce":
				if s.NDim == 2 {
					return fmt.Errorf("%w: sideforce", ErrObjectiveInvalid2D)
				}
				d[0] = -cP * math.Sin(beta) * math.Cos(alpha)
				d[1] = cP * math.Cos(beta)
				d[2] = -cP * math.Sin(beta) * math.Sin(alpha)
			case "pressure":
				area := 0.0
				for iDim := 0; iDim < s.NDim; iDim++ {
					area += vtx.Normal[iDim] * vtx.Normal[iDim]
				}
				area = math.Sqrt(area)
				for iDim := 0; iDim < s.NDim; iDim++ {
					d[iDim] = cP * vtx.Normal[iDim] / area
				}
			case "moment-x":
				if s.NDim == 2 {
					return fmt.Errorf("%w: moment-x", ErrObjectiveInvalid2D)
				}
				d[0] = 0
				d[1] = -cP * (z - zo) / refLengthMoment
				d[2] = cP * (y - yo) / refLengthMoment
			case "moment-y":
				if s.NDim == 2 {
					return fmt.Errorf("%w: moment-y", ErrObjectiveInvalid2D)
				}
				d[0] = -cP * (z - zo) / refLengthMoment
				d[1] = 0
				d[2] = cP * (x - xo) / refLengthMoment
			case "moment-z":
				d[0] = -cP * (y - yo) / refLengthMoment
				d[1] = cP * (x - xo) / refLengthMoment
				if s.NDim == 3 {
					d[2] = 0
				}
			case "efficiency":
				if s.NDim == 2 {
					d[0] = -cP * (invCD*math.Sin(alpha) + cLCD2*math.Cos(alpha))
					d[1] = cP * (invCD*math.Cos(alpha) - cLCD2*math.Sin(alpha))
				} else {
					d[0] = -cP * (invCD*math.Sin(alpha) + cLCD2*math.Cos(alpha)*math.Cos(beta))
					d[1] = -cP * cLCD2 * math.Sin(beta)
					d[2] = cP * (invCD*math.Cos(alpha) - cLCD2*math.Sin(alpha)*math.Cos(beta))
				}
			case "eq-area", "nearfield-pressure":
				if s.NDim == 2 {
					d[0], d[1] = cP*math.Cos(alpha)*wDrag, cP*math.Sin(alpha)*wDrag
				} else {
					d[0] = cP * math.Cos(alpha) * math.Cos(beta) * wDrag
					d[1] = cP * math.Sin(beta) * wDrag
					d[2] = cP * math.Sin(alpha) * math.Cos(beta) * wDrag
				}
			case "force-x":
				d[0] = cP
				for iDim := 1; iDim < s.NDim; iDim++ {
					d[iDim] = 0
				}
			case "force-y":
				d[0], d[1] = 0, cP
				if s.NDim == 3 {
					d[2] = 0
				}
			case "force-z", "thrust":
				if s.NDim == 2 {
					return fmt.Errorf("%w: %s", ErrObjectiveInvalid2D, s.IP.Objective)
				}
				d[0], d[1], d[2] = 0, 0, cP
			case "torque":
				d[0] = cP * (y - yo) / refLengthMoment
				d[1] = -cP * (x - xo) / refLengthMoment
				if s.NDim == 3 {
					d[2] = 0
				}
			case "figure-of-merit":
				if s.NDim == 2 {
					return fmt.Errorf("%w: figure-of-merit", ErrObjectiveInvalid2D)
				}
				d[0] = -cP * invCQ
				d[1] = -cP * cTRCQ2 * (z - zo)
				d[2] = cP * cTRCQ2 * (y - yo)
			case "free-surface", "heat-load", "noise":
				for iDim := 0; iDim < s.NDim; iDim++ {
					d[iDim] = 0
				}
			default:
				return fmt.Errorf("%w: %s", ErrObjectiveUnknown, s.IP.Objective)
			}
			copy(s.ForceProjAt(iPoint), d)
		}
	}
	return
}
