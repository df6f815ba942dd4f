package adjoint

import (
	"math"

	"github.com/notargets/goadjoint/types"
)

// ApplyBoundaryConditions walks the physical markers and applies the
// boundary flux of each kind. Send-receive and periodic markers are
// handled by the halo exchange instead.
func (s *Solver) ApplyBoundaryConditions(ek *edgeKernel) {
	for im, m := range s.Mesh.Markers {
		switch m.Kind {
		case types.BC_EulerWall:
			s.BCEulerWall(im)
		case types.BC_NSWall:
			if s.IP.Viscous {
				s.BCNSWall(im)
			} else {
				s.BCEulerWall(im)
			}
		case types.BC_SymPlane:
			s.BCSymPlane(im)
		case types.BC_Far:
			s.BCFarField(ek, im)
		case types.BC_Inlet:
			s.BCInlet(ek, im)
		case types.BC_Outlet:
			s.BCOutlet(ek, im)
		case types.BC_NacelleInflow:
			s.BCNacelleInflow(ek, im)
		case types.BC_NacelleExhaust:
			s.BCNacelleExhaust(ek, im)
		case types.BC_Interface:
			s.BCInterface(ek, im)
		case types.BC_NearField:
			s.BCNearField(ek, im)
		case types.BC_FWH:
			s.BCFWH(im)
		}
	}
}

// rotVel is the rotational velocity omega x (r - origin) at a point.
func (s *Solver) rotVel(iPoint int, out []float64) {
	var (
		coord  = s.Mesh.Points[iPoint].Coord
		origin = s.IP.RotationOrigin
		w      = s.IP.RotationOmega
		r      [3]float64
	)
	for iDim := 0; iDim < s.NDim; iDim++ {
		r[iDim] = coord[iDim] - origin[iDim]
	}
	if s.NDim == 2 {
		wz := w[len(w)-1]
		out[0] = -wz * r[1]
		out[1] = wz * r[0]
		return
	}
	out[0] = w[1]*r[2] - w[2]*r[1]
	out[1] = w[2]*r[0] - w[0]*r[2]
	out[2] = w[0]*r[1] - w[1]*r[0]
}

// rotFlux integrates the rotational velocity through a boundary face.
func (s *Solver) rotFlux(iPoint int, normal []float64) (flux float64) {
	var rv [3]float64
	s.rotVel(iPoint, rv[:])
	for iDim := 0; iDim < s.NDim; iDim++ {
		flux += rv[iDim] * normal[iDim]
	}
	return
}

// BCEulerWall imposes the flow tangency adjoint condition. The normal
// adjoint momentum is replaced by the projection of the force vector d,
// which is how the surface objective enters the problem.
func (s *Solver) BCEulerWall(iMarker int) {
	var (
		nDim     = s.NDim
		nVar     = s.NVar
		implicit = s.Time == ImplicitEuler
		gm1      = s.FS.Gamma - 1
		normal   = make([]float64, nDim)
		un       = make([]float64, nDim)
		vel      = make([]float64, nDim)
		psi      = make([]float64, nVar)
		res      = make([]float64, nVar)
		jac      = newSquare(nVar)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		// flux formulas below carry the into-the-domain normal, the
		// outward unit normal un is recovered from it
		var area float64
		for iDim := 0; iDim < nDim; iDim++ {
			normal[iDim] = -vertex.Normal[iDim]
			area += normal[iDim] * normal[iDim]
		}
		area = math.Sqrt(area)
		for iDim := 0; iDim < nDim; iDim++ {
			un[iDim] = -normal[iDim] / area
		}
		d := s.ForceProjAt(iPoint)

		if s.Mode == Discrete && !s.IP.Incompressible {
			s.bcWallDiscrete(iPoint, normal, un, area, d)
			continue
		}

		copy(psi, s.PsiAt(iPoint))

		if s.IP.Incompressible {
			var (
				densityInc = s.Flow.DensityInc[iPoint]
				betaInc2   = s.Flow.BetaInc2[iPoint]
			)
			for iDim := 0; iDim < nDim; iDim++ {
				vel[iDim] = s.Flow.Solution(iPoint)[iDim+1] / densityInc
			}
			var bcn, phin float64
			for iDim := 0; iDim < nDim; iDim++ {
				bcn += d[iDim] * un[iDim]
				phin += psi[iDim+1] * un[iDim]
			}
			for iDim := 0; iDim < nDim; iDim++ {
				psi[iDim+1] -= (phin - bcn) * un[iDim]
			}
			var phis1 float64
			phis2 := psi[0] * (betaInc2 / densityInc)
			for iDim := 0; iDim < nDim; iDim++ {
				phis1 -= normal[iDim] * psi[iDim+1]
				phis2 += vel[iDim] * psi[iDim+1]
			}
			res[0] = phis1
			for iDim := 0; iDim < nDim; iDim++ {
				res[iDim+1] = -phis2 * normal[iDim]
			}
			subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
			if implicit {
				zeroSquare(jac)
				for iDim := 0; iDim < nDim; iDim++ {
					jac[0][iDim+1] = -normal[iDim]
					jac[iDim+1][0] = -normal[iDim] * (betaInc2 / densityInc)
					for jDim := 0; jDim < nDim; jDim++ {
						jac[iDim+1][jDim+1] = -normal[iDim] * vel[jDim]
					}
				}
				s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(jac))
			}
			continue
		}

		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] = s.Flow.Velocity(iPoint, iDim)
		}
		var (
			enthalpy = s.Flow.Enthalpy(iPoint)
			sqVel    = 0.5 * s.Flow.Velocity2(iPoint)
		)
		var projVel, bcn, vn, phin float64
		for iDim := 0; iDim < nDim; iDim++ {
			projVel -= vel[iDim] * normal[iDim]
			bcn += d[iDim] * un[iDim]
			vn += vel[iDim] * un[iDim]
			phin += psi[iDim+1] * un[iDim]
		}

		var projRotVel, projGridVel float64
		if s.IP.RotatingFrame {
			projRotVel = -s.rotFlux(iPoint, normal) / area
			phin -= psi[nVar-1] * projRotVel
		}
		if s.IP.GridMovement {
			gv := s.Mesh.Points[iPoint].GridVel
			for iDim := 0; iDim < nDim; iDim++ {
				projGridVel += gv[iDim] * un[iDim]
			}
			phin -= psi[nVar-1] * projGridVel
		}

		for iDim := 0; iDim < nDim; iDim++ {
			psi[iDim+1] -= (phin - bcn) * un[iDim]
		}
		var phis1 float64
		phis2 := psi[0] + enthalpy*psi[nVar-1]
		for iDim := 0; iDim < nDim; iDim++ {
			phis1 -= normal[iDim] * psi[iDim+1]
			phis2 += vel[iDim] * psi[iDim+1]
		}

		res[0] = projVel*psi[0] - phis2*projVel + phis1*gm1*sqVel
		for iDim := 0; iDim < nDim; iDim++ {
			res[iDim+1] = projVel*psi[iDim+1] - phis2*normal[iDim] - phis1*gm1*vel[iDim]
		}
		res[nVar-1] = projVel*psi[nVar-1] + phis1*gm1

		if s.IP.RotatingFrame {
			flux := -s.rotFlux(iPoint, normal)
			for iVar := 0; iVar < nVar; iVar++ {
				res[iVar] -= flux * psi[iVar]
			}
		}
		if s.IP.GridMovement {
			var flux float64
			gv := s.Mesh.Points[iPoint].GridVel
			for iDim := 0; iDim < nDim; iDim++ {
				flux -= gv[iDim] * normal[iDim]
			}
			for iVar := 0; iVar < nVar; iVar++ {
				res[iVar] -= flux * psi[iVar]
			}
		}

		if implicit {
			s.wallJacobian(jac, normal, un, vel, projVel, vn, enthalpy)
			if s.IP.RotatingFrame {
				flux := -s.rotFlux(iPoint, normal)
				for iVar := 0; iVar < nVar; iVar++ {
					jac[iVar][iVar] -= flux
				}
			}
			if s.IP.GridMovement {
				var flux float64
				gv := s.Mesh.Points[iPoint].GridVel
				for iDim := 0; iDim < nDim; iDim++ {
					flux -= gv[iDim] * normal[iDim]
				}
				for iVar := 0; iVar < nVar; iVar++ {
					jac[iVar][iVar] -= flux
				}
			}
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(jac))
		}

		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
	}
}

// wallJacobian fills the compressible wall flux Jacobian with respect to
// the adjoint state, after the normal momentum projection.
func (s *Solver) wallJacobian(jac [][]float64, normal, un, vel []float64,
	projVel, vn, enthalpy float64) {
	var (
		nDim = s.NDim
		nVar = s.NVar
	)
	zeroSquare(jac)
	for iDim := 0; iDim < nDim; iDim++ {
		jac[0][iDim+1] = -projVel * (vel[iDim] - un[iDim]*vn)
	}
	jac[0][nVar-1] = -projVel * enthalpy
	for iDim := 0; iDim < nDim; iDim++ {
		jac[iDim+1][0] = -normal[iDim]
		for jDim := 0; jDim < nDim; jDim++ {
			jac[iDim+1][jDim+1] = -projVel * (un[jDim]*un[iDim] -
				normal[iDim]*(vel[jDim]-un[jDim]*vn))
		}
		jac[iDim+1][iDim+1] += projVel
		jac[iDim+1][nVar-1] = -normal[iDim] * enthalpy
	}
	jac[nVar-1][nVar-1] = projVel
}

// bcWallDiscrete linearizes the wall pressure flux with respect to the
// flow state and loads the objective source vector.
func (s *Solver) bcWallDiscrete(iPoint int, normal, un []float64, area float64, d []float64) {
	var (
		nDim = s.NDim
		nVar = s.NVar
		gm1  = s.FS.Gamma - 1
		u    = s.Flow.Solution(iPoint)
		dp   = make([]float64, nVar)
		jac  = newSquare(nVar)
	)
	for iDim := 0; iDim < nDim; iDim++ {
		dp[0] += u[iDim+1] * u[iDim+1]
		dp[iDim+1] = -gm1 * u[iDim+1] / u[0]
	}
	dp[0] *= gm1 / (2.0 * u[0] * u[0])
	dp[nVar-1] = gm1

	for iVar := 0; iVar < nVar; iVar++ {
		for jDim := 0; jDim < nDim; jDim++ {
			jac[iVar][jDim+1] = dp[iVar] * un[jDim] * area
		}
	}
	s.Jacobian.AddBlock(iPoint, iPoint, flatten(jac))

	var bcn float64
	for iDim := 0; iDim < nDim; iDim++ {
		bcn += d[iDim] * un[iDim] * area
	}
	for iVar := 0; iVar < nVar; iVar++ {
		s.ObjFuncSource[iPoint*nVar+iVar] = dp[iVar] * bcn
	}
}

// BCSymPlane mirrors the adjoint state across the plane. Identical to the
// Euler wall except that no objective force enters.
func (s *Solver) BCSymPlane(iMarker int) {
	var (
		nDim     = s.NDim
		nVar     = s.NVar
		implicit = s.Time == ImplicitEuler
		gm1      = s.FS.Gamma - 1
		normal   = make([]float64, nDim)
		un       = make([]float64, nDim)
		vel      = make([]float64, nDim)
		psi      = make([]float64, nVar)
		res      = make([]float64, nVar)
		jac      = newSquare(nVar)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		var area float64
		for iDim := 0; iDim < nDim; iDim++ {
			normal[iDim] = -vertex.Normal[iDim]
			area += normal[iDim] * normal[iDim]
		}
		area = math.Sqrt(area)
		for iDim := 0; iDim < nDim; iDim++ {
			un[iDim] = -normal[iDim] / area
		}
		copy(psi, s.PsiAt(iPoint))

		if s.IP.Incompressible {
			var (
				densityInc = s.Flow.DensityInc[iPoint]
				betaInc2   = s.Flow.BetaInc2[iPoint]
			)
			for iDim := 0; iDim < nDim; iDim++ {
				vel[iDim] = s.Flow.Solution(iPoint)[iDim+1] / densityInc
			}
			var phin float64
			for iDim := 0; iDim < nDim; iDim++ {
				phin += psi[iDim+1] * un[iDim]
			}
			for iDim := 0; iDim < nDim; iDim++ {
				psi[iDim+1] -= phin * un[iDim]
			}
			var phis1 float64
			phis2 := psi[0] * (betaInc2 / densityInc)
			for iDim := 0; iDim < nDim; iDim++ {
				phis1 -= normal[iDim] * psi[iDim+1]
				phis2 += vel[iDim] * psi[iDim+1]
			}
			res[0] = phis1
			for iDim := 0; iDim < nDim; iDim++ {
				res[iDim+1] = -phis2 * normal[iDim]
			}
			subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
			if implicit {
				zeroSquare(jac)
				for iDim := 0; iDim < nDim; iDim++ {
					jac[0][iDim+1] = -normal[iDim]
					jac[iDim+1][0] = -normal[iDim] * (betaInc2 / densityInc)
					for jDim := 0; jDim < nDim; jDim++ {
						jac[iDim+1][jDim+1] = -normal[iDim] * vel[jDim]
					}
				}
				s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(jac))
			}
			continue
		}

		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] = s.Flow.Velocity(iPoint, iDim)
		}
		var (
			enthalpy = s.Flow.Enthalpy(iPoint)
			sqVel    = 0.5 * s.Flow.Velocity2(iPoint)
		)
		var projVel, vn, phin float64
		for iDim := 0; iDim < nDim; iDim++ {
			projVel -= vel[iDim] * normal[iDim]
			vn += vel[iDim] * un[iDim]
			phin += psi[iDim+1] * un[iDim]
		}
		if s.IP.RotatingFrame {
			phin -= psi[nVar-1] * (-s.rotFlux(iPoint, normal) / area)
		}
		if s.IP.GridMovement {
			var projGridVel float64
			gv := s.Mesh.Points[iPoint].GridVel
			for iDim := 0; iDim < nDim; iDim++ {
				projGridVel += gv[iDim] * un[iDim]
			}
			phin -= psi[nVar-1] * projGridVel
		}

		for iDim := 0; iDim < nDim; iDim++ {
			psi[iDim+1] -= phin * un[iDim]
		}
		var phis1 float64
		phis2 := psi[0] + enthalpy*psi[nVar-1]
		for iDim := 0; iDim < nDim; iDim++ {
			phis1 -= normal[iDim] * psi[iDim+1]
			phis2 += vel[iDim] * psi[iDim+1]
		}

		res[0] = projVel*psi[0] - phis2*projVel + phis1*gm1*sqVel
		for iDim := 0; iDim < nDim; iDim++ {
			res[iDim+1] = projVel*psi[iDim+1] - phis2*normal[iDim] - phis1*gm1*vel[iDim]
		}
		res[nVar-1] = projVel*psi[nVar-1] + phis1*gm1

		if s.IP.RotatingFrame {
			flux := -s.rotFlux(iPoint, normal)
			for iVar := 0; iVar < nVar; iVar++ {
				res[iVar] -= flux * psi[iVar]
			}
		}
		if s.IP.GridMovement {
			var flux float64
			gv := s.Mesh.Points[iPoint].GridVel
			for iDim := 0; iDim < nDim; iDim++ {
				flux -= gv[iDim] * normal[iDim]
			}
			for iVar := 0; iVar < nVar; iVar++ {
				res[iVar] -= flux * psi[iVar]
			}
		}

		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)

		if implicit {
			s.wallJacobian(jac, normal, un, vel, projVel, vn, enthalpy)
			if s.IP.RotatingFrame {
				flux := -s.rotFlux(iPoint, normal)
				for iVar := 0; iVar < nVar; iVar++ {
					jac[iVar][iVar] -= flux
				}
			}
			if s.IP.GridMovement {
				var flux float64
				gv := s.Mesh.Points[iPoint].GridVel
				for iDim := 0; iDim < nDim; iDim++ {
					flux -= gv[iDim] * normal[iDim]
				}
				for iVar := 0; iVar < nVar; iVar++ {
					jac[iVar][iVar] -= flux
				}
			}
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(jac))
		}
	}
}
