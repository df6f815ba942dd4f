package adjoint

import (
	"math"

	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

// InviscidSensitivity evaluates the shape sensitivity on the slip walls and
// the far-field sensitivities with respect to Mach number, angle of attack,
// free-stream pressure and temperature.
func (s *Solver) InviscidSensitivity() {
	var (
		nDim  = s.NDim
		nVar  = s.NVar
		gamma = s.FS.Gamma
		gm1   = gamma - 1
	)
	s.TotalSensGeo = 0
	s.SensMach, s.SensAoA = 0, 0
	s.SensPress, s.SensTemp = 0, 0

	if s.Mode != Discrete {
		// Auxiliary variable psi^T dF/dp, differentiated along the surface
		aux := make([]float64, s.NPoint)
		for iPoint := 0; iPoint < s.NPoint; iPoint++ {
			var (
				psi     = s.PsiAt(iPoint)
				u       = s.Flow.Solution(iPoint)
				conspsi float64
			)
			if s.IP.Incompressible {
				conspsi = s.Flow.BetaInc2[iPoint] * psi[0]
			} else {
				conspsi = u[0]*psi[0] + u[0]*s.Flow.Enthalpy(iPoint)*psi[nDim+1]
			}
			for iDim := 0; iDim < nDim; iDim++ {
				conspsi += u[iDim+1] * psi[iDim+1]
			}
			aux[iPoint] = conspsi
		}
		auxGrad := make([]float64, s.NPoint*nDim)
		s.SetAuxVarSurfaceGradient(aux, auxGrad)

		rv := make([]float64, 3)
		for im, marker := range s.Mesh.Markers {
			if marker.Kind != types.BC_EulerWall && marker.Kind != types.BC_NSWall {
				continue
			}
			s.SensGeo[im] = 0
			for iv, vtx := range marker.Vertices {
				iPoint := vtx.Node
				if !s.Mesh.Points[iPoint].Domain {
					continue
				}
				var area float64
				for iDim := 0; iDim < nDim; iDim++ {
					area += vtx.Normal[iDim] * vtx.Normal[iDim]
				}
				area = math.Sqrt(area)

				if s.IP.RotatingFrame {
					s.rotVel(iPoint, rv)
				}
				var (
					d                       = s.ForceProjAt(iPoint)
					dPress, gradV, vGradPsi float64
				)
				for iDim := 0; iDim < nDim; iDim++ {
					dPress += d[iDim] * s.Flow.PrimGradient(iPoint, nDim+1, iDim)
					gradV += s.Flow.PrimGradient(iPoint, iDim+1, iDim) * aux[iPoint]
					vel := s.Flow.Velocity(iPoint, iDim)
					if s.IP.RotatingFrame {
						vel -= rv[iDim]
					}
					if s.IP.GridMovement {
						vel -= s.Mesh.Points[iPoint].GridVel[iDim]
					}
					vGradPsi += vel * auxGrad[iPoint*nDim+iDim]
				}
				s.CSensitivity[im][iv] = (dPress + gradV + vGradPsi) * area
				s.SensGeo[im] -= s.CSensitivity[im][iv] * area
			}
			s.TotalSensGeo += s.SensGeo[im]
		}
	}

	// Far-field sensitivities only exist for compressible flow
	if s.IP.Incompressible {
		return
	}

	var (
		machInf = s.IP.Minf
		jacJ    = newSquare(nVar)
		usens   = make([]float64, nVar)
	)
	contract := func(psi []float64) (sum float64) {
		for iVar := 0; iVar < nVar; iVar++ {
			for jVar := 0; jVar < nVar; jVar++ {
				sum += psi[iVar] * jacJ[jVar][iVar] * usens[jVar]
			}
		}
		return
	}

	for _, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_Far {
			continue
		}
		var mMach, mAoA, mPress, mTemp float64
		for _, vtx := range marker.Vertices {
			iPoint := vtx.Node
			if !s.Mesh.Points[iPoint].Domain {
				continue
			}
			var (
				psi = s.PsiAt(iPoint)
				u   = s.Flow.Solution(iPoint)
				r   = u[0]
				ru  = u[1]
				rv  = u[2]
				rw  float64
				rE  float64
			)
			if nDim == 2 {
				rE = u[3]
			} else {
				rw, rE = u[3], u[4]
			}
			p := gm1 * (rE - (ru*ru+rv*rv+rw*rw)/(2*r))

			var area float64
			for iDim := 0; iDim < nDim; iDim++ {
				area += vtx.Normal[iDim] * vtx.Normal[iDim]
			}
			area = math.Sqrt(area)

			if s.Mode == Discrete {
				s.farFieldFluxJacobian(iPoint, vtx.Normal, area, jacJ)
			} else {
				s.farFieldExactJacobian(u, p, vtx.Normal, jacJ)
			}

			// Mach number
			usens[0] = 0
			usens[1] = ru / machInf
			usens[2] = rv / machInf
			if nDim == 2 {
				usens[3] = gamma * machInf * p
			} else {
				usens[3] = rw / machInf
				usens[4] = gamma * machInf * p
			}
			mMach += contract(psi)

			// Angle of attack
			usens[0] = 0
			if nDim == 2 {
				usens[1], usens[2], usens[3] = -rv, ru, 0
			} else {
				usens[1], usens[2], usens[3], usens[4] = -rw, 0, ru, 0
			}
			mAoA += contract(psi)

			// Free-stream pressure
			usens[0] = r / p
			usens[1] = ru / p
			usens[2] = rv / p
			if nDim == 2 {
				usens[3] = rE / p
			} else {
				usens[3] = rw / p
				usens[4] = rE / p
			}
			mPress += contract(psi)

			// Free-stream temperature
			T := p / (r * s.FS.GasConstant)
			usens[0] = -r / T
			usens[1] = 0.5 * ru / T
			usens[2] = 0.5 * rv / T
			if nDim == 2 {
				usens[3] = (ru*ru + rv*rv + rw*rw) / (r * T)
			} else {
				usens[3] = 0.5 * rw / T
				usens[4] = (ru*ru + rv*rv + rw*rw) / (r * T)
			}
			mTemp += contract(psi)
		}
		s.SensMach -= mMach
		s.SensAoA -= mAoA
		s.SensPress -= mPress
		s.SensTemp -= mTemp
	}

	// Explicit dependence of the objective on the free stream, integrated
	// over the lifting surface
	dmat := newSquare(nDim)
	dd := make([]float64, nDim)
	for _, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_EulerWall && marker.Kind != types.BC_NSWall {
			continue
		}
		var mMach, mAoA, mPress float64
		for _, vtx := range marker.Vertices {
			iPoint := vtx.Node
			if !s.Mesh.Points[iPoint].Domain {
				continue
			}
			var (
				d    = s.ForceProjAt(iPoint)
				p    = s.Flow.Pressure(iPoint)
				area float64
			)
			for iDim := 0; iDim < nDim; iDim++ {
				area += vtx.Normal[iDim] * vtx.Normal[iDim]
			}
			area = math.Sqrt(area)

			// Mach number
			for iDim := 0; iDim < nDim; iDim++ {
				dd[iDim] = -(2 / machInf) * d[iDim]
			}
			for iDim := 0; iDim < nDim; iDim++ {
				mMach += p * dd[iDim] * vtx.Normal[iDim]
			}

			// Angle of attack, rotation of the force projection vector
			zeroSquare(dmat)
			if nDim == 2 {
				dmat[0][1] = -1
				dmat[1][0] = 1
			} else {
				dmat[0][2] = -1
				dmat[2][0] = 1
			}
			for iDim := 0; iDim < nDim; iDim++ {
				dd[iDim] = 0
				for jDim := 0; jDim < nDim; jDim++ {
					dd[iDim] += dmat[iDim][jDim] * d[jDim]
				}
			}
			for iDim := 0; iDim < nDim; iDim++ {
				mAoA += p * dd[iDim] * vtx.Normal[iDim]
			}

			// Free-stream pressure
			for iDim := 0; iDim < nDim; iDim++ {
				dd[iDim] = -(1 / p) * d[iDim]
			}
			for iDim := 0; iDim < nDim; iDim++ {
				mPress += p * dd[iDim] * vtx.Normal[iDim]
			}

			// No explicit temperature dependence of the force coefficients
		}
		s.SensMach += mMach
		s.SensAoA += mAoA
		s.SensPress += mPress
	}
}

// farFieldExactJacobian fills jacJ with the transposed Jacobian of the
// projected flux through the far-field face, d(F.n A)_iVar / dU_jVar stored
// as jacJ[jVar][iVar].
func (s *Solver) farFieldExactJacobian(u []float64, p float64,
	normal []float64, jacJ [][]float64) {
	var (
		nDim = s.NDim
		gm1  = s.FS.Gamma - 1
		r    = u[0]
		ru   = u[1]
		rv   = u[2]
		rw   float64
		rE   float64
	)
	if nDim == 2 {
		rE = u[3]
	} else {
		rw, rE = u[3], u[4]
	}
	h := (rE + p) / r

	var n [3]float64
	for iDim := 0; iDim < nDim; iDim++ {
		n[iDim] = normal[iDim]
	}

	var (
		dpDr  = gm1 * (ru*ru + rv*rv + rw*rw) / (2 * r * r)
		dpDru = -gm1 * ru / r
		dpDrv = -gm1 * rv / r
		dpDrw float64
		dpDrE = gm1
	)
	if nDim == 3 {
		dpDrw = -gm1 * rw / r
	}
	var (
		dhDr  = (-h + dpDr) / r
		dhDru = dpDru / r
		dhDrv = dpDrv / r
		dhDrw = dpDrw / r
		dhDrE = (1 + dpDrE) / r
	)

	if nDim == 2 {
		jacJ[0][0] = 0
		jacJ[1][0] = n[0]
		jacJ[2][0] = n[1]
		jacJ[3][0] = 0

		jacJ[0][1] = (-(ru*ru)/(r*r)+dpDr)*n[0] + (-(ru*rv)/(r*r))*n[1]
		jacJ[1][1] = (2*ru/r+dpDru)*n[0] + (rv/r)*n[1]
		jacJ[2][1] = dpDrv*n[0] + (ru/r)*n[1]
		jacJ[3][1] = dpDrE * n[0]

		jacJ[0][2] = (-(ru*rv)/(r*r))*n[0] + (-(rv*rv)/(r*r)+dpDr)*n[1]
		jacJ[1][2] = (rv/r)*n[0] + dpDru*n[1]
		jacJ[2][2] = (ru/r)*n[0] + (2*rv/r+dpDrv)*n[1]
		jacJ[3][2] = dpDrE * n[1]

		jacJ[0][3] = ru*dhDr*n[0] + rv*dhDr*n[1]
		jacJ[1][3] = (h+ru*dhDru)*n[0] + rv*dhDru*n[1]
		jacJ[2][3] = ru*dhDrv*n[0] + (h+rv*dhDrv)*n[1]
		jacJ[3][3] = ru*dhDrE*n[0] + rv*dhDrE*n[1]
		return
	}

	jacJ[0][0] = 0
	jacJ[1][0] = n[0]
	jacJ[2][0] = n[1]
	jacJ[3][0] = n[2]
	jacJ[4][0] = 0

	jacJ[0][1] = (-(ru*ru)/(r*r)+dpDr)*n[0] +
		(-(ru*rv)/(r*r))*n[1] + (-(ru*rw)/(r*r))*n[2]
	jacJ[1][1] = (2*ru/r+dpDru)*n[0] + (rv/r)*n[1] + (rw/r)*n[2]
	jacJ[2][1] = dpDrv*n[0] + (ru/r)*n[1]
	jacJ[3][1] = dpDrw*n[0] + (ru/r)*n[2]
	jacJ[4][1] = dpDrE * n[0]

	jacJ[0][2] = (-(ru*rv)/(r*r))*n[0] +
		(-(rv*rv)/(r*r)+dpDr)*n[1] + (-(rv*rw)/(r*r))*n[2]
	jacJ[1][2] = (rv/r)*n[0] + dpDru*n[1]
	jacJ[2][2] = (ru/r)*n[0] + (2*rv/r+dpDrv)*n[1] + (rw/r)*n[2]
	jacJ[3][2] = dpDrw*n[1] + (rv/r)*n[2]
	jacJ[4][2] = dpDrE * n[1]

	jacJ[0][3] = (-(ru*rw)/(r*r))*n[0] +
		(-(rv*rw)/(r*r))*n[1] + (-(rw*rw)/(r*r)+dpDr)*n[2]
	jacJ[1][3] = (rw/r)*n[0] + dpDru*n[2]
	jacJ[2][3] = (rw/r)*n[1] + dpDrv*n[2]
	jacJ[3][3] = (ru/r)*n[0] + (rv/r)*n[1] + (2*rw/r+dpDrw)*n[2]
	jacJ[4][3] = dpDrE * n[2]

	jacJ[0][4] = ru*dhDr*n[0] + rv*dhDr*n[1] + rw*dhDr*n[2]
	jacJ[1][4] = (h+ru*dhDru)*n[0] + rv*dhDru*n[1] + rw*dhDru*n[2]
	jacJ[2][4] = ru*dhDrv*n[0] + (h+rv*dhDrv)*n[1] + rw*dhDrv*n[2]
	jacJ[3][4] = ru*dhDrw*n[0] + rv*dhDrw*n[1] + (h+rw*dhDrw)*n[2]
	jacJ[4][4] = ru*dhDrE*n[0] + rv*dhDrE*n[1] + rw*dhDrE*n[2]
}

// farFieldFluxJacobian fills jacJ with the Roe flux Jacobian with respect to
// the free-stream state, used for the discrete far-field sensitivity.
func (s *Solver) farFieldFluxJacobian(iPoint int, normal []float64,
	area float64, jacJ [][]float64) {
	var (
		nDim  = s.NDim
		nVar  = s.NVar
		gamma = s.FS.Gamma
		gm1   = gamma - 1

		u      = s.Flow.Solution(iPoint)
		uInfty = s.FS.Uinf
	)
	var (
		rhoI = u[0]
		rhoJ = uInfty[0]
		vi   = make([]float64, nDim)
		vj   = make([]float64, nDim)
		un   = make([]float64, nDim)
	)
	var sqVelI, sqVelJ float64
	for iDim := 0; iDim < nDim; iDim++ {
		vi[iDim] = u[iDim+1] / rhoI
		vj[iDim] = uInfty[iDim+1] / rhoJ
		sqVelI += vi[iDim] * vi[iDim]
		sqVelJ += vj[iDim] * vj[iDim]
		un[iDim] = normal[iDim] / area
	}
	var (
		ei = u[nVar-1] / rhoI
		ej = uInfty[nVar-1] / rhoJ
		hI = ei + gm1*(ei-0.5*sqVelI)
		hJ = ej + gm1*(ej-0.5*sqVelJ)
		r  = math.Sqrt(rhoJ / rhoI)
	)

	projJac := newSquare(nVar)
	inviscidProjJac(nDim, gamma, vj, ej, normal, 0.5, projJac)

	var (
		roeVel   = make([]float64, nDim)
		roeSqVel float64
	)
	for iDim := 0; iDim < nDim; iDim++ {
		roeVel[iDim] = (r*vj[iDim] + vi[iDim]) / (1 + r)
		roeSqVel += roeVel[iDim] * roeVel[iDim]
	}
	var (
		roeH = (r*hJ + hI) / (1 + r)
		roeC = math.Sqrt(gm1 * (roeH - 0.5*roeSqVel))
		pMat = newSquare(nVar)
		invP = newSquare(nVar)
		absA = newSquare(nVar)
	)
	absRoeMatrix(nDim, gamma, r*rhoI, roeVel, roeC, un, area, pMat, invP, absA)

	for iVar := 0; iVar < nVar; iVar++ {
		for jVar := 0; jVar < nVar; jVar++ {
			jacJ[iVar][jVar] = projJac[iVar][jVar] - 0.5*absA[iVar][jVar]
		}
	}
}

// ViscousSensitivity evaluates the shape sensitivity on the no-slip walls
// from the adjoint and primitive gradients at the surface.
func (s *Solver) ViscousSensitivity() {
	if s.Mode == Discrete {
		return
	}
	var (
		nDim  = s.NDim
		nVar  = s.NVar
		gamma = s.FS.Gamma
		cp    = gamma / (gamma - 1) * s.FS.GasConstant

		unitNormal  = make([]float64, nDim)
		normGradVel = make([]float64, nDim)
		tangPsi5    = make([]float64, nDim)
		tangT       = make([]float64, nDim)
		sigma       = newSquare(nDim)
	)

	// Refresh the adjoint gradient at the surface points
	if s.IP.GradientMethod == "weighted-least-squares" {
		s.SetSolutionGradientLS()
	} else {
		s.SetSolutionGradientGG()
	}

	s.TotalSensGeo = 0
	for im, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_NSWall {
			continue
		}
		s.SensGeo[im] = 0
		for iv, vtx := range marker.Vertices {
			iPoint := vtx.Node
			if !s.Mesh.Points[iPoint].Domain {
				continue
			}
			var (
				psiGrad = s.GradientAt(iPoint)
				lamVisc = s.Flow.LamVisc[iPoint]
				hff     = cp * lamVisc / s.IP.Prandtl
				area    float64
			)
			for iDim := 0; iDim < nDim; iDim++ {
				area += vtx.Normal[iDim] * vtx.Normal[iDim]
			}
			area = math.Sqrt(area)
			for iDim := 0; iDim < nDim; iDim++ {
				unitNormal[iDim] = vtx.Normal[iDim] / area
			}

			// Tangential heat flux term (d_tg psi5).(k d_tg T)
			var heatTerm float64
			if !s.IP.Incompressible {
				var normGradPsi5, normGradT float64
				for iDim := 0; iDim < nDim; iDim++ {
					normGradPsi5 += psiGrad[(nVar-1)*nDim+iDim] * unitNormal[iDim]
					normGradT += s.Flow.PrimGradient(iPoint, 0, iDim) * unitNormal[iDim]
				}
				for iDim := 0; iDim < nDim; iDim++ {
					tangPsi5[iDim] = psiGrad[(nVar-1)*nDim+iDim] - normGradPsi5*unitNormal[iDim]
					tangT[iDim] = s.Flow.PrimGradient(iPoint, 0, iDim) - normGradT*unitNormal[iDim]
				}
				for iDim := 0; iDim < nDim; iDim++ {
					heatTerm += hff * tangPsi5[iDim] * tangT[iDim]
				}
			}

			// Adjoint stress contracted with the normal velocity gradient
			var divPhi float64
			for iDim := 0; iDim < nDim; iDim++ {
				divPhi += psiGrad[(iDim+1)*nDim+iDim]
				for jDim := 0; jDim < nDim; jDim++ {
					sigma[iDim][jDim] = lamVisc *
						(psiGrad[(iDim+1)*nDim+jDim] + psiGrad[(jDim+1)*nDim+iDim])
				}
			}
			if !s.IP.Incompressible {
				for iDim := 0; iDim < nDim; iDim++ {
					sigma[iDim][iDim] -= two3 * lamVisc * divPhi
				}
			}
			for iDim := 0; iDim < nDim; iDim++ {
				normGradVel[iDim] = 0
				for jDim := 0; jDim < nDim; jDim++ {
					normGradVel[iDim] += s.Flow.PrimGradient(iPoint, iDim+1, jDim) * unitNormal[jDim]
				}
			}
			var sigmaPartial float64
			for iDim := 0; iDim < nDim; iDim++ {
				for jDim := 0; jDim < nDim; jDim++ {
					sigmaPartial += unitNormal[iDim] * sigma[iDim][jDim] * normGradVel[jDim]
				}
			}

			s.CSensitivity[im][iv] = (sigmaPartial - heatTerm) * area
			s.SensGeo[im] -= s.CSensitivity[im][iv] * area
		}
		s.TotalSensGeo += s.SensGeo[im]
	}
}

// SmoothSensitivity applies an implicit Sobolev smoothing along the arc
// length of each wall marker, removing the high frequency noise of the raw
// surface sensitivity near sharp trailing edges.
func (s *Solver) SmoothSensitivity() {
	const epsilon = 5e-5
	for im, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_EulerWall && marker.Kind != types.BC_NSWall {
			continue
		}
		nVertex := len(marker.Vertices)
		if nVertex < 3 {
			continue
		}

		A := make([][]float64, nVertex)
		for i := range A {
			A[i] = make([]float64, nVertex)
		}
		b := make([]float64, nVertex)
		arc := make([]float64, nVertex)

		for iv := 1; iv < nVertex; iv++ {
			var (
				cb   = s.Mesh.Points[marker.Vertices[iv-1].Node].Coord
				ce   = s.Mesh.Points[marker.Vertices[iv].Node].Coord
				dist float64
			)
			for iDim := 0; iDim < s.NDim; iDim++ {
				d := ce[iDim] - cb[iDim]
				dist += d * d
			}
			arc[iv] = arc[iv-1] + math.Sqrt(dist)
		}

		// Hold the sensitivity constant over the first and last percent of
		// arc length to mask the trailing edge singularity
		var minNeg, minPos float64
		for iv := 0; iv < nVertex; iv++ {
			if arc[iv] > arc[nVertex-1]*0.01 {
				minNeg = s.CSensitivity[im][iv]
				break
			}
		}
		for iv := 0; iv < nVertex; iv++ {
			if arc[iv] > arc[nVertex-1]*0.99 {
				minPos = s.CSensitivity[im][iv]
				break
			}
		}
		for iv := 0; iv < nVertex; iv++ {
			if arc[iv] < arc[nVertex-1]*0.01 {
				s.CSensitivity[im][iv] = minNeg
			}
			if arc[iv] > arc[nVertex-1]*0.99 {
				s.CSensitivity[im][iv] = minPos
			}
		}

		for iv := 0; iv < nVertex; iv++ {
			b[iv] = s.CSensitivity[im][iv]
		}

		// Periodic second difference operator on the nonuniform arc length
		for iv := 0; iv < nVertex; iv++ {
			var backDiff, forwDiff, centDiff float64
			switch iv {
			case 0:
				backDiff = arc[0] - arc[nVertex-1]
				forwDiff = arc[1] - arc[0]
				centDiff = arc[1] - arc[nVertex-1]
			case nVertex - 1:
				backDiff = arc[nVertex-1] - arc[nVertex-2]
				forwDiff = arc[0] - arc[nVertex-1]
				centDiff = arc[0] - arc[nVertex-2]
			default:
				backDiff = arc[iv] - arc[iv-1]
				forwDiff = arc[iv+1] - arc[iv]
				centDiff = arc[iv+1] - arc[iv-1]
			}
			coeff := epsilon * 2 / (backDiff * forwDiff * centDiff)

			A[iv][iv] = coeff * centDiff
			if iv != 0 {
				A[iv][iv-1] = -coeff * forwDiff
			} else {
				A[iv][nVertex-1] = -coeff * forwDiff
			}
			if iv != nVertex-1 {
				A[iv][iv+1] = -coeff * backDiff
			} else {
				A[iv][0] = -coeff * backDiff
			}
		}
		for iv := 0; iv < nVertex; iv++ {
			A[iv][iv] += 1
		}

		// Pin one interior vertex so the periodic system is nonsingular
		mid := nVertex / 2
		A[mid][mid] = 1
		A[mid][mid+1] = 0
		A[mid][mid-1] = 0

		utils.GaussElimination(A, b)

		for iv := 0; iv < nVertex; iv++ {
			s.CSensitivity[im][iv] = b[iv]
		}
	}
}
