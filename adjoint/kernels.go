package adjoint

import (
	"math"

	"github.com/notargets/goadjoint/utils"
)

const (
	jstParamP    = 0.3
	prandtlLam   = 0.72
	prandtlTurb  = 0.9
	four3, two3  = 4.0 / 3.0, 2.0 / 3.0
)

func newSquare(n int) (m [][]float64) {
	m = make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return
}

func zeroSquare(m [][]float64) {
	for i := range m {
		for j := range m[i] {
			m[i][j] = 0
		}
	}
}

// inviscidProjJac fills A with scale times the flux Jacobian projected on
// normal, evaluated at (vel, energy).
func inviscidProjJac(nDim int, gamma float64, vel []float64, energy float64,
	normal []float64, scale float64, A [][]float64) {
	var (
		nVar    = nDim + 2
		gm1     = gamma - 1
		sqVel   float64
		projVel float64
	)
	for iDim := 0; iDim < nDim; iDim++ {
		sqVel += vel[iDim] * vel[iDim]
		projVel += vel[iDim] * normal[iDim]
	}
	phi := 0.5 * gm1 * sqVel
	a1 := gamma*energy - phi

	A[0][0] = 0
	for iDim := 0; iDim < nDim; iDim++ {
		A[0][iDim+1] = scale * normal[iDim]
	}
	A[0][nVar-1] = 0
	for iDim := 0; iDim < nDim; iDim++ {
		A[iDim+1][0] = scale * (normal[iDim]*phi - vel[iDim]*projVel)
		for jDim := 0; jDim < nDim; jDim++ {
			A[iDim+1][jDim+1] = scale * (normal[jDim]*vel[iDim] - gm1*normal[iDim]*vel[jDim])
		}
		A[iDim+1][iDim+1] += scale * projVel
		A[iDim+1][nVar-1] = scale * gm1 * normal[iDim]
	}
	A[nVar-1][0] = scale * projVel * (phi - a1)
	for iDim := 0; iDim < nDim; iDim++ {
		A[nVar-1][iDim+1] = scale * (normal[iDim]*a1 - gm1*vel[iDim]*projVel)
	}
	A[nVar-1][nVar-1] = scale * gamma * projVel
}

// tangentBasis returns nDim-1 unit tangents orthogonal to the unit normal.
func tangentBasis(nDim int, un []float64) (t [][]float64) {
	if nDim == 2 {
		return [][]float64{{un[1], -un[0]}}
	}
	// pick the least aligned axis as seed
	seed := []float64{1, 0, 0}
	if math.Abs(un[0]) > math.Abs(un[1]) {
		seed = []float64{0, 1, 0}
	}
	t1 := make([]float64, 3)
	t1[0] = un[1]*seed[2] - un[2]*seed[1]
	t1[1] = un[2]*seed[0] - un[0]*seed[2]
	t1[2] = un[0]*seed[1] - un[1]*seed[0]
	mag := math.Sqrt(t1[0]*t1[0] + t1[1]*t1[1] + t1[2]*t1[2])
	for i := range t1 {
		t1[i] /= mag
	}
	t2 := []float64{
		un[1]*t1[2] - un[2]*t1[1],
		un[2]*t1[0] - un[0]*t1[2],
		un[0]*t1[1] - un[1]*t1[0],
	}
	return [][]float64{t1, t2}
}

// pMatrices fills P with the right eigenvector matrix of the projected flux
// Jacobian and invP with its inverse, entropy wave first, then the shear
// waves and the two acoustic waves.
func pMatrices(nDim int, gamma, rho float64, vel []float64, c float64,
	un []float64, P, invP [][]float64) {
	var (
		nVar    = nDim + 2
		gm1     = gamma - 1
		c2      = c * c
		sqVel   float64
		projVel float64
	)
	for iDim := 0; iDim < nDim; iDim++ {
		sqVel += vel[iDim] * vel[iDim]
		projVel += vel[iDim] * un[iDim]
	}
	phi := 0.5 * gm1 * sqVel
	tangents := tangentBasis(nDim, un)

	// entropy wave
	P[0][0] = 1
	for iDim := 0; iDim < nDim; iDim++ {
		P[iDim+1][0] = vel[iDim]
	}
	P[nVar-1][0] = 0.5 * sqVel
	invP[0][0] = 1 - phi/c2
	for iDim := 0; iDim < nDim; iDim++ {
		invP[0][iDim+1] = gm1 * vel[iDim] / c2
	}
	invP[0][nVar-1] = -gm1 / c2

	// shear waves
	for k, t := range tangents {
		col := 1 + k
		var velT float64
		for iDim := 0; iDim < nDim; iDim++ {
			velT += vel[iDim] * t[iDim]
		}
		P[0][col] = 0
		for iDim := 0; iDim < nDim; iDim++ {
			P[iDim+1][col] = rho * t[iDim]
		}
		P[nVar-1][col] = rho * velT
		invP[col][0] = -velT / rho
		for iDim := 0; iDim < nDim; iDim++ {
			invP[col][iDim+1] = t[iDim] / rho
		}
		invP[col][nVar-1] = 0
	}

	// acoustic waves
	rhooc := rho / c
	for sgn, col := range []int{nVar - 2, nVar - 1} {
		sign := 1.0
		if sgn == 1 {
			sign = -1.0
		}
		P[0][col] = 0.5 * rhooc
		for iDim := 0; iDim < nDim; iDim++ {
			P[iDim+1][col] = 0.5 * (vel[iDim]*rhooc + sign*rho*un[iDim])
		}
		P[nVar-1][col] = 0.5 * (0.5*sqVel*rhooc + sign*rho*projVel + rho*c/gm1)
		invP[col][0] = (-sign*projVel + phi/c) / rho
		for iDim := 0; iDim < nDim; iDim++ {
			invP[col][iDim+1] = (sign*un[iDim] - gm1*vel[iDim]/c) / rho
		}
		invP[col][nVar-1] = gm1 / (rho * c)
	}
}

// absRoeMatrix fills absA with P |Lambda| P^-1 scaled by area, the upwinding
// matrix of the Roe scheme evaluated at the Roe-averaged state.
func absRoeMatrix(nDim int, gamma, rho float64, vel []float64, c float64,
	un []float64, area float64, P, invP, absA [][]float64) {
	var (
		nVar    = nDim + 2
		projVel float64
	)
	for iDim := 0; iDim < nDim; iDim++ {
		projVel += vel[iDim] * un[iDim]
	}
	pMatrices(nDim, gamma, rho, vel, c, un, P, invP)
	lambda := make([]float64, nVar)
	for k := 0; k < nDim; k++ {
		lambda[k] = math.Abs(projVel)
	}
	lambda[nVar-2] = math.Abs(projVel + c)
	lambda[nVar-1] = math.Abs(projVel - c)
	for iVar := 0; iVar < nVar; iVar++ {
		for jVar := 0; jVar < nVar; jVar++ {
			var sum float64
			for kVar := 0; kVar < nVar; kVar++ {
				sum += P[iVar][kVar] * lambda[kVar] * invP[kVar][jVar]
			}
			absA[iVar][jVar] = area * sum
		}
	}
}

// edgeKernel carries the per-edge scratch space of the flux evaluations so
// the residual loops allocate nothing.
type edgeKernel struct {
	nDim, nVar int
	gamma      float64

	PsiI, PsiJ         []float64
	ResConvI, ResConvJ []float64
	ResViscI, ResViscJ []float64

	JacII, JacIJ, JacJI, JacJJ [][]float64

	projJacI, projJacJ [][]float64
	pMat, invPMat, abs [][]float64
	meanPsi, diffPsi   []float64
	roeVel             []float64
	un                 []float64
}

func newEdgeKernel(nDim int, gamma float64) (ek *edgeKernel) {
	nVar := nDim + 2
	ek = &edgeKernel{
		nDim: nDim, nVar: nVar, gamma: gamma,
		ResConvI: make([]float64, nVar),
		ResConvJ: make([]float64, nVar),
		ResViscI: make([]float64, nVar),
		ResViscJ: make([]float64, nVar),
		JacII:    newSquare(nVar),
		JacIJ:    newSquare(nVar),
		JacJI:    newSquare(nVar),
		JacJJ:    newSquare(nVar),
		projJacI: newSquare(nVar),
		projJacJ: newSquare(nVar),
		pMat:     newSquare(nVar),
		invPMat:  newSquare(nVar),
		abs:      newSquare(nVar),
		meanPsi:  make([]float64, nVar),
		diffPsi:  make([]float64, nVar),
		roeVel:   make([]float64, nDim),
		un:       make([]float64, nDim),
	}
	return
}

// centeredJST evaluates the centered adjoint flux with scalar JST
// dissipation. The convective part is the transposed flux Jacobian at each
// endpoint applied to the mean adjoint state; the dissipation blends second
// and fourth differences through the sensor.
func (s *Solver) centeredJST(ek *edgeKernel, i, j int, normal []float64,
	implicit, dissipation bool) {
	var (
		nDim  = ek.nDim
		nVar  = ek.nVar
		gamma = ek.gamma
		gm1   = gamma - 1
		psiI  = s.PsiAt(i)
		psiJ  = s.PsiAt(j)
	)
	meanPsiRho := 0.5 * (psiI[0] + psiJ[0])
	meanPsiE := 0.5 * (psiI[nVar-1] + psiJ[nVar-1])

	var area float64
	for iDim := 0; iDim < nDim; iDim++ {
		area += normal[iDim] * normal[iDim]
	}
	area = math.Sqrt(area)

	// convective part, one endpoint at a time
	for side := 0; side < 2; side++ {
		var (
			iPoint = i
			res    = ek.ResConvI
			sign   = 1.0
		)
		if side == 1 {
			iPoint, res, sign = j, ek.ResConvJ, -1.0
		}
		var (
			projVel, projPhi, projPhiVel, sqVel float64
			enthalpy                            = s.Flow.Enthalpy(iPoint)
		)
		for iDim := 0; iDim < nDim; iDim++ {
			vel := s.Flow.Velocity(iPoint, iDim)
			meanPhi := 0.5 * (psiI[iDim+1] + psiJ[iDim+1])
			projVel += vel * normal[iDim]
			projPhi += meanPhi * normal[iDim]
			projPhiVel += meanPhi * vel
			sqVel += 0.5 * vel * vel
		}
		phis1 := projPhi + projVel*meanPsiE
		phis2 := meanPsiRho + projPhiVel + enthalpy*meanPsiE

		res[0] = sign * (projVel*meanPsiRho - phis2*projVel + gm1*phis1*sqVel)
		for iDim := 0; iDim < nDim; iDim++ {
			vel := s.Flow.Velocity(iPoint, iDim)
			meanPhi := 0.5 * (psiI[iDim+1] + psiJ[iDim+1])
			res[iDim+1] = sign * (projVel*meanPhi + phis2*normal[iDim] - gm1*phis1*vel)
		}
		res[nVar-1] = sign * (projVel*meanPsiE + gm1*phis1)
	}

	if implicit {
		vi := make([]float64, nDim)
		vj := make([]float64, nDim)
		for iDim := 0; iDim < nDim; iDim++ {
			vi[iDim] = s.Flow.Velocity(i, iDim)
			vj[iDim] = s.Flow.Velocity(j, iDim)
		}
		ei := s.Flow.Solution(i)[nVar-1] / s.Flow.Density(i)
		ej := s.Flow.Solution(j)[nVar-1] / s.Flow.Density(j)
		inviscidProjJac(nDim, gamma, vi, ei, normal, 0.5, ek.projJacI)
		inviscidProjJac(nDim, gamma, vj, ej, normal, 0.5, ek.projJacJ)
		for iVar := 0; iVar < nVar; iVar++ {
			for jVar := 0; jVar < nVar; jVar++ {
				ek.JacII[iVar][jVar] = ek.projJacI[jVar][iVar]
				ek.JacIJ[iVar][jVar] = ek.projJacI[jVar][iVar]
				ek.JacJI[iVar][jVar] = -ek.projJacJ[jVar][iVar]
				ek.JacJJ[iVar][jVar] = -ek.projJacJ[jVar][iVar]
			}
		}
	}

	if !dissipation {
		for iVar := 0; iVar < nVar; iVar++ {
			ek.ResViscI[iVar], ek.ResViscJ[iVar] = 0, 0
		}
		return
	}

	// scalar dissipation
	var projVelI, projVelJ float64
	for iDim := 0; iDim < nDim; iDim++ {
		projVelI += s.Flow.Velocity(i, iDim) * normal[iDim]
		projVelJ += s.Flow.Velocity(j, iDim) * normal[iDim]
	}
	lambdaI := math.Abs(projVelI) + s.Flow.SoundSpeed(i)*area
	lambdaJ := math.Abs(projVelJ) + s.Flow.SoundSpeed(j)*area
	meanLambda := 0.5 * (lambdaI + lambdaJ)
	phiI := math.Pow(lambdaI/(4*meanLambda+utils.EPS), jstParamP)
	phiJ := math.Pow(lambdaJ/(4*meanLambda+utils.EPS), jstParamP)
	stretch := 4 * phiI * phiJ / (phiI + phiJ + utils.EPS)

	nNeighI := float64(len(s.Mesh.Points[i].Neighbors))
	nNeighJ := float64(len(s.Mesh.Points[j].Neighbors))
	sc2 := 3 * (nNeighI + nNeighJ) / (nNeighI * nNeighJ)
	sc4 := sc2 * sc2 / 4

	eps2 := s.IP.Kappa2nd * 0.5 * (s.Sensor[i] + s.Sensor[j]) * sc2
	eps4 := math.Max(0, s.IP.Kappa4th-eps2) * sc4

	for iVar := 0; iVar < nVar; iVar++ {
		diffPsi := psiI[iVar] - psiJ[iVar]
		diffLapl := s.UndivLapl[i*nVar+iVar] - s.UndivLapl[j*nVar+iVar]
		r := (eps2*diffPsi - eps4*diffLapl) * stretch * meanLambda
		ek.ResViscI[iVar] = -r
		ek.ResViscJ[iVar] = r
	}
	if implicit {
		cte0 := (eps2 + eps4*(nNeighI+1)) * stretch * meanLambda
		cte1 := (eps2 + eps4*(nNeighJ+1)) * stretch * meanLambda
		for iVar := 0; iVar < nVar; iVar++ {
			ek.JacII[iVar][iVar] -= cte0
			ek.JacIJ[iVar][iVar] += cte0
			ek.JacJI[iVar][iVar] += cte1
			ek.JacJJ[iVar][iVar] -= cte1
		}
	}
}

// upwindRoe evaluates the adjoint Roe flux. psiI and psiJ are the possibly
// reconstructed adjoint states at the edge midpoint.
func (s *Solver) upwindRoe(ek *edgeKernel, i, j int, psiI, psiJ []float64,
	normal []float64, implicit bool) {
	s.upwindRoeStates(ek, s.Flow.Solution(i), s.Flow.Solution(j),
		psiI, psiJ, normal, implicit)
}

// upwindRoeStates is the same flux on explicit conservative states, which
// the characteristic boundary conditions use with a ghost state on the
// right side.
func (s *Solver) upwindRoeStates(ek *edgeKernel, uI, uJ, psiI, psiJ []float64,
	normal []float64, implicit bool) {
	var (
		nDim  = ek.nDim
		nVar  = ek.nVar
		gamma = ek.gamma
		gm1   = gamma - 1
	)
	var area float64
	for iDim := 0; iDim < nDim; iDim++ {
		area += normal[iDim] * normal[iDim]
	}
	area = math.Sqrt(area)
	for iDim := 0; iDim < nDim; iDim++ {
		ek.un[iDim] = normal[iDim] / area
	}

	var (
		rhoI = uI[0]
		rhoJ = uJ[0]
		vi   = make([]float64, nDim)
		vj   = make([]float64, nDim)
	)
	var sqVelI, sqVelJ float64
	for iDim := 0; iDim < nDim; iDim++ {
		vi[iDim] = uI[iDim+1] / rhoI
		vj[iDim] = uJ[iDim+1] / rhoJ
		sqVelI += vi[iDim] * vi[iDim]
		sqVelJ += vj[iDim] * vj[iDim]
	}
	ei := uI[nVar-1] / rhoI
	ej := uJ[nVar-1] / rhoJ
	inviscidProjJac(nDim, gamma, vi, ei, normal, 0.5, ek.projJacI)
	inviscidProjJac(nDim, gamma, vj, ej, normal, 0.5, ek.projJacJ)

	// Roe averaged state
	var (
		hI = ei + gm1*(ei-0.5*sqVelI)
		hJ = ej + gm1*(ej-0.5*sqVelJ)
		r  = math.Sqrt(rhoJ / rhoI)
	)
	var roeSqVel float64
	for iDim := 0; iDim < nDim; iDim++ {
		ek.roeVel[iDim] = (r*vj[iDim] + vi[iDim]) / (1 + r)
		roeSqVel += ek.roeVel[iDim] * ek.roeVel[iDim]
	}
	roeH := (r*hJ + hI) / (1 + r)
	roeC := math.Sqrt((gamma - 1) * (roeH - 0.5*roeSqVel))
	roeRho := r * rhoI

	absRoeMatrix(nDim, gamma, roeRho, ek.roeVel, roeC, ek.un, 0.5*area,
		ek.pMat, ek.invPMat, ek.abs)

	for iVar := 0; iVar < nVar; iVar++ {
		ek.meanPsi[iVar] = psiI[iVar] + psiJ[iVar]
		ek.diffPsi[iVar] = psiI[iVar] - psiJ[iVar]
	}
	for iVar := 0; iVar < nVar; iVar++ {
		var resI, resJ float64
		for jVar := 0; jVar < nVar; jVar++ {
			resI += ek.projJacI[jVar][iVar] * ek.meanPsi[jVar]
			resI -= ek.abs[jVar][iVar] * ek.diffPsi[jVar]
			resJ -= ek.projJacJ[jVar][iVar] * ek.meanPsi[jVar]
			resJ += ek.abs[jVar][iVar] * ek.diffPsi[jVar]
		}
		ek.ResConvI[iVar] = resI
		ek.ResConvJ[iVar] = resJ
	}
	if implicit {
		for iVar := 0; iVar < nVar; iVar++ {
			for jVar := 0; jVar < nVar; jVar++ {
				ek.JacII[iVar][jVar] = ek.projJacI[jVar][iVar] - ek.abs[jVar][iVar]
				ek.JacIJ[iVar][jVar] = ek.projJacI[jVar][iVar] + ek.abs[jVar][iVar]
				ek.JacJI[iVar][jVar] = -ek.projJacJ[jVar][iVar] + ek.abs[jVar][iVar]
				ek.JacJJ[iVar][jVar] = -ek.projJacJ[jVar][iVar] - ek.abs[jVar][iVar]
			}
		}
	}
}
