package adjoint

import "github.com/notargets/goadjoint/utils"

// Preprocessing zeroes the residual accumulators and recomputes the spatial
// operators the active scheme needs: gradients and limiters for second
// order upwinding, the sensor and undivided Laplacian for the centered
// scheme, and a clean Jacobian for implicit or discrete updates.
func (s *Solver) Preprocessing(iRKStep int, dissipation bool) {
	var (
		implicit  = s.Time == ImplicitEuler
		upwind2nd = s.Scheme == UpwindRoe2nd
		center    = s.Scheme == CenteredJST
		limiter   = s.IP.Limiter != "none"
	)
	for i := range s.ResConv {
		s.ResConv[i] = 0
		s.ResSour[i] = 0
	}
	if dissipation || implicit {
		for i := range s.ResVisc {
			s.ResVisc[i] = 0
		}
	}
	if upwind2nd {
		if s.IP.GradientMethod == "weighted-least-squares" {
			s.SetSolutionGradientLS()
		} else {
			s.SetSolutionGradientGG()
		}
		if limiter {
			s.SetSolutionLimiter()
			s.ExchangeLimiter()
		}
	}
	if center && (dissipation || implicit) {
		if s.IP.GradientMethod == "weighted-least-squares" {
			s.SetSolutionGradientLS()
		} else {
			s.SetSolutionGradientGG()
		}
		s.SetDissipationSwitch()
		s.SetUndividedLaplacian()
	}
	if implicit || s.Mode == Discrete {
		s.Jacobian.SetZero()
	}
}

func subtractVec(dst, src []float64) {
	for i := range src {
		dst[i] -= src[i]
	}
}

func addVec(dst, src []float64) {
	for i := range src {
		dst[i] += src[i]
	}
}

func (s *Solver) subtractJacobianEdge(i, j int, ek *edgeKernel) {
	s.Jacobian.SubtractBlock(i, i, flatten(ek.JacII))
	s.Jacobian.SubtractBlock(i, j, flatten(ek.JacIJ))
	s.Jacobian.SubtractBlock(j, i, flatten(ek.JacJI))
	s.Jacobian.SubtractBlock(j, j, flatten(ek.JacJJ))
}

func flatten(m [][]float64) []float64 {
	n := len(m)
	out := make([]float64, n*n)
	for i := range m {
		copy(out[i*n:(i+1)*n], m[i])
	}
	return out
}

// CenteredResidual accumulates the centered adjoint flux with JST
// dissipation over all interior edges.
func (s *Solver) CenteredResidual(ek *edgeKernel, iRKStep int, dissipation bool) {
	implicit := s.Time == ImplicitEuler
	for _, edge := range s.Mesh.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]
		s.centeredJST(ek, i, j, edge.Normal, implicit, dissipation || implicit)
		subtractVec(s.ResConv[i*s.NVar:(i+1)*s.NVar], ek.ResConvI)
		subtractVec(s.ResConv[j*s.NVar:(j+1)*s.NVar], ek.ResConvJ)
		if dissipation || implicit {
			subtractVec(s.ResVisc[i*s.NVar:(i+1)*s.NVar], ek.ResViscI)
			subtractVec(s.ResVisc[j*s.NVar:(j+1)*s.NVar], ek.ResViscJ)
		}
		if implicit {
			s.subtractJacobianEdge(i, j, ek)
		}
	}
}

// UpwindResidual accumulates the adjoint Roe flux, with MUSCL
// reconstruction of the adjoint state for the second order scheme. In
// discrete mode the transposed flow Jacobian blocks go straight into the
// matrix and no residual vector is carried.
func (s *Solver) UpwindResidual(ek *edgeKernel) {
	var (
		implicit  = s.Time == ImplicitEuler
		secondOrd = s.Scheme == UpwindRoe2nd && s.Mode != Discrete
		limiter   = s.IP.Limiter != "none"
		nDim      = s.NDim
		nVar      = s.NVar
		psiRecI   = make([]float64, nVar)
		psiRecJ   = make([]float64, nVar)
	)
	for _, edge := range s.Mesh.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]
		psiI, psiJ := s.PsiAt(i), s.PsiAt(j)

		if secondOrd {
			var (
				coordI = s.Mesh.Points[i].Coord
				coordJ = s.Mesh.Points[j].Coord
				gradI  = s.GradientAt(i)
				gradJ  = s.GradientAt(j)
			)
			for iVar := 0; iVar < nVar; iVar++ {
				var projI, projJ float64
				for iDim := 0; iDim < nDim; iDim++ {
					d := 0.5 * (coordJ[iDim] - coordI[iDim])
					projI += d * gradI[iVar*nDim+iDim]
					projJ -= d * gradJ[iVar*nDim+iDim]
				}
				if limiter {
					// one limiter value scales every variable here, the
					// one of component nDim
					psiRecI[iVar] = psiI[iVar] + projI*s.Limiter[i*nVar+nDim]
					psiRecJ[iVar] = psiJ[iVar] + projJ*s.Limiter[j*nVar+nDim]
				} else {
					psiRecI[iVar] = psiI[iVar] + projI
					psiRecJ[iVar] = psiJ[iVar] + projJ
				}
			}
			s.upwindRoe(ek, i, j, psiRecI, psiRecJ, edge.Normal, implicit)
		} else {
			s.upwindRoe(ek, i, j, psiI, psiJ, edge.Normal, implicit || s.Mode == Discrete)
		}

		if s.Mode == Discrete {
			// transpose of the flow Jacobian block positions
			s.Jacobian.AddBlock(i, i, flatten(ek.JacII))
			s.Jacobian.SubtractBlock(i, j, flatten(ek.JacII))
			s.Jacobian.AddBlock(j, i, flatten(ek.JacJJ))
			s.Jacobian.SubtractBlock(j, j, flatten(ek.JacJJ))
			continue
		}
		subtractVec(s.ResConv[i*nVar:(i+1)*nVar], ek.ResConvI)
		subtractVec(s.ResConv[j*nVar:(j+1)*nVar], ek.ResConvJ)
		if implicit {
			s.subtractJacobianEdge(i, j, ek)
		}
	}
}

// SourceResidual adds the volumetric source terms. Each block is enabled
// independently and they accumulate.
func (s *Solver) SourceResidual() {
	var (
		nVar = s.NVar
		res  = make([]float64, nVar)
	)
	if s.IP.RotatingFrame {
		for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
			s.rotatingFrameSource(iPoint, res)
			addVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
		}
	}
	if s.IP.TimeSpectral && s.TimeSpectralSource != nil {
		for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
			vol := s.Mesh.Points[iPoint].Volume
			for iVar := 0; iVar < nVar; iVar++ {
				res[iVar] = s.TimeSpectralSource[iPoint*nVar+iVar] * vol
			}
			addVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
		}
	}
	if s.IP.Axisymmetric {
		implicit := s.Time == ImplicitEuler
		jac := newSquare(nVar)
		for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
			s.axisymmetricSource(iPoint, res, jac, implicit)
			addVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
			if implicit {
				s.Jacobian.AddBlock(iPoint, iPoint, flatten(jac))
			}
		}
	}
	if s.IP.Objective == "free-surface" && s.FreeSurfaceCoeff != nil {
		for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
			vol := s.Mesh.Points[iPoint].Volume
			coeff := s.FreeSurfaceCoeff[iPoint]
			res[0] = 0
			for iVar := 1; iVar < nVar; iVar++ {
				res[iVar] = coeff * s.FreeSurfaceGrad[iPoint*s.NDim+iVar-1] * vol
			}
			addVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
		}
	}
}

// rotatingFrameSource is the transposed Coriolis term applied to the
// adjoint momentum.
func (s *Solver) rotatingFrameSource(iPoint int, res []float64) {
	var (
		psi = s.PsiAt(iPoint)
		vol = s.Mesh.Points[iPoint].Volume
		w   = s.IP.RotationOmega
	)
	for i := range res {
		res[i] = 0
	}
	if s.NDim == 2 {
		var wz float64
		if len(w) > 2 {
			wz = w[2]
		} else if len(w) > 0 {
			wz = w[len(w)-1]
		}
		res[1] = wz * psi[2] * vol
		res[2] = -wz * psi[1] * vol
		return
	}
	res[1] = (w[1]*psi[3] - w[2]*psi[2]) * vol
	res[2] = (w[2]*psi[1] - w[0]*psi[3]) * vol
	res[3] = (w[0]*psi[2] - w[1]*psi[1]) * vol
}

// axisymmetricSource contracts the transposed Jacobian of the primal
// axisymmetric source with the adjoint state.
func (s *Solver) axisymmetricSource(iPoint int, res []float64, jac [][]float64, implicit bool) {
	var (
		nVar  = s.NVar
		gamma = s.FS.Gamma
		gm1   = gamma - 1
		y     = s.Mesh.Points[iPoint].Coord[1]
		vol   = s.Mesh.Points[iPoint].Volume
		psi   = s.PsiAt(iPoint)
	)
	for i := range res {
		res[i] = 0
	}
	zeroSquare(jac)
	if y <= utils.EPS {
		return
	}
	var (
		yinv  = 1.0 / y
		u     = s.Flow.Velocity(iPoint, 0)
		v     = s.Flow.Velocity(iPoint, 1)
		h     = s.Flow.Enthalpy(iPoint)
		sqVel = u*u + v*v
	)
	// J = d/dU of the primal source -(1/y)(rho v, rho u v, rho v^2, rho v H)
	var J [4][4]float64
	J[0][2] = 1
	J[1][0], J[1][1], J[1][2] = -u*v, v, u
	J[2][0], J[2][2] = -v*v, 2*v
	J[3][0] = -v*h + v*gm1*0.5*sqVel
	J[3][1] = -gm1 * u * v
	J[3][2] = h - gm1*v*v
	J[3][3] = gamma * v
	for iVar := 0; iVar < nVar; iVar++ {
		for jVar := 0; jVar < nVar; jVar++ {
			J[iVar][jVar] *= -yinv
		}
	}
	// adjoint source is J^T Psi scaled by the volume
	for iVar := 0; iVar < nVar; iVar++ {
		for jVar := 0; jVar < nVar; jVar++ {
			res[iVar] += J[jVar][iVar] * psi[jVar] * vol
			if implicit {
				jac[iVar][jVar] = J[jVar][iVar] * vol
			}
		}
	}
}
