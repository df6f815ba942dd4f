package adjoint

import "math"

// SetUndividedLaplacian accumulates the undivided Laplacian of the adjoint
// solution per point. Edges joining an interior point and a boundary point
// only contribute on the interior side, so that the boundary stencil is not
// polluted by one-sided differences.
func (s *Solver) SetUndividedLaplacian() {
	var (
		nVar = s.NVar
		diff = make([]float64, nVar)
	)
	for i := 0; i < s.NPointDomain*nVar; i++ {
		s.UndivLapl[i] = 0
	}
	for _, edge := range s.Mesh.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]
		psiI, psiJ := s.PsiAt(i), s.PsiAt(j)
		for iVar := 0; iVar < nVar; iVar++ {
			diff[iVar] = psiI[iVar] - psiJ[iVar]
		}
		boundaryI := s.Mesh.Points[i].Boundary
		boundaryJ := s.Mesh.Points[j].Boundary

		// both interior or both on the boundary
		if boundaryI == boundaryJ {
			if s.Mesh.Points[i].Domain {
				for iVar := 0; iVar < nVar; iVar++ {
					s.UndivLapl[i*nVar+iVar] -= diff[iVar]
				}
			}
			if s.Mesh.Points[j].Domain {
				for iVar := 0; iVar < nVar; iVar++ {
					s.UndivLapl[j*nVar+iVar] += diff[iVar]
				}
			}
		} else if !boundaryI && s.Mesh.Points[i].Domain {
			for iVar := 0; iVar < nVar; iVar++ {
				s.UndivLapl[i*nVar+iVar] -= diff[iVar]
			}
		} else if !boundaryJ && s.Mesh.Points[j].Domain {
			for iVar := 0; iVar < nVar; iVar++ {
				s.UndivLapl[j*nVar+iVar] += diff[iVar]
			}
		}
	}
	s.ExchangeUndividedLaplacian()
}

// SetDissipationSwitch computes the sensor blending second and fourth order
// dissipation, a Venkatakrishnan style limiter of the first adjoint
// variable over the neighbor spread.
func (s *Solver) SetDissipationSwitch() {
	var (
		nDim = s.NDim
		nVar = s.NVar
		dx   = 0.1
		limK = 0.03
		eps2 = math.Pow(limK*dx, 3)
	)
	for iPoint := 0; iPoint < s.NPoint; iPoint++ {
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		var (
			psiI   = s.Psi[iPoint*nVar]
			coordI = s.Mesh.Points[iPoint].Coord
			grad   = s.GradientAt(iPoint)
		)
		duMax, duMin := 1.0e-8, -1.0e-8
		for _, jPoint := range s.Mesh.Points[iPoint].Neighbors {
			d := s.Psi[jPoint*nVar] - psiI
			duMax = math.Max(duMax, d)
			duMin = math.Min(duMin, d)
		}
		rU := 1.0
		for _, jPoint := range s.Mesh.Points[iPoint].Neighbors {
			coordJ := s.Mesh.Points[jPoint].Coord
			uIJ := psiI
			for iDim := 0; iDim < nDim; iDim++ {
				uIJ += 0.5 * (coordJ[iDim] - coordI[iDim]) * grad[iDim]
			}
			dp := duMin
			if uIJ-psiI >= 0 {
				dp = duMax
			}
			dm := uIJ - psiI
			rUIJ := (dp*dp + 2*dm*dp + eps2) / (dp*dp + 2*dm*dm + dm*dp + eps2)
			rU = math.Min(rU, rUIJ)
		}
		s.Sensor[iPoint] = 1 - rU
	}
	s.ExchangeSensor()
}
