package adjoint

import (
	"math"

	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

// SetSolutionGradientGG computes the adjoint solution gradient with the
// Green-Gauss theorem over the dual control volumes.
func (s *Solver) SetSolutionGradientGG() {
	var (
		nDim = s.NDim
		nVar = s.NVar
	)
	for i := range s.Gradient {
		s.Gradient[i] = 0
	}
	for _, edge := range s.Mesh.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]
		psiI, psiJ := s.PsiAt(i), s.PsiAt(j)
		for iVar := 0; iVar < nVar; iVar++ {
			mean := 0.5 * (psiI[iVar] + psiJ[iVar])
			for iDim := 0; iDim < nDim; iDim++ {
				flux := mean * edge.Normal[iDim]
				s.Gradient[(i*nVar+iVar)*nDim+iDim] += flux
				s.Gradient[(j*nVar+iVar)*nDim+iDim] -= flux
			}
		}
	}
	for _, marker := range s.Mesh.Markers {
		if marker.SendRecv != 0 {
			continue
		}
		for _, vtx := range marker.Vertices {
			i := vtx.Node
			psi := s.PsiAt(i)
			for iVar := 0; iVar < nVar; iVar++ {
				for iDim := 0; iDim < nDim; iDim++ {
					// vertex normals point out of the domain
					s.Gradient[(i*nVar+iVar)*nDim+iDim] += psi[iVar] * vtx.Normal[iDim]
				}
			}
		}
	}
	for i := 0; i < s.NPoint; i++ {
		vol := s.Mesh.Points[i].Volume + utils.EPS
		for k := 0; k < nVar*nDim; k++ {
			s.Gradient[i*nVar*nDim+k] /= vol
		}
	}
}

// SetSolutionGradientLS computes the gradient with an inverse-distance
// weighted least squares fit over the point neighbors, using the closed
// form inverse of the normal-equations matrix.
func (s *Solver) SetSolutionGradientLS() {
	var (
		nDim = s.NDim
		nVar = s.NVar
		cVec = make([]float64, nVar*nDim)
	)
	for iPoint := 0; iPoint < s.NPoint; iPoint++ {
		var (
			coordI                       = s.Mesh.Points[iPoint].Coord
			psiI                         = s.PsiAt(iPoint)
			r11, r12, r22, r13, r23, r33 float64
		)
		for k := range cVec {
			cVec[k] = 0
		}
		for _, jPoint := range s.Mesh.Points[iPoint].Neighbors {
			coordJ := s.Mesh.Points[jPoint].Coord
			psiJ := s.PsiAt(jPoint)
			var weight float64
			for iDim := 0; iDim < nDim; iDim++ {
				d := coordJ[iDim] - coordI[iDim]
				weight += d * d
			}
			r11 += (coordJ[0] - coordI[0]) * (coordJ[0] - coordI[0]) / weight
			r12 += (coordJ[0] - coordI[0]) * (coordJ[1] - coordI[1]) / weight
			r22 += (coordJ[1] - coordI[1]) * (coordJ[1] - coordI[1]) / weight
			if nDim == 3 {
				r13 += (coordJ[0] - coordI[0]) * (coordJ[2] - coordI[2]) / weight
				r23 += (coordJ[1] - coordI[1]) * (coordJ[2] - coordI[2]) / weight
				r33 += (coordJ[2] - coordI[2]) * (coordJ[2] - coordI[2]) / weight
			}
			for iVar := 0; iVar < nVar; iVar++ {
				dPsi := psiJ[iVar] - psiI[iVar]
				for iDim := 0; iDim < nDim; iDim++ {
					cVec[iVar*nDim+iDim] += (coordJ[iDim] - coordI[iDim]) * dPsi / weight
				}
			}
		}
		var smat [3][3]float64
		if nDim == 2 {
			det := r11*r22 - r12*r12 + utils.EPS
			smat[0][0] = r22 / det
			smat[0][1] = -r12 / det
			smat[1][0] = -r12 / det
			smat[1][1] = r11 / det
		} else {
			det := r11*(r22*r33-r23*r23) - r12*(r12*r33-r23*r13) +
				r13*(r12*r23-r22*r13) + utils.EPS
			smat[0][0] = (r22*r33 - r23*r23) / det
			smat[0][1] = (r13*r23 - r12*r33) / det
			smat[0][2] = (r12*r23 - r13*r22) / det
			smat[1][0] = smat[0][1]
			smat[1][1] = (r11*r33 - r13*r13) / det
			smat[1][2] = (r12*r13 - r11*r23) / det
			smat[2][0] = smat[0][2]
			smat[2][1] = smat[1][2]
			smat[2][2] = (r11*r22 - r12*r12) / det
		}
		for iVar := 0; iVar < nVar; iVar++ {
			for iDim := 0; iDim < nDim; iDim++ {
				var g float64
				for jDim := 0; jDim < nDim; jDim++ {
					g += smat[iDim][jDim] * cVec[iVar*nDim+jDim]
				}
				s.Gradient[(iPoint*nVar+iVar)*nDim+iDim] = g
			}
		}
	}
}

// SetSolutionLimiter fills the limiter field using the neighbor min/max
// spread of the adjoint solution.
func (s *Solver) SetSolutionLimiter() {
	var (
		nDim = s.NDim
		nVar = s.NVar
	)
	for iPoint := 0; iPoint < s.NPoint; iPoint++ {
		psi := s.PsiAt(iPoint)
		for iVar := 0; iVar < nVar; iVar++ {
			s.SolMin[iPoint*nVar+iVar] = psi[iVar]
			s.SolMax[iPoint*nVar+iVar] = psi[iVar]
			s.Limiter[iPoint*nVar+iVar] = 1
		}
	}
	for _, edge := range s.Mesh.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]
		psiI, psiJ := s.PsiAt(i), s.PsiAt(j)
		for iVar := 0; iVar < nVar; iVar++ {
			s.SolMin[i*nVar+iVar] = math.Min(s.SolMin[i*nVar+iVar], psiJ[iVar])
			s.SolMax[i*nVar+iVar] = math.Max(s.SolMax[i*nVar+iVar], psiJ[iVar])
			s.SolMin[j*nVar+iVar] = math.Min(s.SolMin[j*nVar+iVar], psiI[iVar])
			s.SolMax[j*nVar+iVar] = math.Max(s.SolMax[j*nVar+iVar], psiI[iVar])
		}
	}
	venkat := s.IP.Limiter == "venkatakrishnan"
	for _, edge := range s.Mesh.Edges {
		for side := 0; side < 2; side++ {
			iPoint := edge.Nodes[side]
			jPoint := edge.Nodes[1-side]
			var (
				coordI = s.Mesh.Points[iPoint].Coord
				coordJ = s.Mesh.Points[jPoint].Coord
				grad   = s.GradientAt(iPoint)
			)
			for iVar := 0; iVar < nVar; iVar++ {
				var dm float64
				for iDim := 0; iDim < nDim; iDim++ {
					dm += 0.5 * (coordJ[iDim] - coordI[iDim]) * grad[iVar*nDim+iDim]
				}
				var dp float64
				if dm > 0 {
					dp = s.SolMax[iPoint*nVar+iVar] - s.Psi[iPoint*nVar+iVar]
				} else {
					dp = s.SolMin[iPoint*nVar+iVar] - s.Psi[iPoint*nVar+iVar]
				}
				var lim float64
				if venkat {
					var dist float64
					for iDim := 0; iDim < nDim; iDim++ {
						d := coordJ[iDim] - coordI[iDim]
						dist += d * d
					}
					eps2 := math.Pow(s.IP.LimiterCoeff*math.Sqrt(dist), 3)
					lim = (dp*dp + 2*dp*dm + eps2) / (dp*dp + dp*dm + 2*dm*dm + eps2)
				} else {
					// minmod
					lim = 1.0
					if dm != 0 {
						lim = math.Max(0, math.Min(1, dp/dm))
					}
				}
				if lim < s.Limiter[iPoint*nVar+iVar] {
					s.Limiter[iPoint*nVar+iVar] = lim
				}
			}
		}
	}
}

// SetAuxVarSurfaceGradient computes a least squares surface gradient of a
// scalar field, restricted to the solid wall markers. The sensitivity
// engine uses it to differentiate conspsi along the surface.
func (s *Solver) SetAuxVarSurfaceGradient(aux []float64, auxGrad []float64) {
	nDim := s.NDim
	for _, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_EulerWall && marker.Kind != types.BC_NSWall {
			continue
		}
		for _, vtx := range marker.Vertices {
			iPoint := vtx.Node
			var (
				coordI                       = s.Mesh.Points[iPoint].Coord
				r11, r12, r22, r13, r23, r33 float64
				cVec                         [3]float64
			)
			for _, jPoint := range s.Mesh.Points[iPoint].Neighbors {
				coordJ := s.Mesh.Points[jPoint].Coord
				var weight float64
				for iDim := 0; iDim < nDim; iDim++ {
					d := coordJ[iDim] - coordI[iDim]
					weight += d * d
				}
				r11 += (coordJ[0] - coordI[0]) * (coordJ[0] - coordI[0]) / weight
				r12 += (coordJ[0] - coordI[0]) * (coordJ[1] - coordI[1]) / weight
				r22 += (coordJ[1] - coordI[1]) * (coordJ[1] - coordI[1]) / weight
				if nDim == 3 {
					r13 += (coordJ[0] - coordI[0]) * (coordJ[2] - coordI[2]) / weight
					r23 += (coordJ[1] - coordI[1]) * (coordJ[2] - coordI[2]) / weight
					r33 += (coordJ[2] - coordI[2]) * (coordJ[2] - coordI[2]) / weight
				}
				dAux := aux[jPoint] - aux[iPoint]
				for iDim := 0; iDim < nDim; iDim++ {
					cVec[iDim] += (coordJ[iDim] - coordI[iDim]) * dAux / weight
				}
			}
			var smat [3][3]float64
			if nDim == 2 {
				det := r11*r22 - r12*r12 + utils.EPS
				smat[0][0], smat[0][1] = r22/det, -r12/det
				smat[1][0], smat[1][1] = -r12/det, r11/det
			} else {
				det := r11*(r22*r33-r23*r23) - r12*(r12*r33-r23*r13) +
					r13*(r12*r23-r22*r13) + utils.EPS
				smat[0][0] = (r22*r33 - r23*r23) / det
				smat[0][1] = (r13*r23 - r12*r33) / det
				smat[0][2] = (r12*r23 - r13*r22) / det
				smat[1][0] = smat[0][1]
				smat[1][1] = (r11*r33 - r13*r13) / det
				smat[1][2] = (r12*r13 - r11*r23) / det
				smat[2][0] = smat[0][2]
				smat[2][1] = smat[1][2]
				smat[2][2] = (r11*r22 - r12*r12) / det
			}
			for iDim := 0; iDim < nDim; iDim++ {
				var g float64
				for jDim := 0; jDim < nDim; jDim++ {
					g += smat[iDim][jDim] * cVec[jDim]
				}
				auxGrad[iPoint*nDim+iDim] = g
			}
		}
	}
}
