package adjoint

import (
	"github.com/notargets/goadjoint/utils"
)

// viscousAdjFlux projects the adjoint stress tensor of one edge side onto
// the face normal. The flux is linear in the adjoint gradients, which lets
// the implicit blocks reuse it with basis gradients.
func (s *Solver) viscousAdjFlux(vel []float64, density, pressure, viscDens,
	xiDens float64, gradPhi [][]float64, gradPsiE, normal, res []float64) {
	var (
		nDim = s.NDim
		nVar = s.NVar
		gm1  = s.FS.Gamma - 1
		eta  = newSquare(nDim)
	)
	var divPhi, velGradPsiE, sqVel float64
	for iDim := 0; iDim < nDim; iDim++ {
		divPhi += gradPhi[iDim][iDim]
		velGradPsiE += vel[iDim] * gradPsiE[iDim]
		sqVel += 0.5 * vel[iDim] * vel[iDim]
	}
	for iDim := 0; iDim < nDim; iDim++ {
		for jDim := 0; jDim < nDim; jDim++ {
			eta[iDim][jDim] = viscDens*(gradPhi[iDim][jDim]+gradPhi[jDim][iDim]) +
				viscDens*(vel[jDim]*gradPsiE[iDim]+vel[iDim]*gradPsiE[jDim])
		}
		eta[iDim][iDim] -= two3 * viscDens * (divPhi + velGradPsiE)
	}
	var sigma5 float64
	for iDim := 0; iDim < nDim; iDim++ {
		sigma5 += xiDens * gradPsiE[iDim] * normal[iDim]
	}

	res[0] = (sqVel - pressure/(density*gm1)) * sigma5
	for iDim := 0; iDim < nDim; iDim++ {
		for jDim := 0; jDim < nDim; jDim++ {
			res[0] -= vel[iDim] * eta[iDim][jDim] * normal[jDim]
		}
	}
	for iDim := 0; iDim < nDim; iDim++ {
		res[iDim+1] = -vel[iDim] * sigma5
		for jDim := 0; jDim < nDim; jDim++ {
			res[iDim+1] += eta[iDim][jDim] * normal[jDim]
		}
	}
	res[nVar-1] = sigma5
}

// ViscousResidual accumulates the non-conservative viscous adjoint flux
// over the interior edges with averaged adjoint gradients. The implicit
// blocks use a thin shear layer approximation where the gradient responds
// to the adjoint difference along the edge.
func (s *Solver) ViscousResidual(dissipation bool) {
	if !dissipation {
		return
	}
	var (
		nDim      = s.NDim
		nVar      = s.NVar
		implicit  = s.Time == ImplicitEuler
		gamma     = s.FS.Gamma
		prandtl   = s.IP.Prandtl
		gradPhi   = newSquare(nDim)
		gradPsiE  = make([]float64, nDim)
		basisPhi  = newSquare(nDim)
		basisPsiE = make([]float64, nDim)
		edgeVec   = make([]float64, nDim)
		resI      = make([]float64, nVar)
		resJ      = make([]float64, nVar)
		col       = make([]float64, nVar)
		jacII     = newSquare(nVar)
		jacIJ     = newSquare(nVar)
		jacJI     = newSquare(nVar)
		jacJJ     = newSquare(nVar)
		velI      = make([]float64, nDim)
		velJ      = make([]float64, nDim)
	)
	for _, edge := range s.Mesh.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]

		var dist2 float64
		for iDim := 0; iDim < nDim; iDim++ {
			edgeVec[iDim] = s.Mesh.Points[j].Coord[iDim] - s.Mesh.Points[i].Coord[iDim]
			dist2 += edgeVec[iDim] * edgeVec[iDim]
		}
		dist2 += utils.EPS

		gradI, gradJ := s.GradientAt(i), s.GradientAt(j)
		for iDim := 0; iDim < nDim; iDim++ {
			gradPsiE[iDim] = 0.5 * (gradI[(nVar-1)*nDim+iDim] + gradJ[(nVar-1)*nDim+iDim])
			for jDim := 0; jDim < nDim; jDim++ {
				gradPhi[iDim][jDim] = 0.5 * (gradI[(iDim+1)*nDim+jDim] + gradJ[(iDim+1)*nDim+jDim])
			}
		}

		var (
			rhoI  = s.Flow.Density(i)
			rhoJ  = s.Flow.Density(j)
			pI    = s.Flow.Pressure(i)
			pJ    = s.Flow.Pressure(j)
			viscI = (s.Flow.LamVisc[i] + s.Flow.EddyVisc[i]) / rhoI
			viscJ = (s.Flow.LamVisc[j] + s.Flow.EddyVisc[j]) / rhoJ
			xiI   = gamma * (s.Flow.LamVisc[i]/prandtl + s.Flow.EddyVisc[i]/prandtlTurb) / rhoI
			xiJ   = gamma * (s.Flow.LamVisc[j]/prandtl + s.Flow.EddyVisc[j]/prandtlTurb) / rhoJ
		)
		for iDim := 0; iDim < nDim; iDim++ {
			velI[iDim] = s.Flow.Velocity(i, iDim)
			velJ[iDim] = s.Flow.Velocity(j, iDim)
		}

		s.viscousAdjFlux(velI, rhoI, pI, viscI, xiI, gradPhi, gradPsiE, edge.Normal, resI)
		s.viscousAdjFlux(velJ, rhoJ, pJ, viscJ, xiJ, gradPhi, gradPsiE, edge.Normal, resJ)

		subtractVec(s.ResVisc[i*nVar:(i+1)*nVar], resI)
		addVec(s.ResVisc[j*nVar:(j+1)*nVar], resJ)

		if implicit {
			// gradient response to a unit change of one adjoint variable
			// at the j end of the edge; the i end enters with flipped sign
			for jVar := 0; jVar < nVar; jVar++ {
				zeroSquare(basisPhi)
				for iDim := 0; iDim < nDim; iDim++ {
					basisPsiE[iDim] = 0
				}
				if jVar >= 1 && jVar < nVar-1 {
					for iDim := 0; iDim < nDim; iDim++ {
						basisPhi[jVar-1][iDim] = edgeVec[iDim] / dist2
					}
				}
				if jVar == nVar-1 {
					for iDim := 0; iDim < nDim; iDim++ {
						basisPsiE[iDim] = edgeVec[iDim] / dist2
					}
				}

				s.viscousAdjFlux(velI, rhoI, pI, viscI, xiI, basisPhi, basisPsiE, edge.Normal, col)
				for iVar := 0; iVar < nVar; iVar++ {
					jacIJ[iVar][jVar] = col[iVar]
					jacII[iVar][jVar] = -col[iVar]
				}
				s.viscousAdjFlux(velJ, rhoJ, pJ, viscJ, xiJ, basisPhi, basisPsiE, edge.Normal, col)
				for iVar := 0; iVar < nVar; iVar++ {
					jacJJ[iVar][jVar] = col[iVar]
					jacJI[iVar][jVar] = -col[iVar]
				}
			}
			s.Jacobian.SubtractBlock(i, i, flatten(jacII))
			s.Jacobian.SubtractBlock(i, j, flatten(jacIJ))
			s.Jacobian.AddBlock(j, i, flatten(jacJI))
			s.Jacobian.AddBlock(j, j, flatten(jacJJ))
		}
	}
}

// ViscousSourceResidual adds the volumetric source of the viscous adjoint
// equations, built from the frozen flow gradients and the adjoint
// gradients at each interior point.
func (s *Solver) ViscousSourceResidual() {
	var (
		nDim       = s.NDim
		nVar       = s.NVar
		gamma      = s.FS.Gamma
		gm1        = gamma - 1
		gasConst   = s.FS.GasConstant
		prandtl    = s.IP.Prandtl
		res        = make([]float64, nVar)
		vel        = make([]float64, nDim)
		gradRho    = make([]float64, nDim)
		gradInvRho = make([]float64, nDim)
		dPoRho2    = make([]float64, nDim)
		alpha      = make([]float64, nDim)
		beta       = make([]float64, nDim)
		sigma      = newSquare(nDim)
		bigSigma   = newSquare(nDim)
		dVelORho   = newSquare(nDim)
	)
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		var (
			density  = s.Flow.Density(iPoint)
			pressure = s.Flow.Pressure(iPoint)
			muTot1   = s.Flow.LamVisc[iPoint] + s.Flow.EddyVisc[iPoint]
			muTot2   = s.Flow.LamVisc[iPoint]/prandtl + s.Flow.EddyVisc[iPoint]/prandtlTurb
			invRho   = 1 / density
			invRho2  = invRho * invRho
			invRho3  = invRho2 * invRho
			volume   = s.Mesh.Points[iPoint].Volume
			grad     = s.GradientAt(iPoint)
			temp     = s.Flow.Temperature(iPoint)
		)
		var sqVel float64
		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] = s.Flow.Velocity(iPoint, iDim)
			sqVel += vel[iDim] * vel[iDim]
		}

		// the density gradient follows from the pressure and temperature
		// gradients through the gas law
		for iDim := 0; iDim < nDim; iDim++ {
			var (
				gradT = s.Flow.PrimGradient(iPoint, 0, iDim)
				gradP = s.Flow.PrimGradient(iPoint, nDim+1, iDim)
			)
			gradRho[iDim] = (gradP - density*gasConst*gradT) / (gasConst * temp)
			gradInvRho[iDim] = -gradRho[iDim] * invRho2
			dPoRho2[iDim] = (gradP*density - 2*gradRho[iDim]*pressure) * invRho3
			alpha[iDim] = gamma * muTot2 * gradInvRho[iDim]
			beta[iDim] = gamma / gm1 * muTot2 * dPoRho2[iDim]
		}

		var divVel, divPhi, velGradPsiE float64
		for iDim := 0; iDim < nDim; iDim++ {
			divVel += s.Flow.PrimGradient(iPoint, iDim+1, iDim)
			divPhi += grad[(iDim+1)*nDim+iDim]
			velGradPsiE += vel[iDim] * grad[(nVar-1)*nDim+iDim]
		}
		for iDim := 0; iDim < nDim; iDim++ {
			for jDim := 0; jDim < nDim; jDim++ {
				var (
					dVij = s.Flow.PrimGradient(iPoint, iDim+1, jDim)
					dVji = s.Flow.PrimGradient(iPoint, jDim+1, iDim)
				)
				sigma[iDim][jDim] = muTot1 * (dVij + dVji)
				bigSigma[iDim][jDim] = muTot1*(grad[(iDim+1)*nDim+jDim]+grad[(jDim+1)*nDim+iDim]) +
					muTot1*(vel[jDim]*grad[(nVar-1)*nDim+iDim]+vel[iDim]*grad[(nVar-1)*nDim+jDim])
				dVelORho[iDim][jDim] = (dVij*density - vel[iDim]*gradRho[jDim]) * invRho2
			}
			sigma[iDim][iDim] -= two3 * muTot1 * divVel
			bigSigma[iDim][iDim] -= two3 * muTot1 * (divPhi + velGradPsiE)
		}

		var velSigmaGradPsiE, alphaGradPsiE, betaGradPsiE float64
		for iDim := 0; iDim < nDim; iDim++ {
			alphaGradPsiE += alpha[iDim] * grad[(nVar-1)*nDim+iDim]
			betaGradPsiE += beta[iDim] * grad[(nVar-1)*nDim+iDim]
			for jDim := 0; jDim < nDim; jDim++ {
				velSigmaGradPsiE += vel[iDim] * sigma[iDim][jDim] * grad[(nVar-1)*nDim+jDim]
			}
		}

		res[0] = -velSigmaGradPsiE*invRho + 0.5*sqVel*alphaGradPsiE - betaGradPsiE
		for iDim := 0; iDim < nDim; iDim++ {
			for jDim := 0; jDim < nDim; jDim++ {
				res[0] -= bigSigma[iDim][jDim] * dVelORho[iDim][jDim]
			}
		}
		for iDim := 0; iDim < nDim; iDim++ {
			res[iDim+1] = -vel[iDim] * alphaGradPsiE
			for jDim := 0; jDim < nDim; jDim++ {
				res[iDim+1] += bigSigma[iDim][jDim] * gradInvRho[jDim]
			}
		}
		res[nVar-1] = alphaGradPsiE

		for iVar := 0; iVar < nVar; iVar++ {
			s.ResConv[iPoint*nVar+iVar] += res[iVar] * volume
		}
	}
}

// BCNSWall imposes the adjoint no slip condition strongly: the momentum
// adjoint equals the force projection vector and its rows leave the
// system. The energy equation keeps a weak convective contribution, and
// the adjoint heat flux term drops out while the viscosity is frozen with
// respect to temperature.
func (s *Solver) BCNSWall(iMarker int) {
	var (
		nDim     = s.NDim
		nVar     = s.NVar
		gamma    = s.FS.Gamma
		gm1      = gamma - 1
		cp       = (gamma / gm1) * s.FS.GasConstant
		implicit = s.Time == ImplicitEuler
		normal   = make([]float64, nDim)
		tau      = newSquare(nDim)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		for iDim := 0; iDim < nDim; iDim++ {
			normal[iDim] = -vertex.Normal[iDim]
		}
		d := s.ForceProjAt(iPoint)

		for iDim := 0; iDim < nDim; iDim++ {
			s.PsiOld[iPoint*nVar+iDim+1] = d[iDim]
			s.ResConv[iPoint*nVar+iDim+1] = 0
			s.ResVisc[iPoint*nVar+iDim+1] = 0
			s.TruncError[iPoint*nVar+iDim+1] = 0
		}

		// keep the first implicit sweep from seeing an exactly zero row
		if s.ExtIter == 0 {
			for iVar := 0; iVar < nVar; iVar++ {
				s.ResConv[iPoint*nVar+iVar] += utils.EPS
			}
		}

		if implicit {
			for iVar := 1; iVar <= nDim; iVar++ {
				s.Jacobian.DeleteRow(iPoint, iVar)
			}
		}

		if s.IP.Incompressible {
			continue
		}

		var l1psi float64
		for iDim := 0; iDim < nDim; iDim++ {
			l1psi += normal[iDim] * d[iDim]
		}
		s.ResConv[iPoint*nVar+nVar-1] += l1psi * gm1

		grad := s.GradientAt(iPoint)
		var divPhi float64
		for iDim := 0; iDim < nDim; iDim++ {
			divPhi += grad[(iDim+1)*nDim+iDim]
			for jDim := 0; jDim < nDim; jDim++ {
				tau[iDim][jDim] = grad[(iDim+1)*nDim+jDim] + grad[(jDim+1)*nDim+iDim]
			}
		}
		for iDim := 0; iDim < nDim; iDim++ {
			tau[iDim][iDim] -= two3 * divPhi
		}

		var forceStress float64
		for iDim := 0; iDim < nDim; iDim++ {
			for jDim := 0; jDim < nDim; jDim++ {
				forceStress += normal[iDim] * tau[iDim][jDim] * d[jDim]
			}
		}

		// derivative of the viscosity with temperature, zero while the
		// linearization freezes the Sutherland law
		dViscT := 0.0
		sigma5 := (gamma / cp) * dViscT * forceStress

		var (
			rho      = s.Flow.Density(iPoint)
			pressure = s.Flow.Pressure(iPoint)
		)
		s.ResVisc[iPoint*nVar] += pressure * sigma5 / (gm1 * rho * rho)
		s.ResVisc[iPoint*nVar+nVar-1] -= sigma5 / rho
	}
}
