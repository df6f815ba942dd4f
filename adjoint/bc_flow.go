package adjoint

import (
	"math"
)

// bcParam looks up a named scalar for a boundary marker, falling back to
// def when the configuration does not carry it.
func (s *Solver) bcParam(label, name string, def float64) float64 {
	groups, ok := s.IP.BCs[label]
	if !ok {
		return def
	}
	for _, params := range groups {
		if v, ok := params[name]; ok {
			return v
		}
	}
	return def
}

// incUpwindFlux is the adjoint boundary flux of the artificial
// compressibility system, a transposed projected Jacobian with scalar
// upwind dissipation.
func (s *Solver) incUpwindFlux(iPoint int, res []float64, jac [][]float64, uI, psiI, psiJ,
	normal []float64, implicit bool) {
	var (
		nDim       = s.NDim
		nVar       = s.NVar
		densityInc = s.Flow.DensityInc[iPoint]
		betaInc2   = s.Flow.BetaInc2[iPoint]
		a          = newSquare(nVar)
	)
	var area2, projVel float64
	for iDim := 0; iDim < nDim; iDim++ {
		area2 += normal[iDim] * normal[iDim]
		projVel += uI[iDim+1] / densityInc * normal[iDim]
	}
	for iDim := 0; iDim < nDim; iDim++ {
		vel := uI[iDim+1] / densityInc
		a[0][iDim+1] = betaInc2 * normal[iDim]
		a[iDim+1][0] = normal[iDim]
		for jDim := 0; jDim < nDim; jDim++ {
			a[iDim+1][jDim+1] = vel * normal[jDim]
		}
		a[iDim+1][iDim+1] += projVel
	}
	lambda := math.Abs(projVel) + math.Sqrt(projVel*projVel+betaInc2*area2)
	for iVar := 0; iVar < nVar; iVar++ {
		var r float64
		for jVar := 0; jVar < nVar; jVar++ {
			r += a[jVar][iVar] * 0.5 * (psiI[jVar] + psiJ[jVar])
		}
		res[iVar] = r - 0.5*lambda*(psiI[iVar]-psiJ[iVar])
	}
	if implicit {
		for iVar := 0; iVar < nVar; iVar++ {
			for jVar := 0; jVar < nVar; jVar++ {
				jac[iVar][jVar] = 0.5 * a[jVar][iVar]
			}
			jac[iVar][iVar] -= 0.5 * lambda
		}
	}
}

// BCFarField zeroes the adjoint ghost state, so the objective enters only
// through boundary terms elsewhere, and upwinds against the free-stream
// flow state.
func (s *Solver) BCFarField(ek *edgeKernel, iMarker int) {
	var (
		nDim     = s.NDim
		nVar     = s.NVar
		implicit = s.Time == ImplicitEuler
		normal   = make([]float64, nDim)
		uInfty   = make([]float64, nVar)
		psiInfty = make([]float64, nVar)
		jac      = newSquare(nVar)
	)
	if s.IP.Incompressible {
		uInfty[0] = s.FS.Pinf
		for iDim := 0; iDim < nDim; iDim++ {
			uInfty[iDim+1] = s.FS.Velocity[iDim] * s.FS.RefDensity
		}
	} else {
		copy(uInfty, s.FS.Uinf)
	}
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		copy(normal, vertex.Normal)

		if s.IP.Incompressible {
			res := make([]float64, nVar)
			s.incUpwindFlux(iPoint, res, jac, s.Flow.Solution(iPoint),
				s.PsiAt(iPoint), psiInfty, normal, implicit)
			subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
			if implicit {
				s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(jac))
			}
			continue
		}

		if s.Mode == Discrete {
			s.upwindRoeStates(ek, s.Flow.Solution(iPoint), uInfty,
				s.PsiAt(iPoint), psiInfty, normal, true)
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(ek.JacII))
			continue
		}

		s.upwindRoeStates(ek, s.Flow.Solution(iPoint), uInfty,
			s.PsiAt(iPoint), psiInfty, normal, implicit)
		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], ek.ResConvI)
		if implicit {
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(ek.JacII))
		}
	}
}

// BCInlet builds a fictitious inlet flow state the same way the direct
// problem does, then upwinds a characteristic-consistent adjoint ghost
// state against it. Total conditions leave the whole ghost adjoint at
// zero; a prescribed mass flow fixes PsiE from the normal adjoint
// momentum.
func (s *Solver) BCInlet(ek *edgeKernel, iMarker int) {
	var (
		nDim     = s.NDim
		nVar     = s.NVar
		gamma    = s.FS.Gamma
		gm1      = gamma - 1
		gasConst = s.FS.GasConstant
		implicit = s.Time == ImplicitEuler
		label    = s.Mesh.Markers[iMarker].Label
		massFlow = s.bcParam(label, "MassFlow", 0) != 0
		normal   = make([]float64, nDim)
		un       = make([]float64, nDim)
		vel      = make([]float64, nDim)
		flowDir  = make([]float64, nDim)
		uInlet   = make([]float64, nVar)
		psiInlet = make([]float64, nVar)
		jac      = newSquare(nVar)
	)
	flowDir[0] = s.bcParam(label, "FlowDirX", 1)
	if nDim > 1 {
		flowDir[1] = s.bcParam(label, "FlowDirY", 0)
	}
	if nDim > 2 {
		flowDir[2] = s.bcParam(label, "FlowDirZ", 0)
	}
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		var area float64
		for iDim := 0; iDim < nDim; iDim++ {
			normal[iDim] = vertex.Normal[iDim]
			area += normal[iDim] * normal[iDim]
		}
		area = math.Sqrt(area)
		for iDim := 0; iDim < nDim; iDim++ {
			un[iDim] = normal[iDim] / area
		}
		var (
			uDomain   = s.Flow.Solution(iPoint)
			psiDomain = s.PsiAt(iPoint)
		)

		if s.IP.Incompressible {
			// pressure from the interior, velocity from the free stream
			uInlet[0] = uDomain[0]
			for iDim := 0; iDim < nDim; iDim++ {
				uInlet[iDim+1] = s.FS.Velocity[iDim] * s.Flow.DensityInc[iPoint]
			}
			psiInlet[0] = psiDomain[0]
			for iDim := 0; iDim < nDim; iDim++ {
				psiInlet[iDim+1] = 0
			}
			res := make([]float64, nVar)
			s.incUpwindFlux(iPoint, res, jac, uDomain, psiDomain, psiInlet, normal, implicit)
			subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
			if implicit {
				s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(jac))
			}
			continue
		}

		if !massFlow {
			// total conditions specified
			var (
				pTotal  = s.bcParam(label, "TotalPressure", s.FS.Pinf)
				tTotal  = s.bcParam(label, "TotalTemperature", s.FS.Tinf)
				density = uDomain[0]
				vel2    float64
			)
			for iDim := 0; iDim < nDim; iDim++ {
				vel[iDim] = uDomain[iDim+1] / density
				vel2 += vel[iDim] * vel[iDim]
			}
			var (
				energy      = uDomain[nVar-1] / density
				pressure    = gm1 * density * (energy - 0.5*vel2)
				hTotal      = (gamma * gasConst / gm1) * tTotal
				soundSpeed2 = gamma * pressure / density
			)
			riemann := 2 * math.Sqrt(soundSpeed2) / gm1
			for iDim := 0; iDim < nDim; iDim++ {
				riemann += vel[iDim] * un[iDim]
			}
			soundSpeedTotal2 := gm1*(hTotal-(energy+pressure/density)+0.5*vel2) + soundSpeed2

			var alpha float64
			for iDim := 0; iDim < nDim; iDim++ {
				alpha += un[iDim] * flowDir[iDim]
			}
			var (
				aa = 1 + 0.5*gm1*alpha*alpha
				bb = -gm1 * alpha * riemann
				cc = 0.5*gm1*riemann*riemann - 2*soundSpeedTotal2/gm1
			)
			dd := math.Sqrt(math.Max(0, bb*bb-4*aa*cc))
			velMag := math.Max(0, (-bb+dd)/(2*aa))
			vel2 = velMag * velMag

			soundSpeed2 = soundSpeedTotal2 - 0.5*gm1*vel2
			mach2 := math.Min(1, vel2/soundSpeed2)
			vel2 = mach2 * soundSpeed2
			velMag = math.Sqrt(vel2)
			soundSpeed2 = soundSpeedTotal2 - 0.5*gm1*vel2

			var (
				temperature = soundSpeed2 / (gamma * gasConst)
				pOut        = pTotal * math.Pow(temperature/tTotal, gamma/gm1)
			)
			density = pOut / (gasConst * temperature)
			energy = pOut/(density*gm1) + 0.5*vel2

			uInlet[0] = density
			for iDim := 0; iDim < nDim; iDim++ {
				uInlet[iDim+1] = velMag * flowDir[iDim] * density
			}
			uInlet[nVar-1] = energy * density

			for iVar := 0; iVar < nVar; iVar++ {
				psiInlet[iVar] = 0
			}
		} else {
			// mass flow specified
			var (
				density = s.bcParam(label, "Density", s.FS.Rhoinf)
				velMag  = s.bcParam(label, "VelocityMag", 0)
			)
			for iDim := 0; iDim < nDim; iDim++ {
				vel[iDim] = s.Flow.Velocity(iPoint, iDim)
			}
			var (
				pressure    = s.Flow.Pressure(iPoint)
				soundSpeed2 = gamma * pressure / uDomain[0]
			)
			riemann := (2 / gm1) * math.Sqrt(soundSpeed2)
			for iDim := 0; iDim < nDim; iDim++ {
				riemann += vel[iDim] * un[iDim]
			}
			ss := riemann
			for iDim := 0; iDim < nDim; iDim++ {
				ss -= velMag * flowDir[iDim] * un[iDim]
			}
			ss = math.Max(0, 0.5*gm1*ss)
			soundSpeed2 = ss * ss

			var (
				pOut   = soundSpeed2 * density / gamma
				energy = pOut/(density*gm1) + 0.5*velMag*velMag
			)
			uInlet[0] = density
			for iDim := 0; iDim < nDim; iDim++ {
				uInlet[iDim+1] = velMag * flowDir[iDim] * density
			}
			uInlet[nVar-1] = energy * density

			copy(psiInlet, psiDomain)
			var bcn, phin float64
			for iDim := 0; iDim < nDim; iDim++ {
				bcn -= (gamma / gm1) * vel[iDim] * un[iDim]
				phin += psiDomain[iDim+1] * un[iDim]
			}
			if s.IP.RotatingFrame {
				bcn -= (1 / gm1) * (s.rotFlux(iPoint, normal) / area)
			}
			if s.IP.GridMovement {
				var projGridVel float64
				gv := s.Mesh.Points[iPoint].GridVel
				for iDim := 0; iDim < nDim; iDim++ {
					projGridVel += gv[iDim] * un[iDim]
				}
				bcn -= (1 / gm1) * projGridVel
			}
			psiInlet[nVar-1] = -phin / bcn
		}

		s.upwindRoeStates(ek, uDomain, uInlet, psiDomain, psiInlet, normal, implicit)
		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], ek.ResConvI)
		if implicit {
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(ek.JacII))
		}
	}
}

// BCOutlet imposes the back pressure through a subsonic characteristic
// ghost state. At a supersonic exit every adjoint variable can be set to
// zero since no characteristic enters the domain.
func (s *Solver) BCOutlet(ek *edgeKernel, iMarker int) {
	var (
		nDim      = s.NDim
		nVar      = s.NVar
		gamma     = s.FS.Gamma
		gm1       = gamma - 1
		implicit  = s.Time == ImplicitEuler
		label     = s.Mesh.Markers[iMarker].Label
		normal    = make([]float64, nDim)
		un        = make([]float64, nDim)
		vel       = make([]float64, nDim)
		uOutlet   = make([]float64, nVar)
		psiOutlet = make([]float64, nVar)
		jac       = newSquare(nVar)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		var area float64
		for iDim := 0; iDim < nDim; iDim++ {
			normal[iDim] = vertex.Normal[iDim]
			area += normal[iDim] * normal[iDim]
		}
		area = math.Sqrt(area)
		for iDim := 0; iDim < nDim; iDim++ {
			un[iDim] = normal[iDim] / area
		}
		var (
			uDomain   = s.Flow.Solution(iPoint)
			psiDomain = s.PsiAt(iPoint)
		)

		if s.IP.Incompressible {
			// pressure imposed, velocity extrapolated
			uOutlet[0] = s.FS.Pinf
			for iDim := 0; iDim < nDim; iDim++ {
				uOutlet[iDim+1] = uDomain[iDim+1]
			}
			coeff := 2 * uDomain[1] / s.Flow.BetaInc2[iPoint]
			psiOutlet[nDim] = 0
			psiOutlet[1] = psiDomain[1]
			psiOutlet[0] = -coeff * psiOutlet[1]
			res := make([]float64, nVar)
			s.incUpwindFlux(iPoint, res, jac, uDomain, psiDomain, psiOutlet, normal, implicit)
			subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], res)
			if implicit {
				s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(jac))
			}
			continue
		}

		var (
			pExit   = s.bcParam(label, "BackPressure", s.FS.Pinf)
			density = uDomain[0]
			vel2    float64
			vn      float64
		)
		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] = uDomain[iDim+1] / density
			vel2 += vel[iDim] * vel[iDim]
			vn += vel[iDim] * un[iDim]
		}
		var (
			energy     = uDomain[nVar-1] / density
			pressure   = gm1 * density * (energy - 0.5*vel2)
			soundSpeed = math.Sqrt(gamma * pressure / density)
			machExit   = math.Sqrt(vel2) / soundSpeed
		)

		if machExit >= 1 {
			// supersonic exit, no incoming characteristics
			copy(uOutlet, uDomain)
			for iVar := 0; iVar < nVar; iVar++ {
				psiOutlet[iVar] = 0
			}
		} else {
			var (
				entropy = pressure * math.Pow(1/density, gamma)
				riemann = vn + 2*soundSpeed/gm1
			)
			density = math.Pow(pExit/entropy, 1/gamma)
			soundSpeed = math.Sqrt(gamma * pExit / density)
			vnExit := riemann - 2*soundSpeed/gm1
			vel2 = 0
			for iDim := 0; iDim < nDim; iDim++ {
				vel[iDim] += (vnExit - vn) * un[iDim]
				vel2 += vel[iDim] * vel[iDim]
			}
			energy = pExit/(density*gm1) + 0.5*vel2

			uOutlet[0] = density
			for iDim := 0; iDim < nDim; iDim++ {
				uOutlet[iDim+1] = vel[iDim] * density
			}
			uOutlet[nVar-1] = energy * density

			var vnNew, ubn float64
			for iDim := 0; iDim < nDim; iDim++ {
				vnNew += vel[iDim] * un[iDim]
			}
			if s.IP.RotatingFrame {
				ubn = s.rotFlux(iPoint, normal) / area
			}
			if s.IP.GridMovement {
				ubn = 0
				gv := s.Mesh.Points[iPoint].GridVel
				for iDim := 0; iDim < nDim; iDim++ {
					ubn += gv[iDim] * un[iDim]
				}
			}

			// PsiE is the free variable, PsiRho and Phi follow from it
			a1 := gamma * (pExit / (density * gm1)) / (vnNew - ubn)
			psiOutlet[nVar-1] = psiDomain[nVar-1]
			psiOutlet[0] = 0.5 * psiOutlet[nVar-1] * vel2
			for iDim := 0; iDim < nDim; iDim++ {
				psiOutlet[0] += psiOutlet[nVar-1] * a1 * vel[iDim] * un[iDim]
				psiOutlet[iDim+1] = -psiOutlet[nVar-1] * (a1*un[iDim] + vel[iDim])
			}
		}

		s.upwindRoeStates(ek, uDomain, uOutlet, psiDomain, psiOutlet, normal, implicit)
		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], ek.ResConvI)
		if implicit {
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(ek.JacII))
		}
	}
}

// BCNacelleInflow treats the fan face as a subsonic outflow at the local
// static pressure with a zero adjoint ghost state.
func (s *Solver) BCNacelleInflow(ek *edgeKernel, iMarker int) {
	var (
		nDim      = s.NDim
		nVar      = s.NVar
		gamma     = s.FS.Gamma
		gm1       = gamma - 1
		implicit  = s.Time == ImplicitEuler
		normal    = make([]float64, nDim)
		un        = make([]float64, nDim)
		vel       = make([]float64, nDim)
		uInflow   = make([]float64, nVar)
		psiInflow = make([]float64, nVar)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		var area float64
		for iDim := 0; iDim < nDim; iDim++ {
			normal[iDim] = vertex.Normal[iDim]
			area += normal[iDim] * normal[iDim]
		}
		area = math.Sqrt(area)
		for iDim := 0; iDim < nDim; iDim++ {
			un[iDim] = normal[iDim] / area
		}
		var (
			uDomain = s.Flow.Solution(iPoint)
			pFan    = s.Flow.Pressure(iPoint)
			density = uDomain[0]
			vel2    float64
			vn      float64
		)
		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] = uDomain[iDim+1] / density
			vel2 += vel[iDim] * vel[iDim]
			vn += vel[iDim] * un[iDim]
		}
		var (
			energy     = uDomain[nVar-1] / density
			pressure   = gm1 * density * (energy - 0.5*vel2)
			soundSpeed = math.Sqrt(gamma * pressure / density)
			entropy    = pressure * math.Pow(1/density, gamma)
			riemann    = vn + 2*soundSpeed/gm1
		)
		density = math.Pow(pFan/entropy, 1/gamma)
		soundSpeed = math.Sqrt(gamma * pFan / density)
		vnExit := riemann - 2*soundSpeed/gm1
		vel2 = 0
		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] += (vnExit - vn) * un[iDim]
			vel2 += vel[iDim] * vel[iDim]
		}
		energy = pFan/(density*gm1) + 0.5*vel2

		uInflow[0] = density
		for iDim := 0; iDim < nDim; iDim++ {
			uInflow[iDim+1] = vel[iDim] * density
		}
		uInflow[nVar-1] = energy * density

		for iVar := 0; iVar < nVar; iVar++ {
			psiInflow[iVar] = 0
		}

		s.upwindRoeStates(ek, uDomain, uInflow, s.PsiAt(iPoint), psiInflow, normal, implicit)
		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], ek.ResConvI)
		if implicit {
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(ek.JacII))
		}
	}
}

// BCNacelleExhaust prescribes nozzle total conditions with the flow
// direction locked to the surface normal, again with a zero adjoint ghost
// state.
func (s *Solver) BCNacelleExhaust(ek *edgeKernel, iMarker int) {
	var (
		nDim       = s.NDim
		nVar       = s.NVar
		gamma      = s.FS.Gamma
		gm1        = gamma - 1
		gasConst   = s.FS.GasConstant
		implicit   = s.Time == ImplicitEuler
		label      = s.Mesh.Markers[iMarker].Label
		normal     = make([]float64, nDim)
		un         = make([]float64, nDim)
		vel        = make([]float64, nDim)
		uExhaust   = make([]float64, nVar)
		psiExhaust = make([]float64, nVar)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		var area float64
		for iDim := 0; iDim < nDim; iDim++ {
			normal[iDim] = vertex.Normal[iDim]
			area += normal[iDim] * normal[iDim]
		}
		area = math.Sqrt(area)
		for iDim := 0; iDim < nDim; iDim++ {
			un[iDim] = normal[iDim] / area
		}
		var (
			uDomain = s.Flow.Solution(iPoint)
			pTotal  = s.bcParam(label, "TotalPressure", s.FS.Pinf)
			tTotal  = s.bcParam(label, "TotalTemperature", s.FS.Tinf)
			density = uDomain[0]
			vel2    float64
		)
		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] = uDomain[iDim+1] / density
			vel2 += vel[iDim] * vel[iDim]
		}
		var (
			energy      = uDomain[nVar-1] / density
			pressure    = gm1 * density * (energy - 0.5*vel2)
			hTotal      = (gamma * gasConst / gm1) * tTotal
			soundSpeed2 = gamma * pressure / density
		)
		riemann := 2 * math.Sqrt(soundSpeed2) / gm1
		for iDim := 0; iDim < nDim; iDim++ {
			riemann += vel[iDim] * un[iDim]
		}
		soundSpeedTotal2 := gm1*(hTotal-(energy+pressure/density)+0.5*vel2) + soundSpeed2

		// exhaust direction opposes the outward normal
		var alpha float64
		for iDim := 0; iDim < nDim; iDim++ {
			alpha += un[iDim] * -un[iDim]
		}
		var (
			aa = 1 + 0.5*gm1*alpha*alpha
			bb = -gm1 * alpha * riemann
			cc = 0.5*gm1*riemann*riemann - 2*soundSpeedTotal2/gm1
		)
		dd := math.Sqrt(math.Max(0, bb*bb-4*aa*cc))
		velMag := math.Max(0, (-bb+dd)/(2*aa))
		vel2 = velMag * velMag

		soundSpeed2 = soundSpeedTotal2 - 0.5*gm1*vel2
		mach2 := math.Min(1, vel2/soundSpeed2)
		vel2 = mach2 * soundSpeed2
		velMag = math.Sqrt(vel2)
		soundSpeed2 = soundSpeedTotal2 - 0.5*gm1*vel2

		var (
			temperature = soundSpeed2 / (gamma * gasConst)
			pOut        = pTotal * math.Pow(temperature/tTotal, gamma/gm1)
		)
		density = pOut / (gasConst * temperature)
		energy = pOut/(density*gm1) + 0.5*vel2

		uExhaust[0] = density
		for iDim := 0; iDim < nDim; iDim++ {
			uExhaust[iDim+1] = -velMag * un[iDim] * density
		}
		uExhaust[nVar-1] = energy * density

		for iVar := 0; iVar < nVar; iVar++ {
			psiExhaust[iVar] = 0
		}

		s.upwindRoeStates(ek, uDomain, uExhaust, s.PsiAt(iPoint), psiExhaust, normal, implicit)
		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], ek.ResConvI)
		if implicit {
			s.Jacobian.SubtractBlock(iPoint, iPoint, flatten(ek.JacII))
		}
	}
}
