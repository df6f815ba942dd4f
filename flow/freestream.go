package flow

import "math"

// FreeStream carries the reference state the adjoint and sensitivity code
// linearize about. Velocity is derived from Mach, sound speed and the flow
// angles; all values are nondimensional by convention of the caller.
type FreeStream struct {
	Gamma, GasConstant    float64
	Mach, Alpha, Beta     float64 // Alpha, Beta in radians
	Pinf, Rhoinf, Cinf    float64
	Tinf                  float64
	Velocity              []float64
	RefDensity, RefVel2   float64
	RefAreaCoeff          float64
	RefLengthMoment       float64
	RefOriginMoment       []float64
	Uinf                  []float64 // conservative free-stream state
}

func NewFreeStream(nDim int, gamma, mach, alphaDeg, betaDeg, pInf, rhoInf float64) (fs *FreeStream) {
	var (
		alpha = alphaDeg * math.Pi / 180
		beta  = betaDeg * math.Pi / 180
		cInf  = math.Sqrt(gamma * pInf / rhoInf)
		nVar  = nDim + 2
	)
	fs = &FreeStream{
		Gamma:           gamma,
		GasConstant:     1 / gamma, // nondimensional R with T_inf = 1, c_inf normalized
		Mach:            mach,
		Alpha:           alpha,
		Beta:            beta,
		Pinf:            pInf,
		Rhoinf:          rhoInf,
		Cinf:            cInf,
		Velocity:        make([]float64, nDim),
		RefOriginMoment: make([]float64, nDim),
		Uinf:            make([]float64, nVar),
	}
	vMag := mach * cInf
	if nDim == 2 {
		fs.Velocity[0] = vMag * math.Cos(alpha)
		fs.Velocity[1] = vMag * math.Sin(alpha)
	} else {
		fs.Velocity[0] = vMag * math.Cos(alpha) * math.Cos(beta)
		fs.Velocity[1] = vMag * math.Sin(beta)
		fs.Velocity[2] = vMag * math.Sin(alpha) * math.Cos(beta)
	}
	fs.Tinf = pInf / (rhoInf * fs.GasConstant)
	fs.RefDensity = rhoInf
	fs.RefVel2 = vMag * vMag
	fs.RefAreaCoeff = 1
	fs.RefLengthMoment = 1
	fs.Uinf[0] = rhoInf
	var v2 float64
	for d := 0; d < nDim; d++ {
		fs.Uinf[d+1] = rhoInf * fs.Velocity[d]
		v2 += fs.Velocity[d] * fs.Velocity[d]
	}
	fs.Uinf[nVar-1] = pInf/(gamma-1) + 0.5*rhoInf*v2
	return
}
