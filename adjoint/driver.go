package adjoint

import (
	"fmt"
	"math"
)

// spaceIntegration assembles the full spatial residual for one stage. The
// centered dissipation operators are refreshed on the first stage only and
// frozen for the rest of a Runge-Kutta sweep.
func (s *Solver) spaceIntegration(ek *edgeKernel, iRKStep int) {
	dissipation := iRKStep == 0
	s.Preprocessing(iRKStep, dissipation)
	if s.Scheme == CenteredJST {
		s.CenteredResidual(ek, iRKStep, dissipation)
	} else {
		s.UpwindResidual(ek)
	}
	if s.IP.Viscous {
		s.ViscousResidual(dissipation)
		s.ViscousSourceResidual()
	}
	s.SourceResidual()
	s.ApplyBoundaryConditions(ek)
	if s.PsiTimeN != nil {
		s.SetResidualDualTime()
	}
}

// Iterate advances the adjoint one pseudo-time iteration. In discrete mode
// the linearized system is assembled and solved in one shot instead.
func (s *Solver) Iterate(ek *edgeKernel) {
	if s.Mode == Discrete {
		s.Preprocessing(0, false)
		s.UpwindResidual(ek)
		s.ApplyBoundaryConditions(ek)
		s.SolveLinearSystem()
		s.ExtIter++
		return
	}

	s.SetSolutionOld()
	s.SetTimeStep()

	switch s.Time {
	case RungeKutta:
		for iRK := range s.IP.RKCoefficients {
			s.spaceIntegration(ek, iRK)
			s.ExplicitRKIteration(iRK)
		}
	case ExplicitEuler:
		s.spaceIntegration(ek, 0)
		s.ExplicitEulerIteration()
	default:
		s.spaceIntegration(ek, 0)
		s.ImplicitEulerIteration()
	}
	s.ExtIter++
}

// Solve runs the pseudo-time iteration to convergence or MaxIterations,
// then evaluates the surface and free-stream sensitivities.
func (s *Solver) Solve() {
	ek := newEdgeKernel(s.NDim, s.FS.Gamma)

	if s.Mode == Discrete {
		s.Iterate(ek)
		fmt.Printf("discrete adjoint solved in one shot, %d unknowns\n",
			s.NPointDomain*s.NVar)
		s.ComputeSensitivities()
		return
	}

	fmt.Printf("%10s %14s %14s %10s\n", "iter", "rms[psi_rho]", "max[psi_rho]", "point")
	for iter := 0; iter < s.IP.MaxIterations; iter++ {
		s.Iterate(ek)
		if iter%10 == 0 || iter == s.IP.MaxIterations-1 {
			fmt.Printf("%10d %14.8e %14.8e %10d\n",
				s.ExtIter, s.ResRMS[0], s.ResMax[0], s.ResMaxPoint[0])
		}
		if s.ResRMS[0] < 1e-13 || math.IsNaN(s.ResRMS[0]) {
			fmt.Printf("%10d %14.8e %14.8e %10d\n",
				s.ExtIter, s.ResRMS[0], s.ResMax[0], s.ResMaxPoint[0])
			break
		}
	}
	s.ComputeSensitivities()
}

// ComputeSensitivities evaluates the shape and free-stream sensitivities
// from the converged adjoint and applies the optional surface smoothing.
func (s *Solver) ComputeSensitivities() {
	s.InviscidSensitivity()
	if s.IP.Viscous {
		s.ViscousSensitivity()
	}
	if s.IP.SensSmoothing == "sobolev" {
		s.SmoothSensitivity()
	}
	fmt.Printf("sens[geo] %12.6e  sens[Mach] %12.6e  sens[AoA] %12.6e\n",
		s.TotalSensGeo, s.SensMach, s.SensAoA)
	fmt.Printf("sens[P]   %12.6e  sens[T]    %12.6e\n", s.SensPress, s.SensTemp)
}
