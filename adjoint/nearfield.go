package adjoint

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

// nearFieldWeights holds the tabulated derivative of the equivalent area
// objective along the near-field boundary, one column per azimuthal angle.
type nearFieldWeights struct {
	CoordNF    []float64
	Weights    [][]float64
	IndexNFInv [180]int
}

func readNearFieldWeights(fileName string) (nfw *nearFieldWeights, err error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeightFileMissing, fileName)
	}
	defer file.Close()
	nfw = &nearFieldWeights{}
	for i := range nfw.IndexNFInv {
		nfw.IndexNFInv[i] = -1
	}
	scanner := bufio.NewScanner(bufio.NewReader(file))
	row := 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if row == 0 {
			// the first row carries the azimuthal angles, the leading
			// column alignment value is discarded
			for iIndex, f := range fields[1:] {
				angle, convErr := strconv.ParseFloat(f, 64)
				if convErr != nil {
					return nil, fmt.Errorf("weight file %s: %w", fileName, convErr)
				}
				ia := int(angle)
				if ia >= 0 && ia < 180 {
					nfw.IndexNFInv[ia] = iIndex
				}
			}
			row++
			continue
		}
		coord, convErr := strconv.ParseFloat(fields[0], 64)
		if convErr != nil {
			return nil, fmt.Errorf("weight file %s: %w", fileName, convErr)
		}
		weights := make([]float64, 0, len(fields)-1)
		for _, f := range fields[1:] {
			w, convErr := strconv.ParseFloat(f, 64)
			if convErr != nil {
				return nil, fmt.Errorf("weight file %s: %w", fileName, convErr)
			}
			weights = append(weights, w)
		}
		nfw.CoordNF = append(nfw.CoordNF, coord)
		nfw.Weights = append(nfw.Weights, weights)
		row++
	}
	return nfw, scanner.Err()
}

// column returns the weight column for an azimuthal angle, searching the
// neighboring angles when the exact one is absent from the table.
func (nfw *nearFieldWeights) column(iPhiAngle int) (iColumn int) {
	lookup := func(ia int) int {
		if ia < 0 || ia >= 180 {
			return -1
		}
		return nfw.IndexNFInv[ia]
	}
	iColumn = lookup(iPhiAngle)
	for offset := 1; iColumn < 0 && offset <= 4; offset++ {
		if iColumn = lookup(iPhiAngle + offset); iColumn >= 0 {
			break
		}
		iColumn = lookup(iPhiAngle - offset)
	}
	return
}

// SetIntBoundaryJump computes the adjoint variable jump across the
// near-field boundary, solving (A M)^T x = b at each vertex where A is the
// projected flux Jacobian, M the conservative to primitive transformation
// and b carries the objective derivative in its last entry.
func (s *Solver) SetIntBoundaryJump() (err error) {
	var (
		gamma = s.FS.Gamma
		gm1   = gamma - 1
		nVar  = s.NVar
		nfw   *nearFieldWeights
	)
	if s.IP.Objective == "eq-area" {
		if nfw, err = readNearFieldWeights(s.IP.WeightFileName); err != nil {
			return
		}
	}
	weightSB := 1.0 - s.IP.WeightCd

	for _, marker := range s.Mesh.Markers {
		if marker.Kind != types.BC_NearField {
			continue
		}
		for _, vtx := range marker.Vertices {
			iPoint := vtx.Node
			if iPoint >= s.NPointDomain {
				continue
			}
			var (
				coord = s.Mesh.Points[iPoint].Coord
				area  float64
				un    = make([]float64, s.NDim)
			)
			for iDim := 0; iDim < s.NDim; iDim++ {
				area += vtx.Normal[iDim] * vtx.Normal[iDim]
			}
			area = math.Sqrt(area)
			// unit normal into the domain of the inner side
			for iDim := 0; iDim < s.NDim; iDim++ {
				un[iDim] = -vtx.Normal[iDim] / area
			}

			// rotate the near-field cylinder by the angle of attack
			var xRot, yRot, zRot float64
			if s.NDim == 2 {
				xRot = coord[0]
			} else {
				aoa := -s.FS.Alpha
				xRot = coord[0]*math.Cos(aoa) - coord[2]*math.Sin(aoa)
				yRot = coord[1]
				zRot = coord[0]*math.Sin(aoa) + coord[2]*math.Cos(aoa)
			}

			derivativeOF := 0.0
			switch s.IP.Objective {
			case "eq-area":
				iPhiAngle := 0
				if s.NDim == 3 {
					angle := math.Atan(-yRot/zRot) * 180 / math.Pi
					iPhiAngle = int(math.Floor(angle + 0.5))
					if iPhiAngle < 0 {
						iPhiAngle = 180 + iPhiAngle
					}
				}
				minDist := 1.e6
				if iPhiAngle <= 60 {
					iColumn := nfw.column(iPhiAngle)
					if iColumn < 0 {
						fmt.Println("An azimuthal angle is not defined...")
					} else {
						for iNF, c := range nfw.CoordNF {
							dist := math.Abs(c - xRot)
							if dist <= minDist {
								minDist = dist
								derivativeOF = weightSB * nfw.Weights[iNF][iColumn]
							}
						}
					}
				}
				if minDist > 1.e-6 || coord[s.NDim-1] > 0 {
					derivativeOF = 0
				}
			case "nearfield-pressure":
				derivativeOF = weightSB * (s.Flow.Pressure(iPoint) - s.FS.Pinf)
			}

			// jump equation (A M)^T x = b with b = (0,...,0, dJ/dp)
			var (
				u   = s.Flow.Solution(iPoint)
				rho = u[0]
				vel = make([]float64, s.NDim)
				A   = make([][]float64, nVar)
				M   = make([][]float64, nVar)
			)
			for i := range A {
				A[i] = make([]float64, nVar)
				M[i] = make([]float64, nVar)
			}
			energy := u[nVar-1] / rho
			var sqVel, projVel float64
			for iDim := 0; iDim < s.NDim; iDim++ {
				vel[iDim] = u[iDim+1] / rho
				sqVel += vel[iDim] * vel[iDim]
				projVel += vel[iDim] * un[iDim]
			}

			if s.NDim == 2 {
				// the 2D near-field boundary is horizontal, A is the
				// vertical flux Jacobian
				uu, vv := vel[0], vel[1]
				A[0][2] = 1
				A[1][0], A[1][1], A[1][2] = -uu*vv, vv, uu
				A[2][0] = 0.5*(gamma-3)*vv*vv + 0.5*gm1*uu*uu
				A[2][1] = -gm1 * uu
				A[2][2] = (3 - gamma) * vv
				A[2][3] = gm1
				A[3][0] = -gamma*vv*energy + gm1*vv*sqVel
				A[3][1] = -gm1 * uu * vv
				A[3][2] = gamma*energy - 0.5*gm1*(uu*uu+3*vv*vv)
				A[3][3] = gamma * vv
			} else {
				phi := 0.5 * gm1 * sqVel
				a1 := gamma*energy - phi
				for iDim := 0; iDim < s.NDim; iDim++ {
					A[0][iDim+1] = un[iDim]
				}
				for iDim := 0; iDim < s.NDim; iDim++ {
					A[iDim+1][0] = un[iDim]*phi - vel[iDim]*projVel
					for jDim := 0; jDim < s.NDim; jDim++ {
						A[iDim+1][jDim+1] = un[jDim]*vel[iDim] - gm1*un[iDim]*vel[jDim]
					}
					A[iDim+1][iDim+1] += projVel
					A[iDim+1][nVar-1] = gm1 * un[iDim]
				}
				A[nVar-1][0] = projVel * (phi - a1)
				for iDim := 0; iDim < s.NDim; iDim++ {
					A[nVar-1][iDim+1] = un[iDim]*a1 - gm1*vel[iDim]*projVel
				}
				A[nVar-1][nVar-1] = gamma * projVel
			}

			M[0][0] = 1
			for iDim := 0; iDim < s.NDim; iDim++ {
				M[iDim+1][0] = vel[iDim]
				M[iDim+1][iDim+1] = rho
				M[nVar-1][iDim+1] = rho * vel[iDim]
			}
			M[nVar-1][0] = 0.5 * sqVel
			M[nVar-1][nVar-1] = 1 / gm1

			AMT := make([][]float64, nVar)
			for i := range AMT {
				AMT[i] = make([]float64, nVar)
			}
			for iVar := 0; iVar < nVar; iVar++ {
				for jVar := 0; jVar < nVar; jVar++ {
					var aux float64
					for kVar := 0; kVar < nVar; kVar++ {
						aux += A[iVar][kVar] * M[kVar][jVar]
					}
					AMT[jVar][iVar] = aux
				}
			}

			b := make([]float64, nVar)
			b[nVar-1] = derivativeOF
			utils.GaussElimination(AMT, b)
			copy(s.IntBoundJump[iPoint*nVar:(iPoint+1)*nVar], b)
		}
	}
	return
}
