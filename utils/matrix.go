package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix wraps a column-ordered gonum dense matrix with a raw view of its
// backing storage, so block views into larger flat buffers are cheap.
type Matrix struct {
	M     *mat.Dense
	DataP []float64
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var (
		data []float64
	)
	if len(dataO) != 0 {
		data = dataO[0]
		if len(data) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v\n", nr, nc, len(data))
			panic(err)
		}
	} else {
		data = make([]float64, nr*nc)
	}
	R = Matrix{
		M:     mat.NewDense(nr, nc, data),
		DataP: data,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)    { return m.M.Dims() }
func (m Matrix) At(i, j int) float64 { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix       { return m.M.T() }

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.M.Set(i, j, val)
	return m
}

// ResetView rebinds the matrix onto the provided backing slice, which must
// have length nr*nc. Used to view blocks of a larger contiguous buffer.
func (m *Matrix) ResetView(data []float64) (err error) {
	var (
		nr, nc = m.Dims()
	)
	if len(data) != nr*nc {
		err = fmt.Errorf("mismatch in ResetView: nr,nc = %v,%v, len(data) = %v", nr, nc, len(data))
		return
	}
	m.M = mat.NewDense(nr, nc, data)
	m.DataP = data
	return
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	copy(R.DataP, m.DataP)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for j := 0; j < nc; j++ {
		for i := 0; i < nr; i++ {
			R.Set(j, i, m.At(i, j))
		}
	}
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.Dims()
		_, ncA = A.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	for i, val := range A.DataP {
		m.DataP[i] += val
	}
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix { // Changes receiver
	for i, val := range A.DataP {
		m.DataP[i] -= val
	}
	return m
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	for i := range m.DataP {
		m.DataP[i] *= a
	}
	return m
}

func (m Matrix) Zero() Matrix { // Changes receiver
	for i := range m.DataP {
		m.DataP[i] = 0
	}
	return m
}

func (m Matrix) Inverse() (R Matrix, err error) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	if err = R.M.Inverse(m.M); err != nil {
		err = fmt.Errorf("unable to invert matrix: %s", err)
	}
	return
}

// MatVec multiplies the matrix by x and stores the result in b, which must be
// preallocated with length equal to the row count.
func (m Matrix) MatVec(x, b []float64) {
	var (
		nr, nc = m.Dims()
	)
	for i := 0; i < nr; i++ {
		var sum float64
		for j := 0; j < nc; j++ {
			sum += m.At(i, j) * x[j]
		}
		b[i] = sum
	}
}

// LUSolve solves m*x = b in place of b using a dense LU factorization.
func (m Matrix) LUSolve(b []float64) (err error) {
	var (
		nr, _ = m.Dims()
		lu    mat.LU
	)
	lu.Factorize(m.M)
	x := mat.NewVecDense(nr, nil)
	if err = lu.SolveVecTo(x, false, mat.NewVecDense(nr, b)); err != nil {
		return fmt.Errorf("singular system in LUSolve: %s", err)
	}
	copy(b, x.RawVector().Data)
	return
}
