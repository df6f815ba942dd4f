package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	// Transpose
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		mNr, mNc := M.Dims()
		A := M.Transpose()
		aNr, aNc := A.Dims()
		assert.Equal(t, aNc, mNr)
		assert.Equal(t, aNr, mNc)
		assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, A.DataP)
	}
	// Mul
	{
		M := NewMatrix(2, 2, []float64{
			1, 2,
			3, 4,
		})
		A := M.Mul(NewMatrix(2, 2, []float64{
			0, 1,
			1, 0,
		}))
		assert.Equal(t, []float64{2, 1, 4, 3}, A.DataP)
	}
	// Add / Subtract / Scale / Zero change the receiver
	{
		M := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		M.Add(NewMatrix(2, 2, []float64{1, 1, 1, 1}))
		assert.Equal(t, []float64{2, 3, 4, 5}, M.DataP)
		M.Subtract(NewMatrix(2, 2, []float64{2, 2, 2, 2}))
		assert.Equal(t, []float64{0, 1, 2, 3}, M.DataP)
		M.Scale(2)
		assert.Equal(t, []float64{0, 2, 4, 6}, M.DataP)
		M.Zero()
		assert.Equal(t, []float64{0, 0, 0, 0}, M.DataP)
	}
	// Copy is independent of the receiver
	{
		M := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		A := M.Copy()
		A.Set(0, 0, 99)
		assert.Equal(t, 1., M.At(0, 0))
	}
	// Inverse
	{
		M := NewMatrix(2, 2, []float64{
			4, 7,
			2, 6,
		})
		A, err := M.Inverse()
		assert.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0.6, -0.7, -0.2, 0.4}, A.DataP, 1e-12)
	}
	// MatVec then LUSolve recovers the original vector
	{
		M := NewMatrix(3, 3, []float64{
			2, 1, 0,
			1, 3, 1,
			0, 1, 2,
		})
		x := []float64{1, -2, 3}
		b := make([]float64, 3)
		M.MatVec(x, b)
		assert.NoError(t, M.LUSolve(b))
		assert.InDeltaSlice(t, x, b, 1e-12)
	}
	// ResetView rebinds onto external storage
	{
		data := []float64{1, 2, 3, 4}
		M := NewMatrix(2, 2)
		assert.NoError(t, M.ResetView(data))
		data[3] = 10
		assert.Equal(t, 10., M.At(1, 1))
		assert.Error(t, M.ResetView(make([]float64, 3)))
	}
}

func TestGaussElimination(t *testing.T) {
	A := [][]float64{
		{2, 1, 0},
		{1, 3, 1},
		{0, 1, 2},
	}
	// rhs = A * [1, -2, 3]
	rhs := []float64{0, -2, 4}
	GaussElimination(A, rhs)
	assert.InDeltaSlice(t, []float64{1, -2, 3}, rhs, 1e-12)
}
