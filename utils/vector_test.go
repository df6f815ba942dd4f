package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVector(t *testing.T) {
	// Construction over existing storage
	{
		data := []float64{3, -1, 4, 1, -5}
		v := NewVector(5, data)
		assert.Equal(t, 5, v.Len())
		assert.Equal(t, 4., v.AtVec(2))
		nr, nc := v.Dims()
		assert.Equal(t, 5, nr)
		assert.Equal(t, 1, nc)
	}
	// Set changes receiver, Copy does not alias
	{
		v := NewVector(3, []float64{1, 2, 3})
		w := v.Copy()
		v.Set(1, 10)
		assert.Equal(t, 10., v.AtVec(1))
		assert.Equal(t, 2., w.AtVec(1))
	}
	// Min / Max
	{
		v := NewVector(5, []float64{3, -1, 4, 1, -5})
		assert.Equal(t, -5., v.Min())
		assert.Equal(t, 4., v.Max())
	}
	// DataP aliases the backing store
	{
		data := []float64{0, 0}
		v := NewVector(2, data)
		data[1] = 7
		assert.Equal(t, 7., v.AtVec(1))
		assert.Equal(t, data, v.DataP)
	}
}
