package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockSparsePattern(t *testing.T) {
	addresses := [][2]int{
		{0, 0}, {0, 2}, {1, 1}, {2, 0}, {2, 2}, {3, 3},
	}
	A := NewBlockSparse(4, 4, 2, 2, addresses)
	nr, nc := A.BlockDims()
	assert.Equal(t, 2, nr)
	assert.Equal(t, 2, nc)
	assert.True(t, A.HasBlock(0, 2))
	assert.False(t, A.HasBlock(2, 3))
	assert.Equal(t, []int{0, 2}, A.RowCols(0))
	assert.Equal(t, []int{0, 2}, A.RowCols(2))

	// Views alias the contiguous storage
	A.SetBlock(0, 2, []float64{1, 2, 3, 4})
	view := A.GetBlockView(0, 2)
	assert.Equal(t, []float64{1, 2, 3, 4}, view.DataP)
	view.Set(1, 1, 9)
	assert.Equal(t, 9., A.GetBlockView(0, 2).At(1, 1))

	A.AddBlock(0, 2, []float64{1, 1, 1, 1})
	assert.Equal(t, []float64{2, 3, 4, 10}, A.GetBlockView(0, 2).DataP)
	A.SubtractBlock(0, 2, []float64{2, 3, 4, 10})
	assert.Equal(t, []float64{0, 0, 0, 0}, A.GetBlockView(0, 2).DataP)

	A.AddToDiag(1, 5)
	assert.Equal(t, []float64{5, 0, 0, 5}, A.GetBlockView(1, 1).DataP)
	A.SetZero()
	assert.Equal(t, []float64{0, 0, 0, 0}, A.GetBlockView(1, 1).DataP)

	assert.Panics(t, func() { A.GetBlockView(2, 3) })
	assert.Panics(t, func() {
		NewBlockSparse(2, 2, 2, 2, [][2]int{{0, 0}, {0, 0}})
	})
}

func TestBlockSparseMatVec(t *testing.T) {
	addresses := [][2]int{
		{0, 0}, {0, 2}, {1, 1}, {2, 0}, {3, 3},
	}
	A := NewBlockSparse(4, 4, 2, 2, addresses)
	identity := []float64{1, 0, 0, 1}
	A.SetBlock(0, 0, identity)
	A.SetBlock(0, 2, []float64{2, 2, 2, 2})
	A.SetBlock(1, 1, identity)
	A.SetBlock(2, 0, []float64{3, 3, 3, 3})
	A.SetBlock(3, 3, identity)

	x := []float64{1, 1, 2, 2, 3, 3, 4, 4}
	b := make([]float64, 8)
	A.MatVec(x, b)
	assert.InDeltaSlice(t, []float64{13, 13, 2, 2, 6, 6, 4, 4}, b, 1.e-12)
}

func TestBlockSparseDeleteRow(t *testing.T) {
	addresses := [][2]int{
		{0, 0}, {0, 1}, {1, 0}, {1, 1},
	}
	A := NewBlockSparse(2, 2, 2, 2, addresses)
	full := []float64{2, 3, 4, 5}
	for _, addr := range addresses {
		A.SetBlock(addr[0], addr[1], full)
	}
	A.DeleteRow(0, 1)
	// Scalar row 1 of block row 0 is identity, the rest is untouched
	assert.Equal(t, []float64{2, 3, 0, 1}, A.GetBlockView(0, 0).DataP)
	assert.Equal(t, []float64{2, 3, 0, 0}, A.GetBlockView(0, 1).DataP)
	assert.Equal(t, full, A.GetBlockView(1, 0).DataP)

	x := []float64{1, 2, 3, 4}
	b := make([]float64, 4)
	A.MatVec(x, b)
	assert.Equal(t, 2., b[1]) // replaced equation reads x[1] straight through
}

// blockTridiagonal builds a 5x5 block tridiagonal system with 2x2 blocks,
// diagonal 4*I and off-diagonals -I, together with the right-hand side for
// the all-ones solution.
func blockTridiagonal() (A *BlockSparse, b, xTrue []float64) {
	var (
		n         = 5
		addresses [][2]int
	)
	for i := 0; i < n; i++ {
		if i > 0 {
			addresses = append(addresses, [2]int{i, i - 1})
		}
		addresses = append(addresses, [2]int{i, i})
		if i < n-1 {
			addresses = append(addresses, [2]int{i, i + 1})
		}
	}
	A = NewBlockSparse(n, n, 2, 2, addresses)
	for _, addr := range addresses {
		if addr[0] == addr[1] {
			A.SetBlock(addr[0], addr[1], []float64{4, 0, 0, 4})
		} else {
			A.SetBlock(addr[0], addr[1], []float64{-1, 0, 0, -1})
		}
	}
	xTrue = make([]float64, n*2)
	for i := range xTrue {
		xTrue[i] = 1
	}
	b = make([]float64, n*2)
	A.MatVec(xTrue, b)
	return
}

func TestSGS(t *testing.T) {
	A, b, xTrue := blockTridiagonal()
	x := make([]float64, len(b))
	res, iters := A.SGS(b, x, 1.e-10, 100)
	assert.LessOrEqual(t, res, 1.e-10)
	assert.Less(t, iters, 100)
	assert.InDeltaSlice(t, xTrue, x, 1.e-8)
}

func TestLUSGS(t *testing.T) {
	A, b, xTrue := blockTridiagonal()
	x := make([]float64, len(b))
	res, iters := A.LUSGS(b, x, 1.e-10, 100)
	assert.LessOrEqual(t, res, 1.e-10)
	assert.Less(t, iters, 100)
	assert.InDeltaSlice(t, xTrue, x, 1.e-8)
}

func TestBCGSTAB(t *testing.T) {
	A, b, xTrue := blockTridiagonal()
	x := make([]float64, len(b))
	res, _ := A.BCGSTAB(b, x, 1.e-10, 100, NewBlockJacobiPrec(A))
	assert.LessOrEqual(t, res, 1.e-10)
	assert.InDeltaSlice(t, xTrue, x, 1.e-8)
}

func TestGMRES(t *testing.T) {
	A, b, xTrue := blockTridiagonal()
	// Unpreconditioned
	x := make([]float64, len(b))
	res, _ := A.GMRES(b, x, 1.e-10, 100, IdentityPrec{})
	assert.LessOrEqual(t, res, 1.e-10)
	assert.InDeltaSlice(t, xTrue, x, 1.e-8)
	// Block Jacobi
	x2 := make([]float64, len(b))
	res, _ = A.GMRES(b, x2, 1.e-10, 100, NewBlockJacobiPrec(A))
	assert.LessOrEqual(t, res, 1.e-10)
	assert.InDeltaSlice(t, xTrue, x2, 1.e-8)
}

func TestBlockJacobiPrec(t *testing.T) {
	A, b, _ := blockTridiagonal()
	// Diagonal blocks are 4*I, so the preconditioner divides by four
	p := NewBlockJacobiPrec(A)
	z := make([]float64, len(b))
	p.Apply(b, z)
	for i := range b {
		assert.InDelta(t, b[i]/4, z[i], 1.e-12)
	}
}

func TestLineletPrec(t *testing.T) {
	A, b, xTrue := blockTridiagonal()
	// A single line covering all points makes the block Thomas sweep an
	// exact solve of the tridiagonal system
	p := NewLineletPrec(A, [][]int{{0, 1, 2, 3, 4}})
	z := make([]float64, len(b))
	p.Apply(b, z)
	assert.InDeltaSlice(t, xTrue, z, 1.e-10)

	x := make([]float64, len(b))
	res, iters := A.GMRES(b, x, 1.e-10, 50, p)
	assert.LessOrEqual(t, res, 1.e-10)
	assert.LessOrEqual(t, iters, 2)
	assert.InDeltaSlice(t, xTrue, x, 1.e-8)
}
