package utils

import (
	"fmt"
	"sort"
)

// BlockSparse is a sparse block matrix with a fixed sparsity pattern. Only the
// blocks named in addresses are allocated; all others are implicitly zero. The
// pattern never changes after construction, only the block values do, which is
// what an implicit solver needs: the (point,point) adjacency of the mesh fixes
// the pattern once, then every outer iteration rewrites the values.
type BlockSparse struct {
	// Global block-matrix dimensions (in block counts).
	NrBlocks, NcBlocks int

	// Each block has dimensions blockRows x blockCols.
	blockRows, blockCols int

	// Contiguous storage for all allocated (nonzero) blocks.
	data []float64

	// addresses maps a block coordinate [i,j] to the offset (in floats) within data.
	addresses map[[2]int]int

	// rowCols[i] lists the allocated block columns of block row i, ascending.
	rowCols [][]int
}

// NewBlockSparse creates a BlockSparse with the given nonzero block pattern.
// addresses is a slice of [2]int block coordinates; duplicates panic.
func NewBlockSparse(nrBlocks, ncBlocks, blockRows, blockCols int, addresses [][2]int) *BlockSparse {
	var (
		totalBlocks = len(addresses)
		data        = make([]float64, totalBlocks*blockRows*blockCols)
		addrMap     = make(map[[2]int]int, totalBlocks)
		rowCols     = make([][]int, nrBlocks)
	)
	for i, addr := range addresses {
		if _, exists := addrMap[addr]; exists {
			panic(fmt.Sprintf("duplicate block address (%d,%d)", addr[0], addr[1]))
		}
		addrMap[addr] = i * blockRows * blockCols
		rowCols[addr[0]] = append(rowCols[addr[0]], addr[1])
	}
	for i := range rowCols {
		sort.Ints(rowCols[i])
	}
	return &BlockSparse{
		NrBlocks:  nrBlocks,
		NcBlocks:  ncBlocks,
		blockRows: blockRows,
		blockCols: blockCols,
		data:      data,
		addresses: addrMap,
		rowCols:   rowCols,
	}
}

func (bs *BlockSparse) BlockDims() (nr, nc int) { return bs.blockRows, bs.blockCols }

func (bs *BlockSparse) HasBlock(i, j int) (exists bool) {
	_, exists = bs.addresses[[2]int{i, j}]
	return
}

// RowCols returns the allocated block columns of block row i, ascending.
func (bs *BlockSparse) RowCols(i int) []int { return bs.rowCols[i] }

// GetBlockView returns a Matrix view of block (i,j) aliasing the contiguous
// storage; writes through the view mutate the matrix. Panics if (i,j) is not
// in the sparsity pattern.
func (bs *BlockSparse) GetBlockView(i, j int) Matrix {
	offset, ok := bs.addresses[[2]int{i, j}]
	if !ok {
		panic(fmt.Sprintf("GetBlockView (%d,%d) not allocated", i, j))
	}
	subData := bs.data[offset : offset+bs.blockRows*bs.blockCols]
	m := NewMatrix(bs.blockRows, bs.blockCols)
	if err := m.ResetView(subData); err != nil {
		panic(err)
	}
	return m
}

// SetZero zeroes every allocated block, keeping the pattern.
func (bs *BlockSparse) SetZero() {
	for i := range bs.data {
		bs.data[i] = 0
	}
}

// AddBlock accumulates block into position (i,j). block is a row-major
// blockRows*blockCols slice.
func (bs *BlockSparse) AddBlock(i, j int, block []float64) {
	offset, ok := bs.addresses[[2]int{i, j}]
	if !ok {
		panic(fmt.Sprintf("AddBlock (%d,%d) not allocated", i, j))
	}
	dst := bs.data[offset : offset+bs.blockRows*bs.blockCols]
	for n, val := range block {
		dst[n] += val
	}
}

func (bs *BlockSparse) SubtractBlock(i, j int, block []float64) {
	offset, ok := bs.addresses[[2]int{i, j}]
	if !ok {
		panic(fmt.Sprintf("SubtractBlock (%d,%d) not allocated", i, j))
	}
	dst := bs.data[offset : offset+bs.blockRows*bs.blockCols]
	for n, val := range block {
		dst[n] -= val
	}
}

func (bs *BlockSparse) SetBlock(i, j int, block []float64) {
	offset, ok := bs.addresses[[2]int{i, j}]
	if !ok {
		panic(fmt.Sprintf("SetBlock (%d,%d) not allocated", i, j))
	}
	copy(bs.data[offset:offset+bs.blockRows*bs.blockCols], block)
}

// AddToDiag adds val to each diagonal entry of the diagonal block of block row i.
func (bs *BlockSparse) AddToDiag(i int, val float64) {
	offset, ok := bs.addresses[[2]int{i, i}]
	if !ok {
		panic(fmt.Sprintf("AddToDiag: diagonal block (%d,%d) not allocated", i, i))
	}
	for n := 0; n < bs.blockRows; n++ {
		bs.data[offset+n*bs.blockCols+n] += val
	}
}

// DeleteRow replaces scalar equation iVar of block row i with the identity:
// the full row is zeroed across every allocated block and the diagonal entry
// is set to one. Used for Dirichlet-type replacements of single equations.
func (bs *BlockSparse) DeleteRow(i, iVar int) {
	for _, j := range bs.rowCols[i] {
		offset := bs.addresses[[2]int{i, j}]
		row := bs.data[offset+iVar*bs.blockCols : offset+(iVar+1)*bs.blockCols]
		for n := range row {
			row[n] = 0
		}
		if j == i {
			row[iVar] = 1
		}
	}
}

// MatVec computes b = A*x for flat vectors of length NrBlocks*blockRows
// (x of length NcBlocks*blockCols). b must be preallocated.
func (bs *BlockSparse) MatVec(x, b []float64) {
	var (
		nr, nc = bs.blockRows, bs.blockCols
	)
	for i := 0; i < bs.NrBlocks; i++ {
		bi := b[i*nr : (i+1)*nr]
		for n := range bi {
			bi[n] = 0
		}
		for _, j := range bs.rowCols[i] {
			offset := bs.addresses[[2]int{i, j}]
			blk := bs.data[offset : offset+nr*nc]
			xj := x[j*nc : (j+1)*nc]
			for r := 0; r < nr; r++ {
				var sum float64
				row := blk[r*nc : (r+1)*nc]
				for c, val := range row {
					sum += val * xj[c]
				}
				bi[r] += sum
			}
		}
	}
}

// blockMulSub computes y -= blk*x for a single row-major block.
func blockMulSub(blk []float64, x, y []float64, nr, nc int) {
	for r := 0; r < nr; r++ {
		var sum float64
		row := blk[r*nc : (r+1)*nc]
		for c, val := range row {
			sum += val * x[c]
		}
		y[r] -= sum
	}
}
