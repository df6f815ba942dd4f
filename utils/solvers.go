package utils

import (
	"math"
)

// Iterative solution of block-sparse linear systems A*x = b with flat vectors.
// Non-convergence is not an error: every solver returns its best iterate along
// with the achieved relative residual and the iteration count, and the caller
// monitors convergence through the returned residual.

type Preconditioner interface {
	// Apply computes z = M^{-1} r. z and r may not alias.
	Apply(r, z []float64)
}

type IdentityPrec struct{}

func (IdentityPrec) Apply(r, z []float64) { copy(z, r) }

// BlockJacobiPrec inverts each diagonal block once at construction.
type BlockJacobiPrec struct {
	invDiag []Matrix
	nVar    int
}

func NewBlockJacobiPrec(A *BlockSparse) (p *BlockJacobiPrec) {
	var (
		nVar, _ = A.BlockDims()
	)
	p = &BlockJacobiPrec{
		invDiag: make([]Matrix, A.NrBlocks),
		nVar:    nVar,
	}
	for i := 0; i < A.NrBlocks; i++ {
		p.invDiag[i] = invertDiagBlock(A, i)
	}
	return
}

func (p *BlockJacobiPrec) Apply(r, z []float64) {
	var (
		nVar = p.nVar
	)
	for i := range p.invDiag {
		p.invDiag[i].MatVec(r[i*nVar:(i+1)*nVar], z[i*nVar:(i+1)*nVar])
	}
}

// LineletPrec solves block-tridiagonal systems along precomputed point chains
// (lines of tightly coupled points, typically normal to walls) and falls back
// to block Jacobi everywhere else.
type LineletPrec struct {
	A       *BlockSparse
	lines   [][]int
	inLine  []bool
	invDiag []Matrix
	nVar    int
}

func NewLineletPrec(A *BlockSparse, lines [][]int) (p *LineletPrec) {
	var (
		nVar, _ = A.BlockDims()
	)
	p = &LineletPrec{
		A:       A,
		lines:   lines,
		inLine:  make([]bool, A.NrBlocks),
		invDiag: make([]Matrix, A.NrBlocks),
		nVar:    nVar,
	}
	for _, line := range lines {
		for _, i := range line {
			p.inLine[i] = true
		}
	}
	for i := 0; i < A.NrBlocks; i++ {
		p.invDiag[i] = invertDiagBlock(A, i)
	}
	return
}

func (p *LineletPrec) Apply(r, z []float64) {
	var (
		nVar = p.nVar
	)
	for i := 0; i < p.A.NrBlocks; i++ {
		if !p.inLine[i] {
			p.invDiag[i].MatVec(r[i*nVar:(i+1)*nVar], z[i*nVar:(i+1)*nVar])
		}
	}
	for _, line := range p.lines {
		p.solveLine(line, r, z)
	}
}

// solveLine runs the block Thomas algorithm down one chain of points, using
// the (i,prev) and (i,next) off-diagonal blocks of A as the couplings.
func (p *LineletPrec) solveLine(line []int, r, z []float64) {
	var (
		nVar = p.nVar
		n    = len(line)
		dHat = make([]Matrix, n)
		rHat = make([][]float64, n)
		tmp  = make([]float64, nVar)
	)
	for k := 0; k < n; k++ {
		i := line[k]
		dHat[k] = p.A.GetBlockView(i, i).Copy()
		rHat[k] = make([]float64, nVar)
		copy(rHat[k], r[i*nVar:(i+1)*nVar])
		if k > 0 {
			prev := line[k-1]
			if p.A.HasBlock(i, prev) {
				L := p.A.GetBlockView(i, prev)
				invPrev, err := dHat[k-1].Inverse()
				if err != nil {
					// Degenerate pivot, fall back to Jacobi for this point
					p.invDiag[i].MatVec(r[i*nVar:(i+1)*nVar], z[i*nVar:(i+1)*nVar])
					continue
				}
				LinvD := L.Mul(invPrev)
				if p.A.HasBlock(prev, i) {
					U := p.A.GetBlockView(prev, i)
					dHat[k].Subtract(LinvD.Mul(U))
				}
				LinvD.MatVec(rHat[k-1], tmp)
				for v := 0; v < nVar; v++ {
					rHat[k][v] -= tmp[v]
				}
			}
		}
	}
	// Back substitution
	for k := n - 1; k >= 0; k-- {
		i := line[k]
		rhs := make([]float64, nVar)
		copy(rhs, rHat[k])
		if k < n-1 {
			next := line[k+1]
			if p.A.HasBlock(i, next) {
				U := p.A.GetBlockView(i, next)
				U.MatVec(z[next*nVar:(next+1)*nVar], tmp)
				for v := 0; v < nVar; v++ {
					rhs[v] -= tmp[v]
				}
			}
		}
		if err := dHat[k].LUSolve(rhs); err != nil {
			p.invDiag[i].MatVec(r[i*nVar:(i+1)*nVar], z[i*nVar:(i+1)*nVar])
			continue
		}
		copy(z[i*nVar:(i+1)*nVar], rhs)
	}
}

func invertDiagBlock(A *BlockSparse, i int) (inv Matrix) {
	var (
		nVar, _ = A.BlockDims()
		err     error
	)
	d := A.GetBlockView(i, i).Copy()
	if inv, err = d.Inverse(); err != nil {
		// Regularize a degenerate pivot, matching the EPS guard used in
		// scalar Gaussian elimination
		for v := 0; v < nVar; v++ {
			d.Set(v, v, d.At(v, v)+1.e-14)
		}
		if inv, err = d.Inverse(); err != nil {
			panic(err)
		}
	}
	return
}

// SGS runs symmetric Gauss-Seidel sweeps until the relative residual drops
// below tol or maxIter sweeps complete.
func (bs *BlockSparse) SGS(b, x []float64, tol float64, maxIter int) (res float64, iters int) {
	var (
		nVar, _ = bs.BlockDims()
		invDiag = make([]Matrix, bs.NrBlocks)
		rhs     = make([]float64, nVar)
		normB   = Norm(b)
	)
	if normB < tiny {
		normB = 1
	}
	for i := 0; i < bs.NrBlocks; i++ {
		invDiag[i] = invertDiagBlock(bs, i)
	}
	sweep := func(i int) {
		copy(rhs, b[i*nVar:(i+1)*nVar])
		for _, j := range bs.RowCols(i) {
			if j == i {
				continue
			}
			blk := bs.GetBlockView(i, j)
			blockMulSub(blk.DataP, x[j*nVar:(j+1)*nVar], rhs, nVar, nVar)
		}
		invDiag[i].MatVec(rhs, x[i*nVar:(i+1)*nVar])
	}
	for iters = 1; iters <= maxIter; iters++ {
		for i := 0; i < bs.NrBlocks; i++ {
			sweep(i)
		}
		for i := bs.NrBlocks - 1; i >= 0; i-- {
			sweep(i)
		}
		res = bs.relResidual(b, x, normB)
		if res <= tol {
			return
		}
	}
	iters = maxIter
	return
}

// LUSGS applies the lower-upper symmetric Gauss-Seidel approximate
// factorization as a defect-correction iteration.
func (bs *BlockSparse) LUSGS(b, x []float64, tol float64, maxIter int) (res float64, iters int) {
	var (
		nVar, _ = bs.BlockDims()
		n       = bs.NrBlocks * nVar
		invDiag = make([]Matrix, bs.NrBlocks)
		r       = make([]float64, n)
		y       = make([]float64, n)
		dx      = make([]float64, n)
		rhs     = make([]float64, nVar)
		normB   = Norm(b)
	)
	if normB < tiny {
		normB = 1
	}
	for i := 0; i < bs.NrBlocks; i++ {
		invDiag[i] = invertDiagBlock(bs, i)
	}
	for iters = 1; iters <= maxIter; iters++ {
		// r = b - A x
		bs.MatVec(x, r)
		for i := range r {
			r[i] = b[i] - r[i]
		}
		res = Norm(r) / normB
		if res <= tol {
			return
		}
		// Forward sweep: (D+L) y = r
		for i := 0; i < bs.NrBlocks; i++ {
			copy(rhs, r[i*nVar:(i+1)*nVar])
			for _, j := range bs.RowCols(i) {
				if j >= i {
					break
				}
				blk := bs.GetBlockView(i, j)
				blockMulSub(blk.DataP, y[j*nVar:(j+1)*nVar], rhs, nVar, nVar)
			}
			invDiag[i].MatVec(rhs, y[i*nVar:(i+1)*nVar])
		}
		// Backward sweep: (D+U) dx = D y
		for i := bs.NrBlocks - 1; i >= 0; i-- {
			d := bs.GetBlockView(i, i)
			d.MatVec(y[i*nVar:(i+1)*nVar], rhs)
			for _, j := range bs.RowCols(i) {
				if j <= i {
					continue
				}
				blk := bs.GetBlockView(i, j)
				blockMulSub(blk.DataP, dx[j*nVar:(j+1)*nVar], rhs, nVar, nVar)
			}
			invDiag[i].MatVec(rhs, dx[i*nVar:(i+1)*nVar])
		}
		for i := range x {
			x[i] += dx[i]
		}
	}
	iters = maxIter
	bs.MatVec(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	res = Norm(r) / normB
	return
}

// BCGSTAB is the preconditioned stabilized bi-conjugate gradient method.
func (bs *BlockSparse) BCGSTAB(b, x []float64, tol float64, maxIter int, M Preconditioner) (res float64, iters int) {
	var (
		nVar, _ = bs.BlockDims()
		n       = bs.NrBlocks * nVar
		r       = make([]float64, n)
		rTilde  = make([]float64, n)
		p       = make([]float64, n)
		pHat    = make([]float64, n)
		s       = make([]float64, n)
		sHat    = make([]float64, n)
		v       = make([]float64, n)
		t       = make([]float64, n)
		normB   = Norm(b)
	)
	if normB < tiny {
		normB = 1
	}
	bs.MatVec(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	copy(rTilde, r)
	var rhoOld, alpha, omega float64 = 1, 1, 1
	res = Norm(r) / normB
	if res <= tol {
		return
	}
	for iters = 1; iters <= maxIter; iters++ {
		rho := Dot(rTilde, r)
		if math.Abs(rho) < tiny {
			return // breakdown, return best iterate
		}
		if iters == 1 {
			copy(p, r)
		} else {
			beta := (rho / rhoOld) * (alpha / omega)
			for i := range p {
				p[i] = r[i] + beta*(p[i]-omega*v[i])
			}
		}
		M.Apply(p, pHat)
		bs.MatVec(pHat, v)
		alpha = rho / Dot(rTilde, v)
		for i := range s {
			s[i] = r[i] - alpha*v[i]
		}
		if Norm(s)/normB <= tol {
			for i := range x {
				x[i] += alpha * pHat[i]
			}
			res = Norm(s) / normB
			return
		}
		M.Apply(s, sHat)
		bs.MatVec(sHat, t)
		tt := Dot(t, t)
		if tt < tiny {
			return
		}
		omega = Dot(t, s) / tt
		for i := range x {
			x[i] += alpha*pHat[i] + omega*sHat[i]
		}
		for i := range r {
			r[i] = s[i] - omega*t[i]
		}
		rhoOld = rho
		res = Norm(r) / normB
		if res <= tol {
			return
		}
		if math.Abs(omega) < tiny {
			return
		}
	}
	iters = maxIter
	return
}

// GMRES is the restarted generalized minimal residual method with right
// preconditioning and Givens-rotation least squares.
func (bs *BlockSparse) GMRES(b, x []float64, tol float64, maxIter int, M Preconditioner) (res float64, iters int) {
	var (
		nVar, _ = bs.BlockDims()
		n       = bs.NrBlocks * nVar
		restart = maxIter
		normB   = Norm(b)
	)
	if restart > 50 {
		restart = 50
	}
	if normB < tiny {
		normB = 1
	}
	var (
		r    = make([]float64, n)
		w    = make([]float64, n)
		z    = make([]float64, n)
		V    = make([][]float64, restart+1)
		H    = make([][]float64, restart+1)
		cs   = make([]float64, restart+1)
		sn   = make([]float64, restart+1)
		g    = make([]float64, restart+1)
		y    = make([]float64, restart)
		zSum = make([]float64, n)
	)
	for i := range V {
		V[i] = make([]float64, n)
		H[i] = make([]float64, restart)
	}
	for iters < maxIter {
		bs.MatVec(x, r)
		for i := range r {
			r[i] = b[i] - r[i]
		}
		beta := Norm(r)
		res = beta / normB
		if res <= tol {
			return
		}
		for i := range g {
			g[i] = 0
		}
		g[0] = beta
		for i := range r {
			V[0][i] = r[i] / beta
		}
		var k int
		for k = 0; k < restart && iters < maxIter; k++ {
			iters++
			M.Apply(V[k], z)
			bs.MatVec(z, w)
			// Modified Gram-Schmidt
			for i := 0; i <= k; i++ {
				H[i][k] = Dot(V[i], w)
				for m := range w {
					w[m] -= H[i][k] * V[i][m]
				}
			}
			H[k+1][k] = Norm(w)
			if H[k+1][k] > tiny {
				for m := range w {
					V[k+1][m] = w[m] / H[k+1][k]
				}
			}
			// Apply accumulated Givens rotations to the new column
			for i := 0; i < k; i++ {
				h0 := cs[i]*H[i][k] + sn[i]*H[i+1][k]
				H[i+1][k] = -sn[i]*H[i][k] + cs[i]*H[i+1][k]
				H[i][k] = h0
			}
			denom := math.Hypot(H[k][k], H[k+1][k])
			if denom < tiny {
				break
			}
			cs[k], sn[k] = H[k][k]/denom, H[k+1][k]/denom
			H[k][k] = denom
			H[k+1][k] = 0
			g[k+1] = -sn[k] * g[k]
			g[k] = cs[k] * g[k]
			res = math.Abs(g[k+1]) / normB
			if res <= tol {
				k++
				break
			}
		}
		// Solve the upper triangular system H y = g
		for i := k - 1; i >= 0; i-- {
			y[i] = g[i]
			for j := i + 1; j < k; j++ {
				y[i] -= H[i][j] * y[j]
			}
			y[i] /= H[i][i]
		}
		// x += M^{-1} (V y)
		for i := range zSum {
			zSum[i] = 0
		}
		for j := 0; j < k; j++ {
			for i := range zSum {
				zSum[i] += y[j] * V[j][i]
			}
		}
		M.Apply(zSum, z)
		for i := range x {
			x[i] += z[i]
		}
		if res <= tol {
			return
		}
	}
	bs.MatVec(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	res = Norm(r) / normB
	return
}

func (bs *BlockSparse) relResidual(b, x []float64, normB float64) (res float64) {
	var (
		nVar, _ = bs.BlockDims()
		r       = make([]float64, bs.NrBlocks*nVar)
	)
	bs.MatVec(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	return Norm(r) / normB
}

const tiny = 1.e-30

func Dot(a, b []float64) (sum float64) {
	for i, val := range a {
		sum += val * b[i]
	}
	return
}

func Norm(a []float64) float64 {
	return math.Sqrt(Dot(a, a))
}
