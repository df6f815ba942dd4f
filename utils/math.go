package utils

// GaussElimination solves A*rhs = b in place of rhs by straight Gaussian
// elimination with an EPS-regularized pivot. A is overwritten.
func GaussElimination(A [][]float64, rhs []float64) {
	var (
		n = len(rhs)
	)
	if n == 1 {
		rhs[0] /= A[0][0] + EPS*EPS
		return
	}
	// Transform system into upper triangular form
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			weight := A[i][j] / (A[j][j] + EPS*EPS)
			for k := j; k < n; k++ {
				A[i][k] -= weight * A[j][k]
			}
			rhs[i] -= weight * rhs[j]
		}
	}
	// Backwards substitution
	rhs[n-1] = rhs[n-1] / (A[n-1][n-1] + EPS*EPS)
	for i := n - 2; i >= 0; i-- {
		var aux float64
		for j := i + 1; j < n; j++ {
			aux += A[i][j] * rhs[j]
		}
		rhs[i] = (rhs[i] - aux) / (A[i][i] + EPS*EPS)
	}
}
