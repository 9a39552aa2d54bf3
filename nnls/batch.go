// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nnls

// SolveBatch applies the two-stage solver to every column of the k×n
// right-hand-side matrix b (column-major, leading dimension k), writing
// the solutions into the matching columns of x. The gram factor is built
// once by the caller and shared across all columns.
func SolveBatch(g *Gram, n int, b, x []float64, opt Options) error {
	k := g.k
	if n < 0 || len(b) < k*n || len(x) < k*n {
		return ErrDimension
	}
	for j := 0; j < n; j++ {
		if err := g.Solve(b[j*k:j*k+k], x[j*k:j*k+k], opt); err != nil {
			return err
		}
	}
	return nil
}

// CoordDescentBatch refines every column of the k×n matrix x in place by
// coordinate descent against the matching column of b, starting from the
// caller-supplied iterate. See CoordDescent for the update rule.
func CoordDescentBatch(g *Gram, n int, b, x []float64, maxIter int, tol float64, nonneg bool) error {
	k := g.k
	if n < 0 || len(b) < k*n || len(x) < k*n {
		return ErrDimension
	}
	for j := 0; j < n; j++ {
		g.CoordDescent(b[j*k:j*k+k], x[j*k:j*k+k], maxIter, tol, nonneg)
	}
	return nil
}
