// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nmf

import (
	"fmt"
	"slices"
)

// Fit2 factorizes the sample matrix at rank 2 starting from the 2×n
// initial coefficients h0.
//
// The rank-2 path replaces the shared-gram Cholesky machinery entirely: the
// 2×2 gram is carried as three scalars and each column is solved by the
// closed-form branch solver. The basis is updated first from the current
// coefficients, then the coefficients from the fresh basis, and convergence
// is measured on the coefficients rather than the basis. The iteration is
// sequential: the scalar inner loop leaves no work worth forking.
//
// On exit, with Diag set, the two factors are swapped when 𝐝₀ < 𝐝₁ (rows
// of 𝐰, rows of 𝐡 and the entries of 𝐝) so that 𝐝 is descending.
func (s *Solver) Fit2(h0 *Dense) (*Result, error) {
	if s.k != 2 {
		return nil, fmt.Errorf("%w: rank-2 driver on rank-%d problem", ErrDimension, s.k)
	}
	if hr, hc := h0.Dims(); hr != 2 || hc != s.n {
		return nil, fmt.Errorf("%w: initial h is %d×%d, want 2×%d", ErrDimension, hr, hc, s.n)
	}

	m, n := s.m, s.n
	h := slices.Clone(h0.data)
	w := make([]float64, 2*m)
	wb := make([]float64, 2*m)
	d := ones(2)

	s.log.log("\n%4s | %8s \n---------------\n", "iter", "tol")

	tolIt := 1.0
	it := 0
	interrupted := false
	for ; it < s.maxIter; it++ {
		if s.cancelled() {
			interrupted = true
			break
		}

		// update w : gather 𝐛 = 𝐡·𝐀ᵀ column-wise into wb, then solve per row of A
		a00, a01, a11 := gram2(h, n)
		denom := a00*a11 - a01*a01
		if denom == 0 {
			return nil, ErrSingular
		}
		clear(wb)
		for j := 0; j < n; j++ {
			h0j, h1j := h[2*j], h[2*j+1]
			rows, vals := s.a.colEntries(j)
			if rows == nil {
				for i, v := range vals {
					wb[2*i] += v * h0j
					wb[2*i+1] += v * h1j
				}
			} else {
				for p, i := range rows {
					wb[2*i] += vals[p] * h0j
					wb[2*i+1] += vals[p] * h1j
				}
			}
		}
		for i := 0; i < m; i++ {
			w[2*i], w[2*i+1] = solve2(a00, a01, a11, denom, wb[2*i], wb[2*i+1], s.nonneg)
		}
		if s.diag {
			rescale(w, 2, m, d)
		}

		if s.cancelled() {
			interrupted = true
			break
		}

		// update h
		hPrev := slices.Clone(h)
		a00, a01, a11 = gram2(w, m)
		denom = a00*a11 - a01*a01
		if denom == 0 {
			return nil, ErrSingular
		}
		for j := 0; j < n; j++ {
			var b0, b1 float64
			rows, vals := s.a.colEntries(j)
			if rows == nil {
				for i, v := range vals {
					b0 += v * w[2*i]
					b1 += v * w[2*i+1]
				}
			} else {
				for p, i := range rows {
					b0 += vals[p] * w[2*i]
					b1 += vals[p] * w[2*i+1]
				}
			}
			h[2*j], h[2*j+1] = solve2(a00, a01, a11, denom, b0, b1, s.nonneg)
		}
		if s.diag {
			rescale(h, 2, n, d)
		}

		tolIt = cor(h, hPrev)
		s.log.log("%4d | %8.2e\n", it+1, tolIt)
		if tolIt < s.tol {
			break
		}
	}

	// sort the two factors by diagonal value
	if s.diag && d[0] < d[1] {
		swapRows2(w, m)
		swapRows2(h, n)
		d[0], d[1] = d[1], d[0]
	}

	return &Result{
		W:           &Dense{rows: m, cols: 2, data: transpose(w, 2, m)},
		D:           d,
		H:           &Dense{rows: 2, cols: n, data: h},
		Tol:         tolIt,
		Iter:        it,
		Interrupted: interrupted,
	}, nil
}

// gram2 returns the three distinct entries of the ridge-regularized 2×2
// gram 𝐱·𝐱ᵀ of a 2×n column-major factor.
func gram2(x []float64, n int) (a00, a01, a11 float64) {
	for j := 0; j < n; j++ {
		x0, x1 := x[2*j], x[2*j+1]
		a00 += x0 * x0
		a01 += x0 * x1
		a11 += x1 * x1
	}
	a00 += ridge
	a11 += ridge
	return
}

// solve2 solves the 2×2 system 𝐚·𝐱 = 𝐛 in closed form. Under the
// non-negativity constraint the solution is either interior or lies on one
// of the two axes; the branch tests pick the axis directly.
func solve2(a00, a01, a11, denom, b0, b1 float64, nonneg bool) (x0, x1 float64) {
	if nonneg {
		a01b1 := a01 * b1
		a11b0 := a11 * b0
		if a11b0 < a01b1 {
			return 0, b1 / a11
		}
		a01b0 := a01 * b0
		a00b1 := a00 * b1
		if a00b1 < a01b0 {
			return b0 / a00, 0
		}
		return (a11b0 - a01b1) / denom, (a00b1 - a01b0) / denom
	}
	return (a11*b0 - a01*b1) / denom, (a00*b1 - a01*b0) / denom
}

// swapRows2 exchanges the two rows of a 2×n column-major factor.
func swapRows2(x []float64, n int) {
	for j := 0; j < n; j++ {
		x[2*j], x[2*j+1] = x[2*j+1], x[2*j]
	}
}
