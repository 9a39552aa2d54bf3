// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nnls

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Solve computes the least-squares solution of 𝐚·𝐱 = 𝐛 into x, subject to
// 𝐱 ≥ 0 when opt.NonNeg is set.
//
// Stage 1 (FAST) starts from the unconstrained solution of the shared
// Cholesky factor. While any 𝐱ᵢ < 0 and the iteration budget lasts, the
// system is re-solved on the principal submatrix indexed by the feasible
// set F = { i : 𝐱ᵢ > 0 } and entries outside F are zeroed. The stage is a
// heuristic: it converges in very few rounds when the true active set is
// small, but may stop with residual negative entries.
//
// Stage 2 refines the iterate by coordinate descent (see CoordDescent),
// which guarantees the constrained optimum. With opt.CDMaxIter <= 0 the
// FAST iterate is returned directly.
//
// b is read-only, x is overwritten. Both must have at least Dim elements.
func (g *Gram) Solve(b, x []float64, opt Options) error {
	k := g.k
	if len(b) < k || len(x) < k {
		return ErrDimension
	}
	b, x = b[:k], x[:k]

	// Unconstrained solution from the shared factor.
	if err := g.chol.SolveVecTo(mat.NewVecDense(k, x), mat.NewVecDense(k, b)); err != nil {
		return ErrNotPosDef
	}

	var feas []int
	for it := 0; opt.NonNeg && it < opt.FastMaxIter && anyNegative(x); it++ {
		feas = feas[:0]
		for i, xi := range x {
			if xi > 0 {
				feas = append(feas, i)
			}
		}
		if len(feas) == 0 {
			clear(x)
			break
		}
		if err := g.solveSubset(feas, b, x); err != nil {
			return err
		}
	}

	if opt.CDMaxIter <= 0 {
		return nil
	}
	g.CoordDescent(b, x, opt.CDMaxIter, opt.CDTol, opt.NonNeg)
	return nil
}

// solveSubset solves 𝐚[F,F]·𝐱[F] = 𝐛[F] with a fresh Cholesky factor of the
// principal submatrix and scatters the solution back, zeroing x outside F.
func (g *Gram) solveSubset(feas []int, b, x []float64) error {
	nf := len(feas)
	sub := mat.NewSymDense(nf, nil)
	bs := make([]float64, nf)
	for i, fi := range feas {
		bs[i] = b[fi]
		for j := i; j < nf; j++ {
			sub.SetSym(i, j, g.data[feas[j]*g.k+fi])
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(sub) {
		return ErrNotPosDef
	}
	xs := mat.NewVecDense(nf, nil)
	if err := chol.SolveVecTo(xs, mat.NewVecDense(nf, bs)); err != nil {
		return ErrNotPosDef
	}
	clear(x)
	for i, fi := range feas {
		x[fi] = xs.AtVec(i)
	}
	return nil
}

// CoordDescent refines x in place by sequential coordinate descent on
// 𝐚·𝐱 = 𝐛, clamping each update at zero when nonneg is set.
//
// The residual 𝐫 = 𝐚·𝐱 - 𝐛 is maintained incrementally. Coordinates are
// visited in order 0..k-1; that order is part of the algorithm, not an
// implementation detail. A pass records the relative change
// 2·|𝐱ᵢ - 𝐱ᵢ′| / (𝐱ᵢ′ + 𝐱ᵢ + 1e-16) of every moved coordinate and the
// iteration stops once the largest such change drops below tol.
func (g *Gram) CoordDescent(b, x []float64, maxIter int, tol float64, nonneg bool) {
	k := g.k
	b, x = b[:k], x[:k]

	r := make([]float64, k)
	for i, xi := range x {
		if xi != 0 {
			floats.AddScaled(r, xi, g.col(i))
		}
	}
	floats.Sub(r, b)

	for it, change := 0, 1+tol; it < maxIter && change > tol; it++ {
		change = 0
		for i := range x {
			xi := x[i] - r[i]/g.data[i*k+i]
			if nonneg && xi < 0 {
				xi = 0
			}
			if xi != x[i] {
				floats.AddScaled(r, xi-x[i], g.col(i))
				if c := 2 * math.Abs(x[i]-xi) / (xi + x[i] + 1e-16); c > change {
					change = c
				}
				x[i] = xi
			}
		}
	}
}

func anyNegative(x []float64) bool {
	for _, xi := range x {
		if xi < 0 {
			return true
		}
	}
	return false
}
