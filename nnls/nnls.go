// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nnls solves least-squares problems 𝚖𝚒𝚗 ‖ 𝐚·𝐱 - 𝐛 ‖₂ on a shared
// symmetric positive-definite gram matrix 𝐚, optionally subject to 𝐱 ≥ 0.
//
// The solver combines two stages:
//   - FAST : an active-set heuristic that repeatedly re-solves the
//     unconstrained system on the feasible set { i : 𝐱ᵢ > 0 } with a fresh
//     Cholesky factor of the corresponding principal submatrix.
//   - CD : sequential coordinate descent on the full system, which refines
//     the FAST iterate to the exact (non-negative) least-squares solution.
//
// The gram matrix is factorized once and may be shared by any number of
// goroutines solving different right-hand sides concurrently.
package nnls

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ridge added to the gram diagonal before factorization to keep the
// Cholesky numerically positive-definite.
const ridge = 1e-15

var (
	// ErrDimension input slice lengths do not match the declared dimensions.
	ErrDimension = errors.New("nnls: dimension mismatch")
	// ErrNotPosDef the gram matrix (or a principal submatrix of it) is not positive definite.
	ErrNotPosDef = errors.New("nnls: gram matrix is not positive definite")
)

// Options control the two solver stages.
//
// A non-positive CDMaxIter disables the coordinate descent stage and the
// FAST iterate is returned as-is, so its entries may be slightly negative
// even when NonNeg is set.
type Options struct {
	// FastMaxIter is the maximum number of feasible set reductions.
	FastMaxIter int
	// CDMaxIter is the maximum number of coordinate descent passes.
	CDMaxIter int
	// CDTol stops coordinate descent once the largest relative change
	// of any coordinate within one pass falls below it.
	CDTol float64
	// NonNeg constrains the solution to 𝐱 ≥ 0.
	NonNeg bool
}

// Gram is a k×k symmetric positive-definite matrix together with its
// Cholesky factor. The factor is computed once on construction and is
// read-only afterwards, so a single Gram may back concurrent solves.
type Gram struct {
	k    int
	data []float64 // k×k dense symmetric, column-major
	chol mat.Cholesky
}

// NewGram builds a gram matrix from the k×k symmetric matrix a
// (column-major, fully populated). The data is copied, ridge-regularized
// on the diagonal and factorized.
func NewGram(k int, a []float64) (*Gram, error) {
	if k <= 0 || len(a) < k*k {
		return nil, ErrDimension
	}
	data := make([]float64, k*k)
	copy(data, a[:k*k])
	return newGram(k, data)
}

// ProductGram builds the gram matrix 𝐚 = 𝐰·𝐰ᵀ of a k×m factor matrix w
// (column-major, leading dimension k), ridge-regularized and factorized.
func ProductGram(w []float64, k, m int) (*Gram, error) {
	if k <= 0 || m < 0 || len(w) < k*m {
		return nil, ErrDimension
	}
	data := make([]float64, k*k)
	for c := 0; c < m; c++ {
		wc := w[c*k : c*k+k]
		for i, wi := range wc {
			if wi != 0 {
				floats.AddScaled(data[i*k:i*k+k], wi, wc)
			}
		}
	}
	return newGram(k, data)
}

func newGram(k int, data []float64) (*Gram, error) {
	for i := 0; i < k; i++ {
		data[i*k+i] += ridge
	}
	g := &Gram{k: k, data: data}
	// The column-major data of a symmetric matrix reads identically row-major.
	if !g.chol.Factorize(mat.NewSymDense(k, data)) {
		return nil, ErrNotPosDef
	}
	return g, nil
}

// Dim returns the dimension k of the gram matrix.
func (g *Gram) Dim() int { return g.k }

// At returns the ridge-regularized element 𝐚ᵢⱼ.
func (g *Gram) At(i, j int) float64 {
	if uint(i) >= uint(g.k) || uint(j) >= uint(g.k) {
		panic("nnls: gram index out of range")
	}
	return g.data[j*g.k+i]
}

// col returns the contiguous j-th column (equal to the j-th row).
func (g *Gram) col(j int) []float64 {
	return g.data[j*g.k : j*g.k+g.k]
}
