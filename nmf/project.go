// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nmf

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nmf/nnls"
)

// ProjectOptions control a projection. The embedded solver options are
// passed through to nnls unchanged: a zero Options value means a single
// unconstrained Cholesky solve per column.
type ProjectOptions struct {
	nnls.Options
	// L1 is subtracted from every entry of the right-hand side,
	// shrinking the projected coefficients toward zero.
	L1 float64
	// Threads caps the worker count of the parallel region.
	// Non-positive means one worker per available CPU.
	Threads int
}

// Project solves 𝐰ᵀ·𝐡ⱼ ≅ 𝐚ⱼ for every column j of a, producing the k×n
// coefficient matrix h. The gram matrix 𝐰·𝐰ᵀ is formed and factorized once
// and shared read-only across all workers; columns are distributed
// dynamically and each worker keeps a private right-hand-side scratch.
//
// w is k×m where m is the row count of a.
func Project(a Matrix, w *Dense, opt ProjectOptions) (*Dense, error) {
	m, n := a.Dims()
	k, wc := w.Dims()
	if wc != m {
		return nil, fmt.Errorf("%w: factor is %d×%d but matrix has %d rows", ErrDimension, k, wc, m)
	}
	h, err := project(a, w.data, k, opt)
	if err != nil {
		return nil, err
	}
	return &Dense{rows: k, cols: n, data: h}, nil
}

// project is the slice-level projection shared by the drivers.
// w is k×m column-major, the result is k×n column-major.
func project(a Matrix, w []float64, k int, opt ProjectOptions) ([]float64, error) {
	m, n := a.Dims()

	gram, err := nnls.ProductGram(w, k, m)
	if err != nil {
		return nil, err
	}
	h := make([]float64, k*n)

	workers := opt.Threads
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	var next atomic.Int64
	var grp errgroup.Group
	for t := 0; t < workers; t++ {
		grp.Go(func() error {
			b := make([]float64, k)
			for {
				j := int(next.Add(1)) - 1
				if j >= n {
					return nil
				}
				clear(b)
				gather(a, j, w, k, b)
				if opt.L1 != 0 {
					floats.AddConst(-opt.L1, b)
				}
				if err := gram.Solve(b, h[j*k:j*k+k], opt.Options); err != nil {
					return err
				}
			}
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return h, nil
}

// gather accumulates 𝐛 += 𝐰·𝐚ⱼ over the entries of column j.
func gather(a Matrix, j int, w []float64, k int, b []float64) {
	rows, vals := a.colEntries(j)
	if rows == nil {
		for i, v := range vals {
			floats.AddScaled(b, v, w[i*k:i*k+k])
		}
		return
	}
	for p, i := range rows {
		floats.AddScaled(b, vals[p], w[i*k:i*k+k])
	}
}
