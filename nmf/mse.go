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
)

// MSE returns the mean squared reconstruction error
// ‖ 𝐀 - 𝐰ᵀ·𝚍𝚒𝚊𝚐(𝐝)·𝐡 ‖²_F / (m·n) of a factor model.
//
// w may be supplied in either orientation: when its row count equals the
// row count of h it is taken as the k×m driver layout and transposed
// internally, otherwise it must already be m×k. The diagonal is folded
// into w before the column sweep.
func MSE(a Matrix, w *Dense, d []float64, h *Dense, threads int) (float64, error) {
	m, n := a.Dims()
	k := len(d)
	hr, hc := h.Dims()
	if hr != k || hc != n {
		return 0, fmt.Errorf("%w: h is %d×%d, want %d×%d", ErrDimension, hr, hc, k, n)
	}

	// Orient w tall (m×k, column-major) and scale column j by d[j].
	wr, wc := w.Dims()
	tall := make([]float64, m*k)
	switch {
	case wr == hr && wc == m: // k×m driver layout
		for j := 0; j < m; j++ {
			col := w.Col(j)
			for i, v := range col {
				tall[i*m+j] = v
			}
		}
	case wr == m && wc == k:
		copy(tall, w.data)
	default:
		return 0, fmt.Errorf("%w: w is %d×%d, want %d×%d or %d×%d", ErrDimension, wr, wc, k, m, m, k)
	}
	for j := 0; j < k; j++ {
		floats.Scale(d[j], tall[j*m:(j+1)*m])
	}

	workers := threads
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	losses := make([]float64, n)
	var next atomic.Int64
	var grp errgroup.Group
	for t := 0; t < workers; t++ {
		grp.Go(func() error {
			wh := make([]float64, m)
			for {
				j := int(next.Add(1)) - 1
				if j >= n {
					return nil
				}
				clear(wh)
				hcol := h.data[j*k : j*k+k]
				for c, v := range hcol {
					floats.AddScaled(wh, v, tall[c*m:(c+1)*m])
				}
				rows, vals := a.colEntries(j)
				if rows == nil {
					floats.Sub(wh, vals)
				} else {
					for p, i := range rows {
						wh[i] -= vals[p]
					}
				}
				losses[j] = floats.Dot(wh, wh)
			}
		})
	}
	if err := grp.Wait(); err != nil {
		return 0, err
	}
	return floats.Sum(losses) / (float64(m) * float64(n)), nil
}
