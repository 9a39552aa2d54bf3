// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nmf

import (
	"errors"
	"fmt"
	"slices"
)

// Fit factorizes the sample matrix by alternating least squares starting
// from the k×m initial basis w0.
//
// Each iteration projects the coefficients 𝐡 from the current basis, then
// the basis 𝐰 from the fresh coefficients (against 𝐀ᵀ unless the problem
// is symmetric). With Diag set, every factor update is followed by a row
// rescale that moves the row sums onto 𝐝. Convergence is measured as
// 1 - 𝚙𝚎𝚊𝚛𝚜𝚘𝚗 of the flattened basis against its previous iterate.
//
// On exit the factors are reordered by 𝐝 descending (Diag only) and the
// basis is returned transposed as m×k.
func (s *Solver) Fit(w0 *Dense) (*Result, error) {
	if wr, wc := w0.Dims(); wr != s.k || wc != s.m {
		return nil, fmt.Errorf("%w: initial w is %d×%d, want %d×%d", ErrDimension, wr, wc, s.k, s.m)
	}
	if !s.symmetric && s.at == nil {
		return nil, errors.New("nmf: sparse asymmetric problem requires the transpose At")
	}

	k, m, n := s.k, s.m, s.n
	w := slices.Clone(w0.data)
	h := make([]float64, k*n)
	d := ones(k)

	hOpt := ProjectOptions{Options: s.opt, L1: s.l1h, Threads: s.threads}
	wOpt := ProjectOptions{Options: s.opt, L1: s.l1w, Threads: s.threads}

	s.log.log("\n%4s | %8s \n---------------\n", "iter", "tol")

	tolIt := 1.0
	it := 0
	interrupted := false
	for ; it < s.maxIter; it++ {
		if s.cancelled() {
			interrupted = true
			break
		}

		// update h
		var err error
		if h, err = project(s.a, w, k, hOpt); err != nil {
			return nil, err
		}
		if s.diag {
			rescale(h, k, n, d)
		}

		if s.cancelled() {
			interrupted = true
			break
		}

		// update w
		wPrev := w
		if s.symmetric {
			w, err = project(s.a, h, k, wOpt)
		} else {
			w, err = project(s.at, h, k, wOpt)
		}
		if err != nil {
			return nil, err
		}
		if s.diag {
			rescale(w, k, m, d)
		}

		tolIt = cor(w, wPrev)
		s.log.log("%4d | %8.2e\n", it+1, tolIt)
		if tolIt < s.tol {
			break
		}
	}

	if s.diag {
		idx := sortIndex(d)
		w = reorderRows(w, k, m, idx)
		h = reorderRows(h, k, n, idx)
		d = reorder(d, idx)
	}

	return &Result{
		W:           &Dense{rows: m, cols: k, data: transpose(w, k, m)},
		D:           d,
		H:           &Dense{rows: k, cols: n, data: h},
		Tol:         tolIt,
		Iter:        it,
		Interrupted: interrupted,
	}, nil
}
