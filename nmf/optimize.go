// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nmf

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/curioloop/nmf/nnls"
)

// Logger writes the per-iteration progress table of a solver.
// The writer must be thread-safe if one logger is shared between solvers.
type Logger struct {
	Out io.Writer // destination, defaults to os.Stdout
}

func (l *Logger) log(format string, a ...any) {
	if l == nil {
		return
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

// Termination specifies the stopping criteria of the alternating iteration.
type Termination struct {
	// Tol stops the iteration once 1 - 𝚙𝚎𝚊𝚛𝚜𝚘𝚗(𝐰ᵢₜ, 𝐰ᵢₜ₋₁) of the
	// flattened successive basis iterates falls below it (Fit2 measures
	// the coefficients 𝐡 instead). Default 1e-3.
	Tol float64
	// MaxIterations caps the number of alternating iterations. Default 100.
	MaxIterations int
}

// Problem specifies a factorization 𝐀 ≈ 𝐰ᵀ·𝚍𝚒𝚊𝚐(𝐝)·𝐡 solved by
// alternating least squares.
type Problem struct {
	// A is the m×n sample matrix, dense or sparse.
	A Matrix
	// At is the n×m transpose of A. Required for sparse asymmetric
	// problems; derived automatically for dense ones; not used when
	// Symmetric is set, though a supplied At must still be n×m.
	At Matrix
	// Rank is the factorization rank k.
	Rank int
	// Symmetric solves both updates against A itself (A must be square).
	Symmetric bool
	// NonNeg constrains both factors to non-negative entries.
	NonNeg bool
	// Diag rescales each factor row to unit sum after its update,
	// carrying the scale on the diagonal 𝐝. The returned factors are
	// sorted by 𝐝 descending.
	Diag bool
	// L1W and L1H apply L1 shrinkage to the respective factor updates.
	L1W, L1H float64
	// NNLS configures the column solver. Zero values select the
	// defaults fast_maxit=10, cd_maxit=100, cd_tol=1e-8; a negative
	// CDMaxIter disables the coordinate descent stage.
	NNLS nnls.Options
	// Stop configures the outer iteration. Zero values select defaults.
	Stop Termination
	// Threads caps the workers of each projection. Non-positive means
	// one worker per available CPU.
	Threads int
	// Verbose prints one table line per iteration through Log.
	Verbose bool
	// Log receives the progress table. Nil with Verbose selects stdout.
	Log *Logger
	// Cancel is polled at the start of every iteration and between the
	// two factor updates. Returning true stops the solver cooperatively:
	// the partial factors are returned and Result.Interrupted is set.
	Cancel func() bool
}

// Solver is a validated factorization problem ready to run.
type Solver struct {
	a, at                   Matrix
	m, n, k                 int
	symmetric, nonneg, diag bool
	l1w, l1h                float64
	opt                     nnls.Options
	tol                     float64
	maxIter                 int
	threads                 int
	log                     *Logger
	cancel                  func() bool
}

// Result is the factor model produced by a solver.
type Result struct {
	// W is the m×k basis factor, returned transposed relative to the
	// internal k×m layout.
	W *Dense
	// D is the length-k diagonal scale. All ones unless Diag is set.
	D []float64
	// H is the k×n coefficient factor.
	H *Dense
	// Tol is the convergence metric of the last iteration.
	Tol float64
	// Iter is the zero-based index of the iteration in which the run
	// converged or was cancelled, or MaxIterations when the iteration
	// cap was reached.
	Iter int
	// Interrupted reports that the cancellation hook stopped the run.
	Interrupted bool
}

// New validates the problem, fills defaults and returns a solver.
func (p *Problem) New() (*Solver, error) {
	if p.A == nil {
		return nil, errors.New("nmf: sample matrix is required")
	}
	m, n := p.A.Dims()

	stop := p.Stop
	if stop.Tol == 0 {
		stop.Tol = 1e-3
	}
	if stop.MaxIterations == 0 {
		stop.MaxIterations = 100
	}
	opt := p.NNLS
	opt.NonNeg = p.NonNeg
	if opt.FastMaxIter == 0 {
		opt.FastMaxIter = 10
	}
	if opt.CDMaxIter == 0 {
		opt.CDMaxIter = 100
	}
	if opt.CDTol == 0 {
		opt.CDTol = 1e-8
	}

	at := p.At
	if !p.Symmetric && at == nil {
		if d, ok := p.A.(*Dense); ok {
			at = d.t()
		}
	}

	switch {
	case p.Rank <= 0:
		return nil, errors.New("nmf: rank must be greater than 0")
	case p.Symmetric && m != n:
		return nil, fmt.Errorf("%w: symmetric problem on %d×%d matrix", ErrDimension, m, n)
	case stop.Tol < 0:
		return nil, errors.New("nmf: tolerance must not be negative")
	case stop.MaxIterations < 0:
		return nil, errors.New("nmf: max iterations must not be negative")
	case p.L1W < 0 || p.L1H < 0:
		return nil, errors.New("nmf: L1 penalty must not be negative")
	case opt.FastMaxIter < 0:
		return nil, errors.New("nmf: fast iterations must not be negative")
	case opt.CDTol < 0:
		return nil, errors.New("nmf: cd tolerance must not be negative")
	}
	if at != nil {
		if tr, tc := at.Dims(); tr != n || tc != m {
			return nil, fmt.Errorf("%w: transpose is %d×%d, want %d×%d", ErrDimension, tr, tc, n, m)
		}
	}

	var log *Logger
	if p.Verbose {
		if log = p.Log; log == nil || log.Out == nil {
			log = &Logger{Out: os.Stdout}
		}
	}

	return &Solver{
		a: p.A, at: at,
		m: m, n: n, k: p.Rank,
		symmetric: p.Symmetric, nonneg: p.NonNeg, diag: p.Diag,
		l1w: p.L1W, l1h: p.L1H,
		opt: opt, tol: stop.Tol, maxIter: stop.MaxIterations,
		threads: p.Threads, log: log, cancel: p.Cancel,
	}, nil
}

func (s *Solver) cancelled() bool {
	return s.cancel != nil && s.cancel()
}
