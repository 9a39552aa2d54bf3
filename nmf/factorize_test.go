// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nmf

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// sepA = w*ᵀ·diag(5,2)·h* with separable ground-truth factors
//
//	w* rows: (0.5, 0.5, 0, 0) and (0, 0, 0.5, 0.5)
//	h* rows: (0.8, 0.2, 0) and (0, 0.2, 0.8)
//
// The disjoint factor supports make the non-negative factorization unique,
// so any converged run must land on d = (5, 2).
var sepA = []float64{2, 2, 0, 0, 0.5, 0.5, 0.2, 0.2, 0, 0, 0.8, 0.8} // 4×3 column-major

// sepW0 is a feasible starting basis roughly aligned with the ground truth.
var sepW0 = []float64{1, 0.1, 1, 0, 0.1, 1, 0, 1} // 2×4 column-major

func sepCSC(t *testing.T) *CSC {
	return mustCSC(t, 4, 3,
		[]int{0, 2, 6, 8},
		[]int{0, 1, 0, 1, 2, 3, 2, 3},
		[]float64{2, 2, 0.5, 0.5, 0.2, 0.2, 0.8, 0.8})
}

// sepCSCT is the transpose of sepA in sparse form.
func sepCSCT(t *testing.T) *CSC {
	return mustCSC(t, 3, 4,
		[]int{0, 2, 4, 6, 8},
		[]int{0, 1, 0, 1, 1, 2, 1, 2},
		[]float64{2, 0.5, 2, 0.5, 0.2, 0.8, 0.2, 0.8})
}

func rowSums(m *Dense) []float64 {
	r, c := m.Dims()
	sums := make([]float64, r)
	for j := 0; j < c; j++ {
		for i, v := range m.Col(j) {
			sums[i] += v
		}
	}
	return sums
}

func requireAllFinite(t *testing.T, x []float64) {
	t.Helper()
	for _, v := range x {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestFactorizeIdentity(t *testing.T) {
	a := mustDense(t, 2, 2, []float64{1, 0, 0, 1})
	w0 := mustDense(t, 2, 2, []float64{1, 0, 0, 1})

	s, err := (&Problem{A: a, Rank: 2, NonNeg: true, Diag: true, Threads: 1}).New()
	require.NoError(t, err)
	res, err := s.Fit(w0)
	require.NoError(t, err)

	require.Equal(t, 0, res.Iter)
	require.False(t, res.Interrupted)
	require.InDeltaSlice(t, []float64{1, 1}, res.D, 1e-9)

	mse, err := MSE(a, res.W, res.D, res.H, 1)
	require.NoError(t, err)
	require.InDelta(t, 0, mse, 1e-12)

	// factors are permutations of the identity
	for _, m := range []*Dense{res.W, res.H} {
		for j := 0; j < 2; j++ {
			col := m.Col(j)
			require.InDelta(t, 1, floats.Max(col), 1e-9)
			require.InDelta(t, 1, floats.Sum(col), 1e-9)
			require.GreaterOrEqual(t, floats.Min(col), 0.0)
		}
	}
}

func TestFactorizeRankOne(t *testing.T) {
	// A = u·vᵀ with u = (1,2,3), v = (4,5)
	a := mustDense(t, 3, 2, []float64{4, 8, 12, 5, 10, 15})
	w0 := mustDense(t, 1, 3, []float64{1, 1, 1})

	s, err := (&Problem{A: a, Rank: 1, NonNeg: true, Diag: true, Threads: 1}).New()
	require.NoError(t, err)
	res, err := s.Fit(w0)
	require.NoError(t, err)

	require.LessOrEqual(t, res.Iter, 2)
	require.InDelta(t, 54, res.D[0], 1e-6)
	require.InDeltaSlice(t, []float64{1.0 / 6, 1.0 / 3, 1.0 / 2}, res.W.Col(0), 1e-9)
	require.InDeltaSlice(t, []float64{4.0 / 9, 5.0 / 9}, res.H.Raw(), 1e-9)

	mse, err := MSE(a, res.W, res.D, res.H, 1)
	require.NoError(t, err)
	require.InDelta(t, 0, mse, 1e-12)
}

func TestFactorizeRecoversGroundTruth(t *testing.T) {
	a := mustDense(t, 4, 3, sepA)
	w0 := mustDense(t, 2, 4, sepW0)

	s, err := (&Problem{
		A: a, Rank: 2, NonNeg: true, Diag: true,
		Stop: Termination{Tol: 1e-10, MaxIterations: 200},
	}).New()
	require.NoError(t, err)
	res, err := s.Fit(w0)
	require.NoError(t, err)

	require.False(t, res.Interrupted)
	require.GreaterOrEqual(t, res.D[0], res.D[1])
	require.InDeltaSlice(t, []float64{5, 2}, res.D, 1e-4)

	mse, err := MSE(a, res.W, res.D, res.H, 1)
	require.NoError(t, err)
	require.InDelta(t, 0, mse, 1e-8)

	// non-negativity and row-stochastic factors
	require.GreaterOrEqual(t, floats.Min(res.W.Raw()), 0.0)
	require.GreaterOrEqual(t, floats.Min(res.H.Raw()), 0.0)
	for j := 0; j < 2; j++ {
		require.InDelta(t, 1, floats.Sum(res.W.Col(j)), 1e-9)
	}
	require.InDeltaSlice(t, []float64{1, 1}, rowSums(res.H), 1e-9)
}

func TestFactorizeSymmetric(t *testing.T) {
	a := mustDense(t, 2, 2, []float64{2, 1, 1, 2})
	w0 := mustDense(t, 2, 2, []float64{1, 0, 0, 1})

	s, err := (&Problem{A: a, Rank: 2, Symmetric: true, NonNeg: true, Diag: true, Threads: 1}).New()
	require.NoError(t, err)
	res, err := s.Fit(w0)
	require.NoError(t, err)

	require.InDeltaSlice(t, []float64{3, 3}, res.D, 1e-9)
	mse, err := MSE(a, res.W, res.D, res.H, 1)
	require.NoError(t, err)
	require.InDelta(t, 0, mse, 1e-12)
}

func TestFactorizeSparseMatchesDense(t *testing.T) {
	dense := mustDense(t, 4, 3, sepA)
	w0 := mustDense(t, 2, 4, sepW0)
	stop := Termination{Tol: 1e-10, MaxIterations: 200}

	s, err := (&Problem{A: dense, Rank: 2, NonNeg: true, Diag: true, Stop: stop, Threads: 1}).New()
	require.NoError(t, err)
	want, err := s.Fit(w0)
	require.NoError(t, err)

	s, err = (&Problem{A: sepCSC(t), At: sepCSCT(t), Rank: 2, NonNeg: true, Diag: true, Stop: stop, Threads: 1}).New()
	require.NoError(t, err)
	got, err := s.Fit(w0)
	require.NoError(t, err)

	require.InDeltaSlice(t, want.D, got.D, 1e-8)
	require.InDeltaSlice(t, want.W.Raw(), got.W.Raw(), 1e-6)
	require.InDeltaSlice(t, want.H.Raw(), got.H.Raw(), 1e-6)
}

func TestFactorizeCancellation(t *testing.T) {
	// a full-rank matrix keeps the iteration busy well past two rounds
	a := mustDense(t, 4, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1, 2, 6})
	w0 := mustDense(t, 2, 4, sepW0)

	// two polls per iteration: the fifth lands at the start of iteration 2
	calls := 0
	s, err := (&Problem{
		A: a, Rank: 2, NonNeg: true, Diag: true, Threads: 1,
		Stop:   Termination{Tol: 1e-15, MaxIterations: 100},
		Cancel: func() bool { calls++; return calls >= 5 },
	}).New()
	require.NoError(t, err)
	res, err := s.Fit(w0)
	require.NoError(t, err)

	require.True(t, res.Interrupted)
	require.Equal(t, 2, res.Iter)
	requireAllFinite(t, res.W.Raw())
	requireAllFinite(t, res.H.Raw())
	requireAllFinite(t, res.D)
}

func TestFactorizeVerbose(t *testing.T) {
	a := mustDense(t, 2, 2, []float64{1, 0, 0, 1})
	w0 := mustDense(t, 2, 2, []float64{1, 0, 0, 1})

	var buf bytes.Buffer
	s, err := (&Problem{
		A: a, Rank: 2, NonNeg: true, Diag: true, Threads: 1,
		Verbose: true, Log: &Logger{Out: &buf},
	}).New()
	require.NoError(t, err)
	_, err = s.Fit(w0)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "iter")
	require.Contains(t, out, "tol")
	require.Contains(t, out, "   1 |")
}

func TestProblemValidation(t *testing.T) {
	a := mustDense(t, 4, 3, sepA)

	_, err := (&Problem{Rank: 2}).New()
	require.Error(t, err)

	_, err = (&Problem{A: a}).New()
	require.Error(t, err)

	_, err = (&Problem{A: a, Rank: 2, Symmetric: true}).New()
	require.ErrorIs(t, err, ErrDimension)

	_, err = (&Problem{A: a, Rank: 2, L1W: -1}).New()
	require.Error(t, err)

	_, err = (&Problem{A: a, At: mustDense(t, 2, 2, []float64{1, 0, 0, 1}), Rank: 2}).New()
	require.ErrorIs(t, err, ErrDimension)

	// sparse asymmetric problems need the transpose only to run Fit
	s, err := (&Problem{A: sepCSC(t), Rank: 2}).New()
	require.NoError(t, err)
	_, err = s.Fit(mustDense(t, 2, 4, sepW0))
	require.Error(t, err)

	// initial factor shape
	s, err = (&Problem{A: a, Rank: 2}).New()
	require.NoError(t, err)
	_, err = s.Fit(mustDense(t, 2, 3, []float64{1, 0, 0, 1, 1, 1}))
	require.ErrorIs(t, err, ErrDimension)
}
