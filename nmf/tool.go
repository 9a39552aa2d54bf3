// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nmf

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ridge keeps rescaling denominators and gram diagonals away from zero.
const ridge = 1e-15

// cor returns 1 - pearson correlation of two flattened factor iterates.
func cor(x, y []float64) float64 {
	return 1 - stat.Correlation(x, y, nil)
}

// rescale sets d[i] to the i-th row sum of the k×n column-major factor x
// and divides the row by it, leaving every row summing to one.
func rescale(x []float64, k, n int, d []float64) {
	for i := 0; i < k; i++ {
		sum := ridge
		for j := 0; j < n; j++ {
			sum += x[j*k+i]
		}
		d[i] = sum
		for j := 0; j < n; j++ {
			x[j*k+i] /= sum
		}
	}
}

// sortIndex returns the permutation that sorts d in decreasing order.
func sortIndex(d []float64) []int {
	idx := make([]int, len(d))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return d[idx[i]] > d[idx[j]] })
	return idx
}

// reorderRows returns the k×n column-major matrix x with row i taken from
// row idx[i] of the input.
func reorderRows(x []float64, k, n int, idx []int) []float64 {
	out := make([]float64, len(x))
	for j := 0; j < n; j++ {
		for i, src := range idx {
			out[j*k+i] = x[j*k+src]
		}
	}
	return out
}

// reorder returns d permuted by idx.
func reorder(d []float64, idx []int) []float64 {
	out := make([]float64, len(d))
	for i, src := range idx {
		out[i] = d[src]
	}
	return out
}

// transpose returns the n×k column-major transpose of the k×n
// column-major matrix x.
func transpose(x []float64, k, n int) []float64 {
	out := make([]float64, len(x))
	for j := 0; j < n; j++ {
		for i := 0; i < k; i++ {
			out[i*n+j] = x[j*k+i]
		}
	}
	return out
}

// ones returns a length-k vector of ones.
func ones(k int) []float64 {
	d := make([]float64, k)
	for i := range d {
		d[i] = 1
	}
	return d
}
