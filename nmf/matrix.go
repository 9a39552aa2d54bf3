// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nmf

import (
	"errors"
	"fmt"
)

var (
	// ErrDimension input dimensions are inconsistent.
	ErrDimension = errors.New("nmf: dimension mismatch")
	// ErrSparse a compressed sparse column triple violates its structural invariants.
	ErrSparse = errors.New("nmf: invalid sparse structure")
	// ErrSingular the rank-2 normal equations are singular.
	ErrSingular = errors.New("nmf: singular rank-2 system")
)

// Matrix is a column-wise read-only view of a sample matrix.
// The two implementations are *Dense and *CSC.
type Matrix interface {
	// Dims returns the matrix dimensions.
	Dims() (rows, cols int)
	// colEntries exposes column j for gathering.
	// Dense storage returns rows == nil and the full contiguous column,
	// sparse storage returns the parallel nonzero slices of the column.
	colEntries(j int) (rows []int, vals []float64)
}

// Dense is a column-major matrix view over a caller-owned slice.
// Inputs are treated as read-only, outputs of the drivers are freshly
// allocated and safe to mutate through Raw.
type Dense struct {
	rows, cols int
	data       []float64
}

// NewDense wraps data as a rows×cols column-major matrix without copying.
func NewDense(rows, cols int, data []float64) (*Dense, error) {
	if rows < 0 || cols < 0 || len(data) < rows*cols {
		return nil, fmt.Errorf("%w: dense %d×%d needs %d values, got %d", ErrDimension, rows, cols, rows*cols, len(data))
	}
	return &Dense{rows: rows, cols: cols, data: data[:rows*cols]}, nil
}

// Dims returns the matrix dimensions.
func (m *Dense) Dims() (rows, cols int) { return m.rows, m.cols }

// At returns the element at row i, column j.
func (m *Dense) At(i, j int) float64 {
	if uint(i) >= uint(m.rows) || uint(j) >= uint(m.cols) {
		panic("nmf: dense index out of range")
	}
	return m.data[j*m.rows+i]
}

// Col returns the contiguous j-th column.
func (m *Dense) Col(j int) []float64 {
	if uint(j) >= uint(m.cols) {
		panic("nmf: dense column out of range")
	}
	return m.data[j*m.rows : (j+1)*m.rows]
}

// Raw returns the backing column-major slice.
func (m *Dense) Raw() []float64 { return m.data }

func (m *Dense) colEntries(j int) ([]int, []float64) { return nil, m.Col(j) }

// t returns a freshly allocated transpose.
func (m *Dense) t() *Dense {
	data := make([]float64, len(m.data))
	for j := 0; j < m.cols; j++ {
		col := m.Col(j)
		for i, v := range col {
			data[i*m.cols+j] = v
		}
	}
	return &Dense{rows: m.cols, cols: m.rows, data: data}
}

// CSC is a zero-copy view of a compressed sparse column matrix. The view
// borrows the three parallel arrays and is valid only while they are kept
// alive and unmodified by the caller. Row indices within a column need not
// be sorted.
type CSC struct {
	rows, cols int
	colPtr     []int
	rowIdx     []int
	val        []float64
}

// NewCSC wraps a CSC triple, validating its structural invariants:
// len(colPtr) == cols+1, colPtr[0] == 0, colPtr non-decreasing,
// colPtr[cols] == len(rowIdx) == len(val), and every row index in [0,rows).
func NewCSC(rows, cols int, colPtr, rowIdx []int, val []float64) (*CSC, error) {
	switch {
	case rows < 0 || cols < 0:
		return nil, fmt.Errorf("%w: negative dimension %d×%d", ErrDimension, rows, cols)
	case len(colPtr) != cols+1:
		return nil, fmt.Errorf("%w: column pointer length %d, want %d", ErrSparse, len(colPtr), cols+1)
	case colPtr[0] != 0:
		return nil, fmt.Errorf("%w: column pointer must start at 0", ErrSparse)
	case len(rowIdx) != len(val):
		return nil, fmt.Errorf("%w: %d row indices for %d values", ErrSparse, len(rowIdx), len(val))
	case colPtr[cols] != len(val):
		return nil, fmt.Errorf("%w: column pointer ends at %d, want nnz %d", ErrSparse, colPtr[cols], len(val))
	}
	for j := 0; j < cols; j++ {
		if colPtr[j] > colPtr[j+1] {
			return nil, fmt.Errorf("%w: column pointer decreases at column %d", ErrSparse, j)
		}
	}
	for _, i := range rowIdx {
		if uint(i) >= uint(rows) {
			return nil, fmt.Errorf("%w: row index %d outside [0,%d)", ErrSparse, i, rows)
		}
	}
	return &CSC{rows: rows, cols: cols, colPtr: colPtr, rowIdx: rowIdx, val: val}, nil
}

// Dims returns the matrix dimensions.
func (m *CSC) Dims() (rows, cols int) { return m.rows, m.cols }

// NNZ returns the number of stored entries.
func (m *CSC) NNZ() int { return len(m.val) }

// Col returns the nonzeros of column j as parallel subslices of the
// underlying arrays.
func (m *CSC) Col(j int) (rows []int, vals []float64) {
	if uint(j) >= uint(m.cols) {
		panic("nmf: sparse column out of range")
	}
	p0, p1 := m.colPtr[j], m.colPtr[j+1]
	return m.rowIdx[p0:p1], m.val[p0:p1]
}

func (m *CSC) colEntries(j int) ([]int, []float64) { return m.Col(j) }
