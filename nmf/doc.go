// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nmf factorizes a real m×n matrix 𝐀 into non-negative factors
// 𝐀 ≈ 𝐰ᵀ·𝚍𝚒𝚊𝚐(𝐝)·𝐡 by alternating least squares.
//
// With the basis fixed, the coefficients are the column-wise (non-negative)
// least-squares projection of 𝐀 onto it; with the coefficients fixed, the
// basis is the projection of 𝐀ᵀ. Every column subproblem shares one small
// gram matrix and its Cholesky factor, so a projection is a single
// factorization followed by an embarrassingly parallel column sweep. The
// diagonal 𝐝 absorbs the factor row scales, which keeps both factors
// row-stochastic and makes the convergence metric — one minus the pearson
// correlation of successive basis iterates — scale invariant.
//
// Sample matrices are accepted as column-major dense views or zero-copy
// compressed sparse column views. A dedicated rank-2 driver solves each
// column in closed form without any factorization.
//
// The column solver lives in the nnls package.
package nmf
