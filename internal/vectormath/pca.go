// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package vectormath

import (
	"errors"
	"math"
	"sort"
)

// ErrEmptyMatrix is returned when PCA or standardization is requested on a
// matrix with no rows or no columns.
var ErrEmptyMatrix = errors.New("empty matrix")

// jacobi iteration bounds. 50 sweeps is far beyond what a 9x9 covariance
// matrix needs to converge to machine precision.
const (
	jacobiMaxSweeps = 50
	jacobiEpsilon   = 1e-12
)

// Standardize z-scores each column of matrix. Columns with zero standard
// deviation map to all-zero rather than dividing by zero.
// Returns the standardized data along with the per-column means and stds.
func Standardize(matrix [][]float64) (data [][]float64, means, stds []float64, err error) {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return nil, nil, nil, ErrEmptyMatrix
	}

	rows, cols := len(matrix), len(matrix[0])
	means = make([]float64, cols)
	stds = make([]float64, cols)

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if len(matrix[i]) != cols {
				return nil, nil, nil, ErrDimensionMismatch
			}
			col[i] = matrix[i][j]
		}
		means[j] = Mean(col)
		stds[j] = Std(col)
	}

	data = make([][]float64, rows)
	for i := 0; i < rows; i++ {
		data[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			if stds[j] == 0 {
				data[i][j] = 0
				continue
			}
			data[i][j] = (matrix[i][j] - means[j]) / stds[j]
		}
	}
	return data, means, stds, nil
}

// PCAResult holds the output of a principal component analysis.
type PCAResult struct {
	// Components holds the top-k orthonormal directions, one per row,
	// ordered by explained variance descending.
	Components [][]float64

	// Transformed is the standardized input projected onto Components,
	// one row per input row, k columns.
	Transformed [][]float64

	// ExplainedVariance is each component's eigenvalue divided by the sum
	// of all eigenvalues, in the same descending order truncated to k.
	ExplainedVariance []float64
}

// PCA computes the top-k principal components of matrix. The input is
// standardized, the covariance matrix computed with an n-1 denominator,
// and its eigenpairs extracted by Jacobi rotation. k is clamped to the
// column count when larger.
func PCA(matrix [][]float64, k int) (*PCAResult, error) {
	data, _, _, err := Standardize(matrix)
	if err != nil {
		return nil, err
	}

	rows, cols := len(data), len(data[0])
	if k > cols {
		k = cols
	}
	if k < 1 {
		k = 1
	}

	cov := covariance(data)
	eigenvalues, eigenvectors := jacobiEigen(cov)

	// Sort eigenpairs by eigenvalue descending.
	order := make([]int, cols)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return eigenvalues[order[a]] > eigenvalues[order[b]]
	})

	var total float64
	for _, ev := range eigenvalues {
		total += ev
	}

	result := &PCAResult{
		Components:        make([][]float64, k),
		Transformed:       make([][]float64, rows),
		ExplainedVariance: make([]float64, k),
	}

	for c := 0; c < k; c++ {
		idx := order[c]
		component := make([]float64, cols)
		for j := 0; j < cols; j++ {
			component[j] = eigenvectors[j][idx]
		}
		result.Components[c] = component
		if total > 0 {
			result.ExplainedVariance[c] = eigenvalues[idx] / total
		}
	}

	for i := 0; i < rows; i++ {
		proj := make([]float64, k)
		for c := 0; c < k; c++ {
			var dot float64
			for j := 0; j < cols; j++ {
				dot += data[i][j] * result.Components[c][j]
			}
			proj[c] = dot
		}
		result.Transformed[i] = proj
	}

	return result, nil
}

// covariance computes the covariance matrix of already-centered data using
// an n-1 denominator. With a single row the denominator clamps to 1.
func covariance(data [][]float64) [][]float64 {
	rows, cols := len(data), len(data[0])
	denom := float64(rows - 1)
	if denom < 1 {
		denom = 1
	}

	cov := make([][]float64, cols)
	for i := range cov {
		cov[i] = make([]float64, cols)
	}

	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			var sum float64
			for r := 0; r < rows; r++ {
				sum += data[r][i] * data[r][j]
			}
			cov[i][j] = sum / denom
			cov[j][i] = cov[i][j]
		}
	}
	return cov
}

// jacobiEigen computes eigenvalues and eigenvectors of a symmetric matrix by
// cyclic Jacobi rotation. Eigenvectors are returned column-major: column i of
// the returned matrix is the eigenvector for eigenvalue i.
func jacobiEigen(m [][]float64) (eigenvalues []float64, eigenvectors [][]float64) {
	n := len(m)

	a := make([][]float64, n)
	v := make([][]float64, n)
	for i := 0; i < n; i++ {
		a[i] = make([]float64, n)
		v[i] = make([]float64, n)
		copy(a[i], m[i])
		v[i][i] = 1
	}

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		off := offDiagonalNorm(a)
		if off < jacobiEpsilon {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(a[p][q]) < jacobiEpsilon {
					continue
				}
				rotate(a, v, p, q)
			}
		}
	}

	eigenvalues = make([]float64, n)
	for i := 0; i < n; i++ {
		eigenvalues[i] = a[i][i]
	}
	return eigenvalues, v
}

func offDiagonalNorm(a [][]float64) float64 {
	var sum float64
	for i := range a {
		for j := range a {
			if i != j {
				sum += a[i][j] * a[i][j]
			}
		}
	}
	return sum
}

// rotate applies a single Jacobi rotation zeroing a[p][q].
func rotate(a, v [][]float64, p, q int) {
	n := len(a)

	theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
	t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
	c := 1 / math.Sqrt(t*t+1)
	s := t * c

	app, aqq, apq := a[p][p], a[q][q], a[p][q]
	a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
	a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
	a[p][q] = 0
	a[q][p] = 0

	for i := 0; i < n; i++ {
		if i == p || i == q {
			continue
		}
		aip, aiq := a[i][p], a[i][q]
		a[i][p] = c*aip - s*aiq
		a[p][i] = a[i][p]
		a[i][q] = s*aip + c*aiq
		a[q][i] = a[i][q]
	}

	for i := 0; i < n; i++ {
		vip, viq := v[i][p], v[i][q]
		v[i][p] = c*vip - s*viq
		v[i][q] = s*vip + c*viq
	}
}
