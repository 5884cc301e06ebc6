// Package sampler builds sample arrays: the exhaustive Cartesian product of
// discrete value sets, and stratified or quasi-random points in the unit
// hypercube for statistical studies.
package sampler

import "github.com/nvandessel/paramstudy/internal/value"

// Cartesian returns the cross product of columns in odometer order: row 0
// holds every column's first value and the last column varies fastest.
// The result has len(columns[0]) * len(columns[1]) * ... rows.
func Cartesian(columns [][]value.Value) [][]value.Value {
	if len(columns) == 0 {
		return nil
	}
	total := 1
	for _, c := range columns {
		if len(c) == 0 {
			return nil
		}
		total *= len(c)
	}

	rows := make([][]value.Value, 0, total)
	idx := make([]int, len(columns))
	for {
		row := make([]value.Value, len(columns))
		for j, c := range columns {
			row[j] = c[idx[j]]
		}
		rows = append(rows, row)

		// Increment the rightmost digit, carrying left.
		j := len(columns) - 1
		for ; j >= 0; j-- {
			idx[j]++
			if idx[j] < len(columns[j]) {
				break
			}
			idx[j] = 0
		}
		if j < 0 {
			return rows
		}
	}
}
