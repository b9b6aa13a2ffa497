package features

// Align reshapes a feature matrix to exactly the ordered column list a
// classifier was trained on: missing columns are zero-filled, extra
// columns dropped, and column order fixed to expected. The operation is
// total (output width is always len(expected)) and idempotent.
func Align(m Matrix, expected []string) Matrix {
	index := make(map[string]int, len(m.Columns))
	for i, col := range m.Columns {
		index[col] = i
	}

	columns := make([]string, len(expected))
	copy(columns, expected)

	rows := make([][]float64, len(m.Rows))
	for i, row := range m.Rows {
		vec := make([]float64, len(expected))
		for j, col := range expected {
			if k, ok := index[col]; ok && k < len(row) {
				vec[j] = row[k]
			}
		}
		rows[i] = vec
	}

	return Matrix{Columns: columns, Rows: rows}
}
