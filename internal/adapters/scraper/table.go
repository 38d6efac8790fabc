package scraper

const (
	maxColSpan = 1000
	maxRowSpan = 65534
)

// RowSpanToEnd соответствует rowspan="0": ячейка тянется до последней строки.
const RowSpanToEnd = -1

// Cell — ячейка таблицы с объединениями. Нулевые RowSpan/ColSpan означают 1.
type Cell struct {
	Text    string
	RowSpan int
	ColSpan int
}

// Row — строка таблицы в исходном виде.
type Row struct {
	Cells []Cell
}

// Table — таблица до раскрытия rowspan/colspan.
type Table struct {
	Rows []Row
}

// Grid — прямоугольная матрица текста ячеек.
type Grid [][]string

type carried struct {
	text string
	rows int
}

// Materialize раскрывает объединённые ячейки так, как их раскладывает браузер:
// текст ячейки попадает в каждую позицию сетки, которую она занимает.
func Materialize(t Table) Grid {
	grid := make(Grid, 0, len(t.Rows))
	pending := make(map[int]carried)
	width := 0

	for rowIdx, row := range t.Rows {
		slots := make(map[int]string, len(pending)+len(row.Cells))
		next := make(map[int]carried, len(pending))
		rowWidth := 0

		for col, span := range pending {
			slots[col] = span.text
			if col+1 > rowWidth {
				rowWidth = col + 1
			}
			if span.rows > 1 {
				next[col] = carried{text: span.text, rows: span.rows - 1}
			}
		}

		col := 0
		for _, cell := range row.Cells {
			for {
				if _, taken := slots[col]; !taken {
					break
				}
				col++
			}
			colSpan := normalizeColSpan(cell.ColSpan)
			rowSpan := normalizeRowSpan(cell.RowSpan, len(t.Rows)-rowIdx)
			for k := 0; k < colSpan; k++ {
				slots[col+k] = cell.Text
				if rowSpan > 1 {
					next[col+k] = carried{text: cell.Text, rows: rowSpan - 1}
				}
			}
			col += colSpan
			if col > rowWidth {
				rowWidth = col
			}
		}

		line := make([]string, rowWidth)
		for c, text := range slots {
			line[c] = text
		}
		grid = append(grid, line)
		if rowWidth > width {
			width = rowWidth
		}
		pending = next
	}

	for i, line := range grid {
		if len(line) < width {
			padded := make([]string, width)
			copy(padded, line)
			grid[i] = padded
		}
	}
	return grid
}

func normalizeColSpan(n int) int {
	switch {
	case n < 1:
		return 1
	case n > maxColSpan:
		return maxColSpan
	default:
		return n
	}
}

func normalizeRowSpan(n, remaining int) int {
	switch {
	case n == RowSpanToEnd:
		return remaining
	case n < 1:
		return 1
	case n > maxRowSpan:
		return maxRowSpan
	default:
		return n
	}
}
