package core

// Table is an immutable, ordered set of transactions.
//
// Numeric columns that failed to parse are tracked as issues so that only
// the aggregations reading them fail; every other chart still renders.
type Table struct {
	rows   []Transaction
	issues map[string]*DataTypeError
}

// NewTable copies rows into a new table. issues may be nil.
func NewTable(rows []Transaction, issues map[string]*DataTypeError) *Table {
	t := &Table{rows: make([]Transaction, len(rows))}
	copy(t.rows, rows)
	if len(issues) > 0 {
		t.issues = make(map[string]*DataTypeError, len(issues))
		for col, issue := range issues {
			t.issues[col] = issue
		}
	}
	return t
}

// Len returns the number of rows. A nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the i-th transaction.
func (t *Table) Row(i int) Transaction {
	return t.rows[i]
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []Transaction {
	if t == nil {
		return nil
	}
	out := make([]Transaction, len(t.rows))
	copy(out, t.rows)
	return out
}

// Each calls fn for every row in order without copying the table.
func (t *Table) Each(fn func(i int, tx Transaction)) {
	if t == nil {
		return
	}
	for i, tx := range t.rows {
		fn(i, tx)
	}
}

// Select returns a new table holding the rows for which keep returns true.
// Row order and column issues are preserved.
func (t *Table) Select(keep func(Transaction) bool) *Table {
	out := &Table{issues: t.issuesOrNil()}
	if t == nil {
		return out
	}
	out.rows = make([]Transaction, 0, len(t.rows))
	for _, tx := range t.rows {
		if keep(tx) {
			out.rows = append(out.rows, tx)
		}
	}
	return out
}

// Distinct returns the distinct values of a categorical column in first-seen order.
func (t *Table) Distinct(col string) []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, tx := range t.rows {
		v := tx.Dimension(col)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Issue returns the data type problem recorded for col, if any.
func (t *Table) Issue(col string) error {
	if t == nil || t.issues == nil {
		return nil
	}
	if issue, ok := t.issues[col]; ok {
		return issue
	}
	return nil
}

// Issues returns every recorded data type problem keyed by column.
func (t *Table) Issues() map[string]*DataTypeError {
	return t.issuesOrNil()
}

// CheckNumeric returns the first issue among cols, in argument order.
func (t *Table) CheckNumeric(cols ...string) error {
	for _, col := range cols {
		if err := t.Issue(col); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) issuesOrNil() map[string]*DataTypeError {
	if t == nil || len(t.issues) == 0 {
		return nil
	}
	out := make(map[string]*DataTypeError, len(t.issues))
	for k, v := range t.issues {
		out[k] = v
	}
	return out
}
