package ml

import (
	"fmt"
	"strings"
)

// Quality issue types.
const (
	IssueMissingCell  = "missing_cell"
	IssueEmptyCell    = "empty_cell"
	IssueNotNumeric   = "not_numeric"
	IssueNotFinite    = "not_finite"
	IssueDuplicateRow = "duplicate_row"
)

const maxIssueSamples = 20

type QualityIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // low, high
	Message  string `json:"message"`
	Row      int    `json:"row"`
	Column   string `json:"column,omitempty"`
}

// QualityReport counts rows that would be rejected by training and rows that
// are merely suspicious. Samples keeps the first issues found.
type QualityReport struct {
	Rows     int            `json:"rows"`
	Passed   int            `json:"passed"`
	Rejected int            `json:"rejected"`
	Issues   map[string]int `json:"issues"`
	Samples  []QualityIssue `json:"samples,omitempty"`
}

// qualityRule inspects one row and returns any issues; a high severity issue
// rejects the row.
type qualityRule func(d *Dataset, row []string, i int) []QualityIssue

// Quality runs the cell and duplicate checks over columns, or over every column
// when none are given. Unknown column names are ignored.
func (d *Dataset) Quality(columns ...string) QualityReport {
	if len(columns) == 0 {
		columns = d.columns
	}
	var indices []int
	for _, name := range columns {
		if idx, ok := d.index[name]; ok {
			indices = append(indices, idx)
		}
	}

	seen := make(map[string]int, len(d.rows))
	rules := []qualityRule{
		numericCells(indices),
		duplicateRows(seen),
	}

	report := QualityReport{Rows: len(d.rows), Issues: map[string]int{}}
	for i, row := range d.rows {
		rejected := false
		for _, rule := range rules {
			for _, issue := range rule(d, row, i) {
				report.Issues[issue.Type]++
				if issue.Severity == "high" {
					rejected = true
				}
				if len(report.Samples) < maxIssueSamples {
					report.Samples = append(report.Samples, issue)
				}
			}
		}
		if rejected {
			report.Rejected++
		} else {
			report.Passed++
		}
	}
	return report
}

func numericCells(indices []int) qualityRule {
	return func(d *Dataset, row []string, i int) []QualityIssue {
		var issues []QualityIssue
		for _, idx := range indices {
			_, err := d.cell(row, idx, i)
			if err == nil {
				continue
			}
			issues = append(issues, QualityIssue{
				Type:     issueType(err.Reason),
				Severity: "high",
				Message:  err.Reason,
				Row:      err.Row,
				Column:   err.Column,
			})
		}
		return issues
	}
}

func issueType(reason string) string {
	switch reason {
	case "missing cell":
		return IssueMissingCell
	case "empty cell":
		return IssueEmptyCell
	case "not a finite number":
		return IssueNotFinite
	default:
		return IssueNotNumeric
	}
}

// duplicateRows flags exact repeats of an earlier row. Repeated days still
// train, so the issue is low severity.
func duplicateRows(seen map[string]int) qualityRule {
	return func(d *Dataset, row []string, i int) []QualityIssue {
		key := strings.Join(row, "\x1f")
		first, dup := seen[key]
		if !dup {
			seen[key] = i + 2
			return nil
		}
		return []QualityIssue{{
			Type:     IssueDuplicateRow,
			Severity: "low",
			Message:  fmt.Sprintf("duplicate of line %d", first),
			Row:      i + 2,
		}}
	}
}
