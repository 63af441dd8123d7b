package semaforo

// Rules holds the year thresholds of the status rules.
//
//   - issue year >= CurrentFromYear: Green
//   - issue year in [AcceptableFromYear, CurrentFromYear): Yellow (Orange for
//     a regulation that is not newer than its org chart)
//   - older, or no valid issue date: Red
type Rules struct {
	CurrentFromYear    int
	AcceptableFromYear int
}

// DefaultRules are the thresholds in force for the current review cycle.
var DefaultRules = Rules{
	CurrentFromYear:    2022,
	AcceptableFromYear: 2018,
}

// EvaluateByDate applies DefaultRules.EvaluateByDate.
func EvaluateByDate(doc *Document) Status {
	return DefaultRules.EvaluateByDate(doc)
}

// EvaluateRegulatory applies DefaultRules.EvaluateRegulatory.
func EvaluateRegulatory(reg, orgChart *Document) Status {
	return DefaultRules.EvaluateRegulatory(reg, orgChart)
}

// EvaluateByDate grades a document on its own issue year. It is used for the
// org chart and every manual. This is pure domain logic - no I/O.
func (r Rules) EvaluateByDate(doc *Document) Status {
	if doc == nil || !doc.IssueDate.Valid() {
		return StatusRed
	}
	year := doc.IssueDate.Year
	switch {
	case year >= r.CurrentFromYear:
		return StatusGreen
	case year >= r.AcceptableFromYear:
		return StatusYellow
	default:
		return StatusRed
	}
}

// EvaluateRegulatory grades the regulation against its own year and against
// the org chart.
// Rule priority:
//  1. no regulation or no valid date: Red
//  2. current year range: Green
//  3. strictly newer than a dated org chart: Yellow, whatever its age
//  4. acceptable year range: Orange
//  5. otherwise Red
//
// Without a dated org chart rule 3 never applies.
func (r Rules) EvaluateRegulatory(reg, orgChart *Document) Status {
	if reg == nil || !reg.IssueDate.Valid() {
		return StatusRed
	}
	year := reg.IssueDate.Year
	if year >= r.CurrentFromYear {
		return StatusGreen
	}
	if orgChart != nil && orgChart.IssueDate.Valid() && reg.IssueDate.After(orgChart.IssueDate) {
		return StatusYellow
	}
	if year >= r.AcceptableFromYear {
		return StatusOrange
	}
	return StatusRed
}
