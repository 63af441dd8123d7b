package semaforo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func docOn(c Category, year int, month time.Month, day int) *Document {
	return &Document{Category: c, IssueDate: Date{Year: year, Month: month, Day: day}, Active: true}
}

func docIn(c Category, year int) *Document {
	return docOn(c, year, time.June, 15)
}

func TestEvaluateByDate(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		want Status
	}{
		{"missing document", nil, StatusRed},
		{"no issue date", &Document{Category: CategoryOrgManual, Active: true}, StatusRed},
		{"malformed issue date", &Document{Category: CategoryOrgManual, IssueDate: ParseDate("31/31/2020")}, StatusRed},
		{"first day of current range", docOn(CategoryOrgChart, 2022, time.January, 1), StatusGreen},
		{"recent", docIn(CategoryProceduresManual, 2025), StatusGreen},
		{"last day before current range", docOn(CategoryOrgChart, 2021, time.December, 31), StatusYellow},
		{"first acceptable year", docOn(CategoryOrgManual, 2018, time.January, 1), StatusYellow},
		{"older than acceptable", docOn(CategoryServicesManual, 2017, time.December, 31), StatusRed},
		{"ancient", docIn(CategoryOrgChart, 1998), StatusRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateByDate(tt.doc))
		})
	}
}

// TestEvaluateByDate_YearRanges sweeps every year so the thresholds cannot
// drift without a failing case.
func TestEvaluateByDate_YearRanges(t *testing.T) {
	for year := 1990; year <= 2040; year++ {
		got := EvaluateByDate(docIn(CategoryOrgManual, year))
		switch {
		case year >= 2022:
			assert.Equal(t, StatusGreen, got, "year %d", year)
		case year >= 2018:
			assert.Equal(t, StatusYellow, got, "year %d", year)
		default:
			assert.Equal(t, StatusRed, got, "year %d", year)
		}
	}
}

func TestEvaluateRegulatory(t *testing.T) {
	tests := []struct {
		name  string
		reg   *Document
		chart *Document
		want  Status
	}{
		{"missing regulation", nil, docIn(CategoryOrgChart, 2023), StatusRed},
		{"regulation without date", &Document{Category: CategoryBylaws}, docIn(CategoryOrgChart, 2010), StatusRed},
		{"current regulation", docIn(CategoryBylaws, 2022), nil, StatusGreen},
		{"current regulation older than chart", docIn(CategoryBylaws, 2022), docIn(CategoryOrgChart, 2024), StatusGreen},
		{"newer than chart", docIn(CategoryBylaws, 2019), docIn(CategoryOrgChart, 2018), StatusYellow},
		{"newer than chart below acceptable floor", docIn(CategoryBylaws, 2016), docIn(CategoryOrgChart, 2012), StatusYellow},
		{"older than chart", docIn(CategoryBylaws, 2019), docIn(CategoryOrgChart, 2020), StatusOrange},
		{"older than current chart", docIn(CategoryBylaws, 2019), docIn(CategoryOrgChart, 2023), StatusOrange},
		{"no chart acceptable year", docIn(CategoryBylaws, 2019), nil, StatusOrange},
		{"no chart old", docIn(CategoryBylaws, 2017), nil, StatusRed},
		{"chart without date", docIn(CategoryBylaws, 2017), &Document{Category: CategoryOrgChart}, StatusRed},
		{"old and older than chart", docIn(CategoryBylaws, 2015), docIn(CategoryOrgChart, 2016), StatusRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateRegulatory(tt.reg, tt.chart))
		})
	}
}

func TestEvaluateRegulatory_SameDayIsNotNewer(t *testing.T) {
	reg := docOn(CategoryBylaws, 2019, time.March, 10)
	chart := docOn(CategoryOrgChart, 2019, time.March, 10)
	assert.Equal(t, StatusOrange, EvaluateRegulatory(reg, chart))

	oldReg := docOn(CategoryBylaws, 2016, time.March, 10)
	oldChart := docOn(CategoryOrgChart, 2016, time.March, 10)
	assert.Equal(t, StatusRed, EvaluateRegulatory(oldReg, oldChart))

	t.Run("one day later is newer", func(t *testing.T) {
		later := docOn(CategoryBylaws, 2016, time.March, 11)
		assert.Equal(t, StatusYellow, EvaluateRegulatory(later, oldChart))
	})
}

func TestRules_CustomThresholds(t *testing.T) {
	rules := Rules{CurrentFromYear: 2024, AcceptableFromYear: 2020}

	assert.Equal(t, StatusYellow, rules.EvaluateByDate(docIn(CategoryOrgChart, 2023)))
	assert.Equal(t, StatusRed, rules.EvaluateByDate(docIn(CategoryOrgChart, 2019)))
	assert.Equal(t, StatusOrange, rules.EvaluateRegulatory(docIn(CategoryBylaws, 2021), nil))
	assert.Equal(t, StatusGreen, rules.EvaluateRegulatory(docIn(CategoryBylaws, 2024), nil))
}
