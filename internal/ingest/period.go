package ingest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/good-yellow-bee/secdash/internal/models"
)

// Period is a reporting month, optionally tagged with the quarter the
// exporting tool filed it under.
type Period struct {
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Quarter int        `json:"quarter"`
}

// QuarterOf returns the calendar quarter (1-4) containing m.
func QuarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}

// MonthStart returns midnight UTC on the first day of the period.
func (p Period) MonthStart() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// QuarterLabel formats the period as "Q<n> <year>".
func (p Period) QuarterLabel() string {
	q := p.Quarter
	if q == 0 {
		q = QuarterOf(p.Month)
	}
	return fmt.Sprintf("Q%d %d", q, p.Year)
}

// ReportLabel formats the period as MMYYYY.
func (p Period) ReportLabel() string {
	return fmt.Sprintf("%02d%04d", int(p.Month), p.Year)
}

// Model converts the period to the stored snapshot key.
func (p Period) Model() models.Period {
	return models.Period{
		Month:   p.MonthStart(),
		Quarter: p.QuarterLabel(),
		Label:   p.ReportLabel(),
	}
}

// periodFromDate validates an 8-digit YYYYMMDD token by rebuilding the
// calendar date and checking it did not roll over.
func periodFromDate(token string) (*Period, error) {
	if len(token) != 8 {
		return nil, fmt.Errorf("date token %q must have 8 digits", token)
	}
	year, err1 := strconv.Atoi(token[0:4])
	month, err2 := strconv.Atoi(token[4:6])
	day, err3 := strconv.Atoi(token[6:8])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("date token %q is not numeric", token)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil, fmt.Errorf("date token %q is not a valid calendar date", token)
	}

	return &Period{Year: year, Month: t.Month(), Quarter: QuarterOf(t.Month())}, nil
}

// periodFromMonth validates MM and YYYY tokens and an optional quarter
// token. A quarter that does not contain the month is rejected so the
// month, quarter and label of a snapshot can never disagree.
func periodFromMonth(monthToken, yearToken, quarterToken string) (*Period, error) {
	month, err := strconv.Atoi(monthToken)
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("month %q must be between 01 and 12", monthToken)
	}
	year, err := strconv.Atoi(yearToken)
	if err != nil || year < 1970 {
		return nil, fmt.Errorf("year %q is not valid", yearToken)
	}

	p := &Period{Year: year, Month: time.Month(month), Quarter: QuarterOf(time.Month(month))}
	if quarterToken != "" {
		q, err := strconv.Atoi(quarterToken)
		if err != nil || q < 1 || q > 4 {
			return nil, fmt.Errorf("quarter %q must be between 1 and 4", quarterToken)
		}
		if q != p.Quarter {
			return nil, fmt.Errorf("quarter %d does not contain month %02d", q, month)
		}
	}
	return p, nil
}
