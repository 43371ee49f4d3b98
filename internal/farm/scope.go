package farm

import "time"

// Scope selects the reporting years. Year 0 means every year; Cumulative
// includes every year up to and including Year.
type Scope struct {
	Year       int
	Cumulative bool
}

// AllYears is the unfiltered scope.
var AllYears = Scope{}

// Year scopes to a single year.
func Year(y int) Scope {
	return Scope{Year: y}
}

// Through scopes to every year up to and including y.
func Through(y int) Scope {
	return Scope{Year: y, Cumulative: true}
}

// Contains reports whether t falls inside the scope.
func (s Scope) Contains(t time.Time) bool {
	if s.Year <= 0 {
		return true
	}
	if s.Cumulative {
		return t.Year() <= s.Year
	}
	return t.Year() == s.Year
}

// WithYear returns s moved to year y.
func (s Scope) WithYear(y int) Scope {
	s.Year = y
	return s
}
