package farm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScopeContains(t *testing.T) {
	at := func(y int) time.Time { return time.Date(y, time.July, 1, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name  string
		scope Scope
		year  int
		want  bool
	}{
		{name: "all years", scope: AllYears, year: 1999, want: true},
		{name: "same year", scope: Year(2023), year: 2023, want: true},
		{name: "earlier year", scope: Year(2023), year: 2022, want: false},
		{name: "cumulative earlier", scope: Through(2023), year: 2019, want: true},
		{name: "cumulative later", scope: Through(2023), year: 2024, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Contains(at(tt.year)))
		})
	}
}

func TestScopeWithYear(t *testing.T) {
	s := Through(2023).WithYear(2020)
	assert.Equal(t, Scope{Year: 2020, Cumulative: true}, s)
}
