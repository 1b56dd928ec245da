// --- START OF FINAL REVISED FILE pkg/converter/orgmode/dates_test.go ---
package orgmode_test

import (
	"testing"

	"github.com/stackvity/obs2org/pkg/converter/orgmode"
	"github.com/stretchr/testify/assert"
)

func TestBracketDates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"iso date alone", "2021-05-28", "<2021-05-28>"},
		{"dotted date with surrounding whitespace", "  28.05.2021\t", "  <28.05.2021>\t"},
		{"slashes", "5/28/21", "<5/28/21>"},
		{"backslashes", `28\05\2021`, `<28\05\2021>`},
		{"mixed delimiters", "2021-05.28", "<2021-05.28>"},
		{"space delimited", "28 05 2021", "<28 05 2021>"},
		{"comma delimited", "1,2,3", "<1,2,3>"},
		{"calendar nonsense still bracketed", "2021-13-45", "<2021-13-45>"},
		{"date inside prose untouched", "some text 2021-05-28 more text", "some text 2021-05-28 more text"},
		{"already bracketed untouched", "<2021-05-28>", "<2021-05-28>"},
		{"two components untouched", "2021-05", "2021-05"},
		{"five digit component untouched", "12345-01-01", "12345-01-01"},
		{"trailing text untouched", "2021-05-28 meeting", "2021-05-28 meeting"},
		{"only the date line changes", "* Log\n2021-05-28\nbody 2021-05-29", "* Log\n<2021-05-28>\nbody 2021-05-29"},
		{"several date lines", "2021-01-01\n\n2022-02-02\n", "<2021-01-01>\n\n<2022-02-02>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orgmode.BracketDates(tt.input))
		})
	}
}

func TestBracketDates_Idempotent(t *testing.T) {
	inputs := []string{
		"2021-05-28",
		"<2021-05-28>",
		"* Heading\n  2021.05.28  \ntext\n1/2/3\n",
	}
	for _, in := range inputs {
		once := orgmode.BracketDates(in)
		assert.Equal(t, once, orgmode.BracketDates(once), "input %q", in)
	}
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/dates_test.go ---
