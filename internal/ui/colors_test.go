package ui

import (
	"strings"
	"testing"

	"github.com/law-makers/pdfharvest/pkg/models"
)

func TestOutcome(t *testing.T) {
	cases := map[models.Outcome]string{
		models.OutcomeSaved:          ColorGreen,
		models.OutcomeSaveUnverified: ColorYellow,
		models.OutcomeFailed:         ColorRed,
	}
	for o, color := range cases {
		got := Outcome(o)
		if !strings.HasPrefix(got, color) || !strings.Contains(got, string(o)) {
			t.Errorf("Outcome(%s) = %q", o, got)
		}
	}
}
