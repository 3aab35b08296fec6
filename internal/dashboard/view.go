package dashboard

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"kardashev/internal/kardashev"
)

// Selection is the civilization type highlighted on the scale. The zero
// value has nothing selected.
type Selection struct {
	selected kardashev.Type
}

func (s *Selection) Select(t kardashev.Type) error {
	if !t.Valid() {
		return errors.NotValidf("civilization type %d", int(t))
	}
	s.selected = t
	return nil
}

func (s *Selection) Clear() {
	s.selected = 0
}

func (s Selection) Selected() (kardashev.Type, bool) {
	if s.selected == 0 {
		return 0, false
	}
	return s.selected, true
}

// FormatStat renders a headline number: billions and millions with two
// decimals and a suffix, anything smaller comma grouped.
func FormatStat(v float64) string {
	switch abs := math.Abs(v); {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "-"
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v == math.Trunc(v):
		return humanize.Comma(int64(v))
	default:
		return humanize.FormatFloat("#,###.##", v)
	}
}
