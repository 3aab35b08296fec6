package dashboard_test

import (
	"math"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"kardashev/internal/dashboard"
	"kardashev/internal/kardashev"
)

type viewSuite struct{}

var _ = gc.Suite(&viewSuite{})

func (s *viewSuite) TestSelection(c *gc.C) {
	var selection dashboard.Selection
	_, ok := selection.Selected()
	c.Check(ok, jc.IsFalse)

	c.Assert(selection.Select(kardashev.TypeII), jc.ErrorIsNil)
	selected, ok := selection.Selected()
	c.Check(ok, jc.IsTrue)
	c.Check(selected, gc.Equals, kardashev.TypeII)

	c.Assert(selection.Select(kardashev.TypeIII), jc.ErrorIsNil)
	selected, _ = selection.Selected()
	c.Check(selected, gc.Equals, kardashev.TypeIII)

	selection.Clear()
	_, ok = selection.Selected()
	c.Check(ok, jc.IsFalse)
}

func (s *viewSuite) TestSelectRejectsUnknownType(c *gc.C) {
	var selection dashboard.Selection
	c.Assert(selection.Select(kardashev.TypeI), jc.ErrorIsNil)

	err := selection.Select(kardashev.Type(4))
	c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
	c.Check(selection.Select(0), gc.NotNil)

	selected, ok := selection.Selected()
	c.Check(ok, jc.IsTrue)
	c.Check(selected, gc.Equals, kardashev.TypeI)
}

func (s *viewSuite) TestFormatStat(c *gc.C) {
	for _, test := range []struct {
		value    float64
		expected string
	}{
		{8_100_000_000, "8.10B"},
		{1_000_000_000, "1.00B"},
		{12_345_678, "12.35M"},
		{999_999, "999,999"},
		{1234, "1,234"},
		{1234.567, "1,234.57"},
		{0, "0"},
		{-2_500_000, "-2.50M"},
		{math.NaN(), "-"},
	} {
		c.Check(dashboard.FormatStat(test.value), gc.Equals, test.expected, gc.Commentf("%v", test.value))
	}
}
