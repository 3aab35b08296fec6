// Package kardashev holds the static reference data shown next to the live
// indicators: the civilization milestone timeline, the three Kardashev types,
// and the conversion from energy use to a position on the scale.
package kardashev

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

//go:embed timeline.yaml
var timelineYAML []byte

type Milestone struct {
	Year        int      `yaml:"year" json:"year"`
	Value       float64  `yaml:"value" json:"value"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Milestones  []string `yaml:"milestones" json:"milestones"`
}

var loadTimeline = sync.OnceValues(func() ([]Milestone, error) {
	return ParseTimeline(timelineYAML)
})

// Timeline returns the embedded milestones ordered by year. The returned
// slice is a copy.
func Timeline() ([]Milestone, error) {
	milestones, err := loadTimeline()
	if err != nil {
		return nil, errors.Trace(err)
	}
	out := make([]Milestone, len(milestones))
	copy(out, milestones)
	return out, nil
}

func ParseTimeline(data []byte) ([]Milestone, error) {
	var milestones []Milestone
	if err := yaml.Unmarshal(data, &milestones); err != nil {
		return nil, errors.Annotate(err, "kardashev: parsing timeline")
	}
	if len(milestones) == 0 {
		return nil, errors.NotFoundf("kardashev milestones")
	}
	seen := make(map[int]struct{}, len(milestones))
	for _, milestone := range milestones {
		if milestone.Title == "" {
			return nil, errors.NotValidf("milestone for year %d without title", milestone.Year)
		}
		if _, ok := seen[milestone.Year]; ok {
			return nil, errors.NotValidf("duplicate milestone year %d", milestone.Year)
		}
		seen[milestone.Year] = struct{}{}
	}
	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].Year < milestones[j].Year
	})
	return milestones, nil
}

// Nearest returns the milestone whose year is closest to year. On a tie the
// earlier milestone wins.
func Nearest(milestones []Milestone, year int) (Milestone, bool) {
	if len(milestones) == 0 {
		return Milestone{}, false
	}
	best := milestones[0]
	bestDistance := distance(best.Year, year)
	for _, milestone := range milestones[1:] {
		if d := distance(milestone.Year, year); d < bestDistance {
			best = milestone
			bestDistance = d
		}
	}
	return best, true
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func FormatYear(year int) string {
	if year < 0 {
		return fmt.Sprintf("%d BCE", -year)
	}
	return fmt.Sprintf("%d", year)
}

type Type int

const (
	TypeI   Type = 1
	TypeII  Type = 2
	TypeIII Type = 3
)

type TypeInfo struct {
	Type        Type    `json:"type"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PowerWatts  float64 `json:"power_watts"`
}

var types = []TypeInfo{
	{
		Type:        TypeI,
		Name:        "Type I",
		Description: "A civilization that can harness all the energy of its home planet.",
		PowerWatts:  1e16,
	},
	{
		Type:        TypeII,
		Name:        "Type II",
		Description: "A civilization capable of harnessing the total energy output of its parent star.",
		PowerWatts:  1e26,
	},
	{
		Type:        TypeIII,
		Name:        "Type III",
		Description: "A civilization that can control energy on the scale of its entire host galaxy.",
		PowerWatts:  1e36,
	},
}

func Types() []TypeInfo {
	out := make([]TypeInfo, len(types))
	copy(out, types)
	return out
}

func (t Type) Valid() bool {
	return t >= TypeI && t <= TypeIII
}

func (t Type) Info() (TypeInfo, bool) {
	if !t.Valid() {
		return TypeInfo{}, false
	}
	return types[t-1], true
}

func (t Type) String() string {
	if info, ok := t.Info(); ok {
		return info.Name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Rating places a power level on the scale with Sagan's interpolation
// K = (log10(P) - 6) / 10, P in watts.
func Rating(watts float64) (float64, error) {
	if math.IsNaN(watts) || math.IsInf(watts, 0) || watts <= 0 {
		return 0, errors.NotValidf("power %v", watts)
	}
	return (math.Log10(watts) - 6) / 10, nil
}

const (
	joulesPerBTU   = 1055.05585262
	secondsPerYear = 365.25 * 24 * 60 * 60
)

// QuadBTUToWatts converts an annual consumption in quadrillion BTU to the
// average power drawn over the year.
func QuadBTUToWatts(quads float64) float64 {
	return quads * 1e15 * joulesPerBTU / secondsPerYear
}
