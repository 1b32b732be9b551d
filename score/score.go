// Package score turns a backend health score into what the views draw: a bounded ring
// and one of four qualitative categories. It is the only place the band table lives.
package score

import (
	"fmt"
	"math"
)

// RingRadius is the radius every score ring is drawn with.
const RingRadius = 58.0

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Band identifies one of the four score categories, ordered from worst to best.
type Band int

const (
	BandPoor Band = iota
	BandModerate
	BandHealthy
	BandSuperfood
)

// Category is the qualitative reading of a score
type Category struct {
	Band        Band
	Name        string
	Description string
	Color       string
	MinScore    float64 // inclusive lower bound
}

// categories is ordered highest band first; Categorize relies on that order.
var categories = []Category{
	{
		Band:        BandSuperfood,
		Name:        "Superfoods & Whole Foods",
		Description: "Minimally processed and nutrient dense. A great everyday choice.",
		Color:       "green",
		MinScore:    90,
	},
	{
		Band:        BandHealthy,
		Name:        "Healthy but Some Processing",
		Description: "A good option overall, with some added ingredients or processing.",
		Color:       "lime",
		MinScore:    60,
	},
	{
		Band:        BandModerate,
		Name:        "Moderately Processed & Less Nutritious",
		Description: "Fine occasionally. Watch the sugar, sodium and additives.",
		Color:       "amber",
		MinScore:    30,
	},
	{
		Band:        BandPoor,
		Name:        "Highly Processed & Poor Nutrition",
		Description: "Heavily processed with little nutritional value. Best kept to a minimum.",
		Color:       "red",
		MinScore:    math.Inf(-1),
	},
}

// Ring describes a circular gauge as an SVG stroke dash array/offset pair.
type Ring struct {
	Radius        float64
	Circumference float64
	Offset        float64
}

// Progress is the filled fraction of the ring in [0,1]
func (r Ring) Progress() float64 {
	if r.Circumference == 0 {
		return 0
	}
	return (r.Circumference - r.Offset) / r.Circumference
}

// Normalize clamps score to [0,100]. NaN is treated as 0.
func Normalize(score float64) float64 {
	if math.IsNaN(score) {
		return MinScore
	}
	return math.Min(math.Max(score, MinScore), MaxScore)
}

// RingProgress computes the ring geometry for score. The offset is always within
// [0, circumference]; a non-positive radius gives the zero ring.
func RingProgress(score, radius float64) Ring {
	if radius <= 0 || math.IsNaN(radius) {
		return Ring{}
	}
	circumference := 2 * math.Pi * radius
	offset := circumference - (Normalize(score)/MaxScore)*circumference
	return Ring{
		Radius:        radius,
		Circumference: circumference,
		Offset:        math.Min(math.Max(offset, 0), circumference),
	}
}

// Categorize maps a score to its category. Bounds are inclusive on the lower side, so 30, 60
// and 90 belong to the higher band.
func Categorize(score float64) Category {
	for _, c := range categories {
		if score >= c.MinScore {
			return c
		}
	}
	// NaN compares false against every bound
	return categories[len(categories)-1]
}

// Categories returns the band table, best first, for legends.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// FormatScore renders a score with one decimal place.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}

// Gauge bundles everything a view needs to draw one score.
type Gauge struct {
	Value    float64
	Display  string
	Ring     Ring
	Category Category
}

func NewGauge(score float64) Gauge {
	return Gauge{
		Value:    score,
		Display:  FormatScore(score),
		Ring:     RingProgress(score, RingRadius),
		Category: Categorize(score),
	}
}
