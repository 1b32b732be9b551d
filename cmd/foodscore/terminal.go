package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jrsteele09/go-foodscore/api"
	"github.com/jrsteele09/go-foodscore/score"
	"github.com/pkg/errors"
)

const barWidth = 20

// terminalRenderer shows guard states on the terminal. A redirect to the login view ends
// the command with a hint instead.
type terminalRenderer struct {
	errOut  io.Writer
	content func() error
	err     error
}

func (r *terminalRenderer) Loading() {
	fmt.Fprintln(r.errOut, "Checking session...")
}

func (r *terminalRenderer) Content() {
	r.err = r.content()
}

func (r *terminalRenderer) Redirect(path string) {
	r.err = errors.Errorf("not logged in (%s): run `foodscore login -email you@example.com -password ...` first", path)
}

// terminalPresenter prints finished analyses and keeps the last alert for the exit error
type terminalPresenter struct {
	out   io.Writer
	alert string
}

func (p *terminalPresenter) ShowResult(result *api.AnalysisResult) error {
	printResult(p.out, *result)
	return nil
}

func (p *terminalPresenter) Alert(msg string) {
	p.alert = msg
}

// bar draws the gauge as a horizontal progress bar
func bar(g score.Gauge) string {
	filled := int(math.Round(g.Ring.Progress() * barWidth))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func printGauge(w io.Writer, label string, g score.Gauge) {
	fmt.Fprintf(w, "%-12s %5s %s %s\n", label, g.Display, bar(g), g.Category.Name)
}

func printResult(w io.Writer, result api.AnalysisResult) {
	printGauge(w, "Total", score.NewGauge(result.TotalScore))
	printGauge(w, "Ingredients", score.NewGauge(result.IngredientsScore))
	printGauge(w, "Nutrition", score.NewGauge(result.NutritionScore))

	if result.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", result.Summary)
	}
	if nutrients := result.Nutrients(); len(nutrients) > 0 {
		fmt.Fprintln(w, "\nNutrition facts:")
		for _, n := range nutrients {
			fmt.Fprintf(w, "  %-16s %g\n", n.Name, n.Value)
		}
	}
	if len(result.IngredientsRawData) > 0 {
		fmt.Fprintf(w, "\nIngredients: %s\n", strings.Join(result.IngredientsRawData, ", "))
	}
}
