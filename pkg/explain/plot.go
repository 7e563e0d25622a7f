package explain

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

const (
	// plotBarWidth is the number of cells used for the widest bar.
	plotBarWidth = 24
	// plotTokenWidth is the column width reserved for token text.
	plotTokenWidth = 18
	// plotTextWidth caps the instance header text.
	plotTextWidth = 72
)

var (
	plotHeaderStyle   = lipgloss.NewStyle().Bold(true)
	plotMetaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	plotPositiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	plotNegativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Plot renders the explanation as signed attribution bars, one block per
// instance. Positive attributions render green, negative red, with bar
// length proportional to the attribution magnitude within the instance.
func (le *LocalExplanation) Plot(w io.Writer) error {
	return le.PlotWidth(w, 0)
}

// PlotWidth renders like Plot but caps header text at the given terminal
// width. Zero or negative width uses the default layout.
func (le *LocalExplanation) PlotWidth(w io.Writer, width int) error {
	textWidth := plotTextWidth
	if width > 2 && width-2 < textWidth {
		textWidth = width - 2
	}
	for i, instance := range le.Instances {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := plotInstance(w, le.Method, instance, textWidth); err != nil {
			return err
		}
	}
	return nil
}

func plotInstance(w io.Writer, method string, instance InstanceExplanation, textWidth int) error {
	header := truncate.StringWithTail(instance.Text, uint(textWidth), "…")
	if _, err := fmt.Fprintln(w, plotHeaderStyle.Render(header)); err != nil {
		return err
	}

	prediction := instance.PredictedClass
	if prediction == "" {
		prediction = fmt.Sprintf("class %d", instance.PredictedLabel)
	}
	meta := fmt.Sprintf("%s · %s (%.3f)", method, prediction, instance.PredictedScore)
	if _, err := fmt.Fprintln(w, plotMetaStyle.Render(meta)); err != nil {
		return err
	}

	maxMag := instance.MaxMagnitude()
	for _, attr := range instance.Attributions {
		if _, err := fmt.Fprintln(w, plotBar(attr, maxMag)); err != nil {
			return err
		}
	}
	return nil
}

// plotBar renders one "token  ██████  +0.4213" line.
func plotBar(attr TokenAttribution, maxMag float64) string {
	token := truncate.StringWithTail(attr.Token, plotTokenWidth, "…")
	padding := plotTokenWidth - runewidth.StringWidth(token)
	if padding < 0 {
		padding = 0
	}

	cells := 0
	if maxMag > 0 {
		cells = int((abs(attr.Score)/maxMag)*plotBarWidth + 0.5)
	}
	if cells == 0 && attr.Score != 0 {
		cells = 1
	}

	bar := strings.Repeat("█", cells)
	style := plotPositiveStyle
	if attr.Score < 0 {
		style = plotNegativeStyle
	}

	return fmt.Sprintf("  %s%s %s %+.4f",
		token,
		strings.Repeat(" ", padding),
		style.Render(fmt.Sprintf("%-*s", plotBarWidth, bar)),
		attr.Score,
	)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
