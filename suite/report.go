package suite

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jszwec/csvutil"
	"go.uber.org/multierr"
)

var (
	groupStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// WriteText writes a human readable report grouped by case group. styled
// enables colors and should only be set for terminals.
func WriteText(w io.Writer, results []Result, styled bool) error {
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	group := ""
	for _, r := range results {
		if r.Group != group {
			if group != "" {
				b.WriteByte('\n')
			}
			group = r.Group
			b.WriteString(render(groupStyle, group))
			b.WriteByte('\n')
		}

		var status string
		switch r.Status {
		case StatusPass:
			status = render(passStyle, "PASS")
		case StatusFail:
			status = render(failStyle, "FAIL")
		default:
			status = render(skipStyle, "SKIP")
		}
		fmt.Fprintf(&b, "  %s %s %s\n", status, r.Name, render(detailStyle, "("+r.Duration.Round(time.Microsecond).String()+")"))

		if r.Err != nil {
			for _, e := range multierr.Errors(r.Err) {
				fmt.Fprintf(&b, "       %s\n", render(detailStyle, e.Error()))
			}
		}
	}

	s := Summarize(results)
	line := fmt.Sprintf("%d passed, %d failed, %d skipped", s.Pass, s.Fail, s.Skip)
	if s.OK() {
		line = render(passStyle, line)
	} else {
		line = render(failStyle, line)
	}
	if len(results) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(line)
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

type csvRow struct {
	Group      string  `csv:"group"`
	Name       string  `csv:"name"`
	Status     string  `csv:"status"`
	DurationMS float64 `csv:"duration_ms"`
	Class      string  `csv:"class,omitempty"`
	Error      string  `csv:"error,omitempty"`
}

// WriteCSV writes one row per result under a header row.
func WriteCSV(w io.Writer, results []Result) error {
	csvWriter := csv.NewWriter(w)
	encoder := csvutil.NewEncoder(csvWriter)

	if err := encoder.EncodeHeader(csvRow{}); err != nil {
		return err
	}
	for _, r := range results {
		row := csvRow{
			Group:      r.Group,
			Name:       r.Name,
			Status:     string(r.Status),
			DurationMS: float64(r.Duration.Microseconds()) / 1000,
			Class:      r.Class,
		}
		if r.Err != nil {
			var msgs []string
			for _, e := range multierr.Errors(r.Err) {
				msgs = append(msgs, e.Error())
			}
			row.Error = strings.Join(msgs, "; ")
		}
		if err := encoder.Encode(row); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
