package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// DefaultSymbolsPerLine is how many candidates are listed per console line
const DefaultSymbolsPerLine = 18

const symbolCellWidth = 6

// Console renders reports for a terminal
type Console struct {
	out            io.Writer
	symbolsPerLine int

	heading *color.Color
	info    *color.Color
	warn    *color.Color
}

// NewConsole creates a renderer. When out is a terminal narrower than the
// default layout, fewer symbols are listed per line.
func NewConsole(out io.Writer) *Console {
	perLine := DefaultSymbolsPerLine
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			if fit := width / symbolCellWidth; fit > 0 && fit < perLine {
				perLine = fit
			}
		}
	}

	return &Console{
		out:            out,
		symbolsPerLine: perLine,
		heading:        color.New(color.FgGreen),
		info:           color.New(color.FgBlue),
		warn:           color.New(color.FgRed),
	}
}

// WithSymbolsPerLine overrides the candidate list layout
func (c *Console) WithSymbolsPerLine(n int) *Console {
	if n > 0 {
		c.symbolsPerLine = n
	}
	return c
}

// FormatPercent renders a percentage with sign and thousands separators,
// e.g. +1,234.56%
func FormatPercent(v float64) string {
	s := humanize.FormatFloat("#,###.##", v)
	if v >= 0 {
		s = "+" + s
	}
	return s + "%"
}

// Summary prints how many instruments qualified
func (c *Console) Summary(candidates int) {
	c.info.Fprintf(c.out, "\n%d stocks meet the requirements\n\n", candidates)
}

// Insufficient prints the message shown when too few instruments qualify
func (c *Console) Insufficient() {
	c.warn.Fprintln(c.out, "Not enough stock for further analysis")
	c.warn.Fprintln(c.out, "Try with less strict requirements")
}

// Render prints the candidate list and the best/worst table
func (c *Console) Render(r *Report) error {
	c.heading.Fprintln(c.out, "List of stocks that meet the requirements:")
	fmt.Fprintln(c.out)
	for _, line := range c.symbolLines(r.Candidates) {
		fmt.Fprintln(c.out, line)
	}

	fmt.Fprintln(c.out)
	c.heading.Fprintln(c.out, "Best and worst stocks for every day:")
	fmt.Fprintln(c.out)

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t")+"\t")
	for _, row := range r.Rows {
		cells := make([]string, 0, len(r.Columns))
		cells = append(cells, row.Date.Format(time.DateOnly))
		for _, e := range row.Best {
			cells = append(cells, FormatPercent(e.Value), e.Symbol)
		}
		for _, e := range row.Worst {
			cells = append(cells, FormatPercent(e.Value), e.Symbol)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}

func (c *Console) symbolLines(symbols []string) []string {
	var lines []string
	for start := 0; start < len(symbols); start += c.symbolsPerLine {
		end := start + c.symbolsPerLine
		if end > len(symbols) {
			end = len(symbols)
		}
		cells := make([]string, 0, end-start)
		for _, s := range symbols[start:end] {
			cells = append(cells, fmt.Sprintf("%-5s", s))
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, " "), " "))
	}
	return lines
}
