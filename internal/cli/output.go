package cli

import (
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

const (
	defaultWidth = 100
	minNameWidth = 12
)

var (
	goldColor   = color.New(color.FgYellow, color.Bold)
	silverColor = color.New(color.FgWhite, color.Bold)
	bronzeColor = color.New(color.FgRed)
	pointsColor = color.New(color.FgGreen)
	lossColor   = color.New(color.FgRed)
)

// terminalWidth reports the width of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}

// truncate shortens s to n runes with a trailing ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// rankLabel colours the podium.
func rankLabel(rank int) string {
	s := strconv.Itoa(rank)
	switch rank {
	case 1:
		return goldColor.Sprint(s)
	case 2:
		return silverColor.Sprint(s)
	case 3:
		return bronzeColor.Sprint(s)
	}
	return s
}

func pointsLabel(p int) string {
	switch {
	case p > 0:
		return pointsColor.Sprintf("+%d", p)
	case p < 0:
		return lossColor.Sprint(p)
	}
	return "0"
}

// renderTable writes a right-aligned table.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
