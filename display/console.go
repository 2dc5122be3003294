package display

import (
	"fmt"
	"io"
	"strings"
)

// Console prints the rows to a terminal, with the degree sign restored.
type Console struct {
	w    io.Writer
	last string
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Show prints only when the screen content changes.
func (c *Console) Show(rows []string) error {
	screen := strings.Join(rows, "\n")
	if screen == c.last {
		return nil
	}
	c.last = screen
	border := "+" + strings.Repeat("-", width(rows)) + "+"
	var b strings.Builder
	b.WriteString(border + "\n")
	for _, row := range rows {
		b.WriteString("|" + strings.ReplaceAll(row, Degree, "°") + "|\n")
	}
	b.WriteString(border + "\n")
	_, err := fmt.Fprint(c.w, b.String())
	return err
}

func (c *Console) Close() error { return nil }

func width(rows []string) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
