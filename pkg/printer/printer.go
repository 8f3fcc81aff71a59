// Package printer renders command results as tables, CSV, markdown or JSON.
package printer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var ErrSortFormat = errors.New("sort item must be FIELDNAME:asc|dsc|ascnum|dscnum")

// Options are shared by every command that prints a list.
type Options struct {
	Output  string   `short:"o" long:"output" description:"Output format (table, json, json-indent, csv, tsv, html, markdown)" default:"table"`
	Theme   string   `short:"t" long:"table-theme" description:"Table theme (default, frame, box)" default:"default"`
	SortBy  []string `short:"s" long:"sort-by" description:"Can be specified multiple times. Sort by format: FIELDNAME:asc|dsc|ascnum|dscnum"`
	NoColor bool     `long:"no-color" description:"Disable colors in table output"`
	Pager   bool     `short:"p" long:"pager" description:"Use a pager to display the output"`
}

// IsJSON reports whether the output is JSON rather than a rendered table.
func (o Options) IsJSON() bool {
	return o.Output == "json" || o.Output == "json-indent"
}

func parseSort(sortBy []string) ([]table.SortBy, error) {
	modes := map[string]table.SortMode{
		"asc":    table.Asc,
		"dsc":    table.Dsc,
		"ascnum": table.AscNumeric,
		"dscnum": table.DscNumeric,
	}
	out := []table.SortBy{}
	for _, item := range sortBy {
		name, mode, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrSortFormat, item)
		}
		m, ok := modes[mode]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrSortFormat, item)
		}
		out = append(out, table.SortBy{Name: name, Mode: m})
	}
	return out, nil
}

// Table renders rows with the configured style.
type Table struct {
	t      table.Writer
	render func() string
	Color  Colors
	// IsTerminal is true when output goes to a terminal, directly or through the pager.
	IsTerminal bool
}

// Colors highlight statuses in table output. They print plain text when colors are off.
type Colors struct {
	Title Color
	Good  Color
	Warn  Color
	Err   Color
}

type Color struct {
	c      text.Colors
	enable bool
}

func (c Color) Sprint(a ...any) string {
	if c.enable {
		return c.c.Sprint(a...)
	}
	return fmt.Sprint(a...)
}

// NewTable builds a table writer. With a pager the terminal test looks at
// stdin, since stdout is the pager's pipe, and the row length is not capped.
func NewTable(opts Options) (*Table, error) {
	sort, err := parseSort(opts.SortBy)
	if err != nil {
		return nil, err
	}
	t := table.NewWriter()
	render := t.Render
	switch strings.ToUpper(opts.Output) {
	case "HTML":
		render = t.RenderHTML
	case "CSV":
		render = t.RenderCSV
	case "TSV":
		render = t.RenderTSV
	case "MARKDOWN":
		render = t.RenderMarkdown
	}

	fd := os.Stdout.Fd()
	if opts.Pager {
		fd = os.Stdin.Fd()
	}
	isTerminal := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	isColor := isTerminal && opts.Theme == "default" && !opts.NoColor
	if _, ok := os.LookupEnv("NO_COLOR"); ok || os.Getenv("CLICOLOR") == "0" {
		isColor = false
	}
	if len(sort) > 0 {
		t.SortBy(sort)
	}

	if isColor {
		t.SetStyle(table.StyleColoredBlackOnCyanWhite)
	} else {
		t.SetStyle(table.StyleDefault)
		switch opts.Theme {
		case "frame":
			t.SetStyle(table.StyleRounded)
			t.Style().Options.SeparateColumns = false
		case "box":
			t.SetStyle(table.StyleRounded)
			t.Style().Options.SeparateColumns = true
		default:
			t.Style().Options.DrawBorder = false
			t.Style().Options.SeparateColumns = false
		}
	}
	if isTerminal && !opts.Pager {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
			t.SetAllowedRowLength(max(width, 40))
		}
	}
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	return &Table{
		t:      t,
		render: render,
		Color: Colors{
			Title: Color{c: text.Colors{text.FgHiWhite}, enable: isColor},
			Good:  Color{c: text.Colors{text.FgHiGreen}, enable: isColor},
			Warn:  Color{c: text.Colors{text.BgHiYellow, text.FgBlack}, enable: isColor},
			Err:   Color{c: text.Colors{text.BgHiRed, text.FgWhite}, enable: isColor},
		},
		IsTerminal: isTerminal,
	}, nil
}

func (t *Table) Render(title string, header table.Row, rows []table.Row) string {
	if title != "" {
		t.t.SetTitle(t.Color.Title.Sprint(title))
	}
	t.t.AppendHeader(header)
	t.t.AppendRows(rows)
	return t.render()
}

// Status colors a CloudFormation or cluster health status.
func (t *Table) Status(status string) string {
	s := strings.ToUpper(status)
	switch {
	case s == "GREEN" || strings.HasSuffix(s, "_COMPLETE") && !strings.Contains(s, "ROLLBACK") && !strings.Contains(s, "DELETE"):
		return t.Color.Good.Sprint(status)
	case s == "RED" || strings.Contains(s, "FAILED") || strings.Contains(s, "ROLLBACK"):
		return t.Color.Err.Sprint(status)
	case s == "YELLOW" || strings.HasSuffix(s, "_IN_PROGRESS"):
		return t.Color.Warn.Sprint(status)
	}
	return status
}

// JSON writes v to out, indented for json-indent.
func JSON(out io.Writer, output string, v any) error {
	enc := json.NewEncoder(out)
	if output == "json-indent" {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
