package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// Palette colours.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourAccent  = lipgloss.Color("#06B6D4")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourError   = lipgloss.Color("#F38BA8")
)

// palette renders text with or without ANSI styling.
type palette struct {
	title func(...string) string
	id    func(...string) string
	muted func(...string) string
	score func(...string) string
	yes   func(...string) string
	no    func(...string) string
}

func plainPalette() palette {
	plain := func(s ...string) string { return strings.Join(s, " ") }
	return palette{title: plain, id: plain, muted: plain, score: plain, yes: plain, no: plain}
}

func styledPalette() palette {
	return palette{
		title: lipgloss.NewStyle().Bold(true).Foreground(colourPrimary).Render,
		id:    lipgloss.NewStyle().Foreground(colourAccent).Render,
		muted: lipgloss.NewStyle().Foreground(colourMuted).Render,
		score: lipgloss.NewStyle().Bold(true).Render,
		yes:   lipgloss.NewStyle().Foreground(colourSuccess).Render,
		no:    lipgloss.NewStyle().Foreground(colourError).Render,
	}
}

// paletteFor styles output only when w is an interactive terminal.
func paletteFor(w io.Writer) palette {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return styledPalette()
	}
	return plainPalette()
}

func renderResults(w io.Writer, p palette, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	for i := range results {
		r := &results[i]
		title := r.Metadata.Title
		if title == "" {
			title = r.ItemID
		}
		fmt.Fprintf(w, "%2d. %s %s  %s\n", i+1, p.title(title), p.id("("+r.ItemID+")"), p.score(fmt.Sprintf("%.4f", r.Score)))

		meta := []string{string(r.Metadata.Modality)}
		if len(r.Metadata.Tags) > 0 {
			meta = append(meta, "tags: "+strings.Join(r.Metadata.Tags, ", "))
		}
		if !r.Metadata.CreatedAt.IsZero() {
			meta = append(meta, r.Metadata.CreatedAt.Format("2006-01-02"))
		}
		meta = append(meta, fmt.Sprintf("%d chunk(s)", len(r.MatchedChunks)))
		fmt.Fprintf(w, "    %s\n", p.muted(strings.Join(meta, " | ")))

		if r.Preview != "" {
			fmt.Fprintf(w, "    %s\n", r.Preview)
		}
		fmt.Fprintln(w)
	}
}

func yesNo(p palette, v bool) string {
	if v {
		return p.yes("yes")
	}
	return p.no("no")
}
