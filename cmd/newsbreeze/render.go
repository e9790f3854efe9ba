package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/newsbreeze/internal/config"
	"github.com/MrWong99/newsbreeze/internal/news"
)

const textWidth = 78

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorError   = lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#F25D94"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#DBDBDB", Dark: "#383838"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	numberStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(4)

	summaryStyle = lipgloss.NewStyle().
			Width(textWidth).
			PaddingLeft(4)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			PaddingLeft(4)

	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	accentStyle = lipgloss.NewStyle().Foreground(colorAccent)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

func renderArticles(w io.Writer, articles []news.Article) {
	for i, a := range articles {
		renderArticle(w, i+1, a)
	}
}

func renderArticle(w io.Writer, n int, a news.Article) {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		numberStyle.Render(fmt.Sprintf("%d.", n)),
		titleStyle.Width(textWidth-4).Render(a.Title),
	)
	fmt.Fprintln(w, header)
	if a.Summary != "" {
		fmt.Fprintln(w, summaryStyle.Render(a.Summary))
	}
	var meta []string
	if a.Source != "" {
		meta = append(meta, a.Source)
	}
	if a.PublishedAt != "" {
		meta = append(meta, a.PublishedAt)
	}
	if len(meta) > 0 {
		fmt.Fprintln(w, metaStyle.Render(strings.Join(meta, " · ")))
	}
	if a.URL != "" {
		fmt.Fprintln(w, metaStyle.Render(a.URL))
	}
	fmt.Fprintln(w)
}

func printStartupSummary(cfg *config.Config, svc *services) {
	row := func(k, v string) string {
		return dimStyle.Render(fmt.Sprintf("%-12s", k)) + " " + v
	}
	orNone := func(names []string) string {
		if len(names) == 0 {
			return errorStyle.Render("(not configured)")
		}
		return strings.Join(names, ", ")
	}
	lines := []string{
		titleStyle.Render("NewsBreeze " + version),
		row("Listen", cfg.Server.ListenAddr),
		row("News", fmt.Sprintf("%s (%s, %d per page)", cfg.News.Source, cfg.News.Country, cfg.News.PageSize)),
		row("Summarize", orNone(svc.Summarizer.Backends())),
		row("TTS", orNone(svc.Synthesizer.Backends())),
	}
	if cfg.Server.APIURL != "" {
		lines = append(lines, row("API URL", cfg.Server.APIURL))
	}
	fmt.Fprintln(os.Stderr, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}
