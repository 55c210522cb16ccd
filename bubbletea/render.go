package bubbletea

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nibzard/isitclear"
)

// renderConfig holds all rendering parameters for renderReview.
type renderConfig struct {
	view        isitclear.ImprovementResultView
	styles      isitclear.Styles
	renderer    *lipgloss.Renderer
	width       int
	differ      isitclear.WordDiffer
	showDetails bool
}

// tabWidth is the column interval of tab stops.
const tabWidth = 8

// renderReview converts a result view into the scrollable body of the
// reviewer: both texts with word-level highlights, then the change list.
func renderReview(cfg renderConfig) string {
	styles := cfg.styles
	titleStyle := styleFromColorPair(styles.Title, cfg.renderer).Bold(true)
	mutedStyle := styleFromColorPair(styles.Muted, cfg.renderer)
	rule := styleFromColorPair(styles.Border, cfg.renderer).Render(strings.Repeat("─", max(cfg.width, 1)))

	var oldSegs, newSegs []isitclear.Segment
	if cfg.differ != nil {
		oldSegs, newSegs = cfg.differ.Diff(cfg.view.OriginalText, cfg.view.ImprovedText)
	} else {
		oldSegs = []isitclear.Segment{{Text: cfg.view.OriginalText}}
		newSegs = []isitclear.Segment{{Text: cfg.view.ImprovedText}}
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("ORIGINAL"))
	sb.WriteString("\n")
	sb.WriteString(wrap(renderSegments(oldSegs, styles.Text, styles.Removed, cfg.renderer), cfg.width, cfg.renderer))
	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("IMPROVED"))
	sb.WriteString("\n")
	sb.WriteString(wrap(renderSegments(newSegs, styles.Text, styles.Added, cfg.renderer), cfg.width, cfg.renderer))
	sb.WriteString("\n")

	if !cfg.showDetails {
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("%d change(s) hidden", len(cfg.view.Changes))))
		return sb.String()
	}

	sb.WriteString(rule)
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render(fmt.Sprintf("CHANGES (%d)", len(cfg.view.Changes))))
	sb.WriteString("\n")
	for _, c := range cfg.view.Changes {
		sb.WriteString(renderChange(c, styles, cfg.renderer, cfg.width))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderSegments styles changed segments with changed and the rest with
// plain. Newlines inside a segment are kept outside the styled runs so
// backgrounds do not bleed across lines.
func renderSegments(segs []isitclear.Segment, plain, changed isitclear.ColorPair, renderer *lipgloss.Renderer) string {
	plainStyle := styleFromColorPair(plain, renderer)
	changedStyle := styleFromColorPair(changed, renderer)

	var sb strings.Builder
	for _, seg := range segs {
		style := plainStyle
		if seg.Changed {
			style = changedStyle
		}
		for i, line := range strings.Split(expandTabs(seg.Text), "\n") {
			if i > 0 {
				sb.WriteString("\n")
			}
			if line != "" {
				sb.WriteString(style.Render(line))
			}
		}
	}
	return sb.String()
}

func renderChange(c isitclear.ChangeRecord, styles isitclear.Styles, renderer *lipgloss.Renderer, width int) string {
	tagStyle := styleFromColorPair(styles.ChangeTag, renderer).Padding(0, 1)
	removedStyle := styleFromColorPair(styles.Removed, renderer)
	addedStyle := styleFromColorPair(styles.Added, renderer)
	mutedStyle := styleFromColorPair(styles.Muted, renderer)

	if c.IsWholeText() {
		return tagStyle.Render(string(c.Kind())) + " " + mutedStyle.Render(c.Reason())
	}

	line := fmt.Sprintf("%s %s → %s",
		tagStyle.Render(string(c.Kind())),
		removedStyle.Render(oneLine(c.Original())),
		addedStyle.Render(oneLine(c.Improved())),
	)
	return line + "\n" + wrap(mutedStyle.Render("  "+c.Reason()), width, renderer)
}

// renderHeader renders the summary line shown above the viewport.
func renderHeader(view isitclear.ImprovementResultView, styles isitclear.Styles, renderer *lipgloss.Renderer) string {
	titleStyle := styleFromColorPair(styles.Title, renderer).Bold(true)
	mutedStyle := styleFromColorPair(styles.Muted, renderer)
	confidenceStyle := styleFromColorPair(confidenceColor(view.Confidence, styles), renderer)

	return fmt.Sprintf("%s %s %s %s",
		titleStyle.Render("isitclear"),
		mutedStyle.Render(string(view.BackendKind)),
		confidenceStyle.Render(fmt.Sprintf("%.0f%% confidence", view.Confidence*100)),
		mutedStyle.Render(fmt.Sprintf("%.0fms", view.ProcessingTimeMs)),
	)
}

// confidenceColor grades confidence with the same thresholds as quality
// assessment.
func confidenceColor(confidence float64, styles isitclear.Styles) isitclear.ColorPair {
	switch {
	case confidence >= 0.8:
		return styles.Good
	case confidence >= 0.6:
		return styles.Medium
	default:
		return styles.Poor
	}
}

func wrap(s string, width int, renderer *lipgloss.Renderer) string {
	if width <= 0 {
		return s
	}
	var style lipgloss.Style
	if renderer != nil {
		style = renderer.NewStyle()
	} else {
		style = lipgloss.NewStyle()
	}
	return style.Width(width).Render(s)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// expandTabs converts tab characters to spaces using tabWidth-column tab
// stops. Columns restart after each newline.
func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}

	var sb strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			next := (col/tabWidth + 1) * tabWidth
			sb.WriteString(strings.Repeat(" ", next-col))
			col = next
		case '\n':
			sb.WriteRune(r)
			col = 0
		default:
			sb.WriteRune(r)
			col += lipgloss.Width(string(r))
		}
	}
	return sb.String()
}

func styleFromColorPair(cp isitclear.ColorPair, renderer *lipgloss.Renderer) lipgloss.Style {
	var style lipgloss.Style
	if renderer != nil {
		style = renderer.NewStyle()
	} else {
		style = lipgloss.NewStyle()
	}
	if cp.Foreground != "" {
		style = style.Foreground(lipgloss.Color(cp.Foreground))
	}
	if cp.Background != "" {
		style = style.Background(lipgloss.Color(cp.Background))
	}
	return style
}
