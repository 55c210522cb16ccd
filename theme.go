package isitclear

// ColorPair represents a foreground and background color combination.
// Colors should be hex strings in "#RRGGBB" format (e.g., "#ff0000" for red).
// Empty strings are valid and indicate no color override (use terminal default).
type ColorPair struct {
	Foreground string
	Background string
}

// Styles contains color pairs for all visual elements of a review.
type Styles struct {
	Title     ColorPair // Header line
	Text      ColorPair // Unchanged text
	Removed   ColorPair // Changed text in the original (word-level diff)
	Added     ColorPair // Changed text in the improvement (word-level diff)
	Muted     ColorPair // Labels, reasons and help
	Good      ColorPair // Good quality and high confidence
	Medium    ColorPair // Medium quality
	Poor      ColorPair // Poor quality and low confidence
	Border    ColorPair // Panel borders
	ChangeTag ColorPair // Change kind badges
}

// Theme provides styles for rendering reviews.
// Different implementations can provide light/dark variants.
type Theme interface {
	Styles() Styles
}
