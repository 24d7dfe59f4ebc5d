package ui

import "strings"

// ProgressBar renders a fixed-width text bar, e.g. ▬▬▬🔘▬▬▬▬▬▬.
func ProgressBar(width int, progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	knob := int(progress * float64(width))
	if knob >= width {
		knob = width - 1
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == knob {
			b.WriteString("🔘")
		} else {
			b.WriteString("▬")
		}
	}
	return b.String()
}
