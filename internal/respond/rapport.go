package respond

import (
	"fmt"
	"strings"

	"abyssal/internal/state"
)

// rapportWidth is the character width of the meter.
const rapportWidth = 20

// RapportBar renders the confidence meter line the terminal prints at the
// top of each reply, e.g.
//
//	rapport [=========>..........] 47/100 curious
func RapportBar(confidence int) string {
	confidence = state.Clamp(confidence)
	filled := confidence * rapportWidth / 100

	var b strings.Builder
	b.WriteString("rapport [")
	for i := 0; i < rapportWidth; i++ {
		switch {
		case i < filled:
			b.WriteByte('=')
		case i == filled && confidence < 100:
			b.WriteByte('>')
		default:
			b.WriteByte('.')
		}
	}
	fmt.Fprintf(&b, "] %d/100 %s", confidence, state.MoodFor(confidence))
	return b.String()
}
