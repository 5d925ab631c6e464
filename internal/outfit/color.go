package outfit

import "strings"

// Color harmony scores.
const (
	ScoreGood    = 90
	ScoreDefault = 50
	ScoreClash   = 30
)

var goodPairs = map[[2]string]bool{
	{"black", "white"}: true,
	{"navy", "beige"}:  true,
	{"gray", "black"}:  true,
	{"white", "blue"}:  true,
}

var neutrals = map[string]bool{"black": true, "white": true, "gray": true}

// ColorMatchScore rates how well two color labels go together, 0 to 100.
// It is informational only and never affects which outfits are suggested.
func ColorMatchScore(top, bottom string) int {
	top = normalizeColor(top)
	bottom = normalizeColor(bottom)

	if goodPairs[[2]string{top, bottom}] || goodPairs[[2]string{bottom, top}] {
		return ScoreGood
	}
	// Same non-neutral color head to toe.
	if top == bottom && top != "" && !neutrals[top] {
		return ScoreClash
	}
	return ScoreDefault
}

func normalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "grey" {
		return "gray"
	}
	return c
}
