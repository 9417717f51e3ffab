package sequencer

import (
	"unicode"

	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

// qwertyNeighbors maps each letter to the keys around it.
var qwertyNeighbors = map[rune]string{
	'q': "wa", 'w': "qeas", 'e': "wrds", 'r': "etdf", 't': "ryfg",
	'y': "tugh", 'u': "yijh", 'i': "uokj", 'o': "iplk", 'p': "ol",
	'a': "qwsz", 's': "wedxza", 'd': "erfcxs", 'f': "rtgvcd", 'g': "tyhbvf",
	'h': "yujnbg", 'j': "uikmnh", 'k': "ioljm", 'l': "opk",
	'z': "asx", 'x': "zsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn",
	'n': "bhjm", 'm': "njk",
}

// NearbyKey returns a key adjacent to ch on a QWERTY layout, keeping its case.
// Runes without neighbours come back unchanged.
func NearbyKey(r sampling.Rand, ch rune) rune {
	neighbors, ok := qwertyNeighbors[unicode.ToLower(ch)]
	if !ok {
		return ch
	}
	picked := sampling.Pick(r, []rune(neighbors))
	if unicode.IsUpper(ch) {
		return unicode.ToUpper(picked)
	}
	return picked
}

func isASCIILetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
