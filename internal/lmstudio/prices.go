package lmstudio

import (
	"regexp"
	"strings"
)

// Offer emails state prices as stacked labels, "price" then "usd" then
// the number on separate lines, with an optional "casino" line above.
// The model misreads these often enough that they are read directly
// from the text and trusted over its output.
var (
	casinoPricePattern = regexp.MustCompile(`casino\s*\n\s*price\s*\n\s*usd\s*\n\s*(\d+)`)
	pricePattern       = regexp.MustCompile(`price\s*\n\s*usd\s*\n\s*(\d+)`)
	nonDigits          = regexp.MustCompile(`\D`)
)

// extractPrices scans the lowercased text for the standard and casino
// price blocks. A price block that belongs to a casino block is never
// reported as the standard price, so the same digits are not counted
// twice.
func extractPrices(text string) (priceUSD, priceCasino string) {
	lower := strings.ToLower(text)

	casinoLocs := casinoPricePattern.FindAllStringSubmatchIndex(lower, -1)
	if len(casinoLocs) > 0 {
		first := casinoLocs[0]
		priceCasino = lower[first[2]:first[3]]
	}

	for _, loc := range pricePattern.FindAllStringSubmatchIndex(lower, -1) {
		if insideAny(loc[0], casinoLocs) {
			continue
		}
		priceUSD = lower[loc[2]:loc[3]]
		break
	}
	return priceUSD, priceCasino
}

func insideAny(pos int, ranges [][]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// digitsOnly strips everything but digits, matching how prices are
// stored in the table.
func digitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}
