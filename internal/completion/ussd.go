package completion

import (
	"math"
	"strconv"
	"strings"
)

const (
	ussdPrefix = "*155*2*1*"
	// feeRate is the share of the amount that reaches the merchant.
	feeRate = 0.99
)

// USSD builds the Moov merchant payment code for amount. The 1% fee is
// deducted and truncated, with a floor of 1.
func USSD(amount float64, merchant string) string {
	net := math.Floor(math.Max(1, amount*feeRate))
	return ussdPrefix + merchant + "*" + strconv.FormatFloat(net, 'f', 0, 64) + "#"
}

// DialURI wraps a USSD string in a tel: URI; "#" must be escaped there.
func DialURI(ussd string) string {
	return "tel:" + strings.ReplaceAll(ussd, "#", "%23")
}
