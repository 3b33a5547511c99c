// Package currency converts provider amounts from minor to major units.
package currency

import (
	"strconv"
	"strings"
)

// zeroDecimal currencies are quoted by providers in major units already.
var zeroDecimal = map[string]struct{}{
	"BIF": {}, "CLP": {}, "COP": {}, "DJF": {}, "GNF": {}, "IDR": {}, "JPY": {},
	"KMF": {}, "KRW": {}, "MGA": {}, "PYG": {}, "RWF": {}, "UGX": {}, "VND": {},
	"VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// Normalize upper-cases a currency code, defaulting to USD.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "USD"
	}
	return code
}

func IsZeroDecimal(code string) bool {
	_, ok := zeroDecimal[Normalize(code)]
	return ok
}

// ToMajor converts an amount in the currency's smallest unit to major units.
func ToMajor(amountMinor int64, code string) float64 {
	if IsZeroDecimal(code) {
		return float64(amountMinor)
	}
	return float64(amountMinor) / 100
}

// FormatMajor renders the major-unit amount with the currency's precision.
func FormatMajor(amountMinor int64, code string) string {
	if IsZeroDecimal(code) {
		return strconv.FormatInt(amountMinor, 10)
	}
	sign := ""
	if amountMinor < 0 {
		sign = "-"
		amountMinor = -amountMinor
	}
	return sign + strconv.FormatInt(amountMinor/100, 10) + "." + pad2(amountMinor%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
