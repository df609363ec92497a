package util

import "strings"

// SanitizeSymbol maps an upstream symbol to a safe file name component.
// Forex/commodity pairs carry slashes (EUR/USD), Yahoo futures carry '='
// (ZQ=F) and indices '^' (^TNX).
func SanitizeSymbol(symbol string) string {
	r := strings.NewReplacer("/", "_", "=", "_", "^", "", "\\", "_", ":", "_")
	return r.Replace(symbol)
}
