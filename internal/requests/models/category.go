package models

import "strings"

// CallMarker prefixes the on-chain category of call requests.
const CallMarker = "CALL:"

// EncodeCategory adds the marker for call requests.
func EncodeCategory(kind Kind, category string) string {
	if kind == KindCall {
		return CallMarker + category
	}
	return category
}

// DecodeCategory classifies an on-chain category and strips the marker.
func DecodeCategory(raw string) (Kind, string) {
	if rest, ok := strings.CutPrefix(raw, CallMarker); ok {
		return KindCall, rest
	}
	return KindRequest, raw
}
