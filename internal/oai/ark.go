package oai

import "strings"

// ArkToInfo converts an ark name to its info-URI identifier form.
// Values without an "ark:" marker pass through unchanged.
func ArkToInfo(ark string) string {
	_, rest, found := strings.Cut(ark, "ark:")
	if !found {
		return ark
	}
	return "info:ark" + rest
}

// InfoToArk converts an info-URI identifier back to the stored ark
// name. Non-matching values pass through unchanged so lookups on them
// fail naturally.
func InfoToArk(identifier string) string {
	_, rest, found := strings.Cut(identifier, "info:ark")
	if !found {
		return identifier
	}
	return "ark:" + rest
}
