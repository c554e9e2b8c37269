package entities

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	thousandsNumber = regexp.MustCompile(`^[1-9]\d{0,2}(,\d{3})+(\.\d+)?$`)
	decimalComma    = regexp.MustCompile(`^\d+,\d+$`)
)

// NormalizeNumber rewrites a hand-typed number into dot-decimal form.
// "1,200" and "12,500.5" use commas as thousands separators, "7,2" uses a
// decimal comma. Any other use of a comma is ambiguous and rejected.
func NormalizeNumber(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ",") {
		return s, nil
	}
	switch {
	case thousandsNumber.MatchString(s):
		return strings.ReplaceAll(s, ",", ""), nil
	case decimalComma.MatchString(s):
		return strings.Replace(s, ",", ".", 1), nil
	default:
		return "", fmt.Errorf("ambiguous number %q", s)
	}
}
