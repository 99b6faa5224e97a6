package model

import (
	"fmt"
	"slices"
	"strings"
)

// Format identifies a log dialect.
type Format string

const (
	// FormatAuto asks the stream to detect the format from the first line.
	FormatAuto           Format = ""
	FormatJSON           Format = "json"
	FormatApacheCombined Format = "apache_combined"
	FormatApacheCommon   Format = "apache_common"
	FormatNginxError     Format = "nginx_error"
	FormatPlainText      Format = "plain_text"
)

// Formats returns every concrete format in detection order.
func Formats() []Format {
	return []Format{FormatJSON, FormatApacheCombined, FormatApacheCommon, FormatNginxError, FormatPlainText}
}

// ParseFormat converts a user-supplied token into a Format.
// The empty string and "auto" select FormatAuto.
func ParseFormat(s string) (Format, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if token == "" || token == "auto" {
		return FormatAuto, nil
	}
	for _, f := range Formats() {
		if Format(token) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Known reports whether f is FormatAuto or one of Formats.
func (f Format) Known() bool {
	return f == FormatAuto || slices.Contains(Formats(), f)
}

func (f Format) String() string {
	if f == FormatAuto {
		return "auto"
	}
	return string(f)
}
