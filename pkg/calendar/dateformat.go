package calendar

import (
	"fmt"
	"strings"
)

// DateFormat describes one supported date format in the notations used by
// the server, the web client and the web client's date picker.
type DateFormat struct {
	Name     string `json:"name"`
	JS       string `json:"js"`
	Java     string `json:"java"`
	JSPicker string `json:"jsPicker"`
}

var (
	DefaultDateFormat = DateFormat{Name: "yyyy-MM-dd", JS: "yyyy-MM-dd", Java: "yyyy-MM-dd", JSPicker: "yyyy-mm-dd"}
	DayFirstFormat    = DateFormat{Name: "dd-MM-yyyy", JS: "dd-MM-yyyy", Java: "dd-MM-yyyy", JSPicker: "dd-mm-yyyy"}
)

// DateFormats returns the supported date formats, default first.
func DateFormats() []DateFormat {
	return []DateFormat{DefaultDateFormat, DayFirstFormat}
}

// LookupDateFormat returns the format called name, or the default format.
func LookupDateFormat(name string) DateFormat {
	for _, f := range DateFormats() {
		if f.Name == name {
			return f
		}
	}
	return DefaultDateFormat
}

// Format renders d using a pattern made of the yyyy, MM and dd tokens.
func Format(pattern string, d DateTimeUnit) string {
	return strings.NewReplacer(
		"yyyy", fmt.Sprintf("%04d", d.Year),
		"MM", fmt.Sprintf("%02d", d.Month),
		"dd", fmt.Sprintf("%02d", d.Day),
	).Replace(pattern)
}
