package forecast

import (
	"fmt"
	"math"
)

// FormatTemperature renders a temperature for the watch, dropping tenths of a degree.
// Input is always Celsius; imperial output is converted first.
func FormatTemperature(celsius float64, metric bool) string {
	t := celsius
	if !metric {
		t = celsius*1.8 + 32
	}
	r := math.Round(t)
	if r == 0 {
		r = 0 // avoid "-0°"
	}
	return fmt.Sprintf("%.0f°", r)
}
