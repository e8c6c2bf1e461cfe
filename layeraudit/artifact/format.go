package artifact

import (
	"strconv"
	"strings"
)

// ZeroBytes is the FormatBytes rendering of 0.
const ZeroBytes = "0 Byte"

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count in powers of 1024 with at most two
// fractional digits: 1536 -> "1.5 KB", 1048576 -> "1 MB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return ZeroBytes
	}
	// Integer unit selection: floor(log1024(n)) without float rounding at
	// exact powers of 1024.
	unit := 0
	div := int64(1)
	for unit < len(byteUnits)-1 && n/div >= 1024 {
		div *= 1024
		unit++
	}
	return formatDecimal(float64(n)/float64(div), 2) + " " + byteUnits[unit]
}

// FormatArea renders a pixel area in thousands of px² with one fractional
// digit: 1920x1080 -> "2,073.6 K".
func FormatArea(width, height int) string {
	return formatDecimal(float64(width)*float64(height)/1000, 1) + " K"
}

// formatDecimal prints v with at most prec fractional digits, trailing
// zeros trimmed and the integer part grouped by thousands.
func formatDecimal(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// RoundTo rounds v to prec decimal places.
func RoundTo(v float64, prec int) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', prec, 64), 64)
	return f
}

// FormatMS renders milliseconds rounded to two decimals without padding:
// 0.111 -> "0.11", 12 -> "12".
func FormatMS(ms float64) string {
	return strconv.FormatFloat(RoundTo(ms, 2), 'f', -1, 64)
}

// FormatKB renders a byte count as kilobytes (1000 bytes) rounded to two
// decimals: 12346 -> "12.35".
func FormatKB(n int64) string {
	return strconv.FormatFloat(RoundTo(float64(n)/1000, 2), 'f', -1, 64)
}
