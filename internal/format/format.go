// Package format renders counts and rates for display under the three
// number format settings: scientific, compact (SI prefixes) and full.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/roach88/matter/internal/state"
)

const (
	defaultPrecision = 1
	defaultThreshold = 1000
	rateThreshold    = 100
)

type options struct {
	precision int
	threshold float64
	tag       language.Tag
}

// Option tunes Compact and Rate.
type Option func(*options)

// WithPrecision sets the number of fraction digits kept before trailing
// zeros are trimmed.
func WithPrecision(p int) Option {
	return func(o *options) { o.precision = max(0, p) }
}

// WithThreshold sets the magnitude below which values print as plain
// integers regardless of style.
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

// WithLanguage sets the locale used by the full style's digit grouping.
func WithLanguage(tag language.Tag) Option {
	return func(o *options) { o.tag = tag }
}

func newOptions(threshold float64, opts []Option) options {
	o := options{precision: defaultPrecision, threshold: threshold, tag: language.English}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compact formats v for tight spaces such as grid cells. Values below the
// threshold (1000 by default) are truncated to an integer. Larger values use
// style: "scientific" gives 1.2e6, "compact" gives 1.2M, anything else
// (including "full") gives a digit-grouped integer.
func Compact(v float64, style string, opts ...Option) string {
	return compact(v, style, newOptions(defaultThreshold, opts))
}

// Rate formats a per-second rate with an explicit sign, e.g. "+1.5K/s".
// The plain-integer threshold for rates is 100.
func Rate(v float64, style string, opts ...Option) string {
	sign := "+"
	if v < 0 {
		sign = "-"
	}
	return sign + compact(math.Abs(v), style, newOptions(rateThreshold, opts)) + "/s"
}

func compact(v float64, style string, o options) string {
	if math.Abs(v) < o.threshold {
		return integer(v)
	}
	switch style {
	case state.FormatScientific:
		return scientific(v, o.precision)
	case state.FormatCompact:
		return siPrefix(v, o.precision)
	default:
		p := message.NewPrinter(o.tag)
		return p.Sprint(number.Decimal(math.Trunc(v), number.MaxFractionDigits(0)))
	}
}

func integer(v float64) string {
	t := math.Trunc(v)
	if t == 0 {
		t = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(t, 'f', 0, 64)
}

func scientific(v float64, precision int) string {
	if v == 0 {
		return "0"
	}
	exp := int(math.Floor(math.Log10(math.Abs(v))))
	mantissa := trimZeros(strconv.FormatFloat(v/math.Pow10(exp), 'f', precision, 64))
	// 9.96 rounds to 10.0 at one digit
	if m, err := strconv.ParseFloat(mantissa, 64); err == nil && math.Abs(m) >= 10 {
		exp++
		mantissa = trimZeros(strconv.FormatFloat(v/math.Pow10(exp), 'f', precision, 64))
	}
	return mantissa + "e" + strconv.Itoa(exp)
}

var prefixes = []struct {
	value  float64
	symbol string
}{
	{1e15, "P"},
	{1e12, "T"},
	{1e9, "G"},
	{1e6, "M"},
	{1e3, "K"},
}

func siPrefix(v float64, precision int) string {
	abs := math.Abs(v)
	for _, p := range prefixes {
		if abs >= p.value {
			return trimZeros(strconv.FormatFloat(v/p.value, 'f', precision, 64)) + p.symbol
		}
	}
	return integer(v)
}

// trimZeros drops trailing fraction zeros and a dangling decimal point.
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
