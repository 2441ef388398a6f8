package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/synaptica-ai/dependability/pkg/common/logger"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

const (
	heartRateLabel = "Heart Rate:"
	spo2Label      = "SpO2"
	positionLabel  = "Most Common Sleep Position:"
	notAvailable   = "Not Available"
)

// space matches Unicode whitespace as well as ASCII; PDF text often carries
// no-break spaces between table columns.
const space = `[\s\p{Z}\x{85}]+`

var (
	temperatureRegex = regexp.MustCompile(`(\d+\.\d+)(?:°C|℃)`)
	integerRegex     = regexp.MustCompile(`\d+`)
	leftShareRegex   = regexp.MustCompile(`Left` + space + `\d+` + space + `(\d+)%`)
	rightShareRegex  = regexp.MustCompile(`Right` + space + `\d+` + space + `(\d+)%`)
	supineShareRegex = regexp.MustCompile(`Supine Position` + space + `\d+` + space + `(\d+)%`)
)

type extractStep struct {
	field string
	run   func(text string, b *recordBuilder) error
}

var steps = []extractStep{
	{FieldTemperature, extractTemperature},
	{FieldHeartRate, labelledInteger(heartRateLabel, FieldHeartRate)},
	{FieldSpO2, labelledInteger(spo2Label, FieldSpO2)},
	{FieldLeftPct, postureShare(leftShareRegex, FieldLeftPct)},
	{FieldRightPct, postureShare(rightShareRegex, FieldRightPct)},
	{FieldSupinePct, postureShare(supineShareRegex, FieldSupinePct)},
	{FieldCurrentPosture, extractCurrentPosture},
}

// Parse turns report text into a vitals record. It never fails; fields that
// cannot be read keep their defaults.
func Parse(text string) vitals.Record {
	return Extract(text).Record
}

// Extract parses report text and reports which fields were read and which
// fell back to defaults.
func Extract(text string) (result Extraction) {
	b := newRecordBuilder()

	defer func() {
		if r := recover(); r != nil {
			err := &DocumentError{Cause: r}
			logger.Log.WithError(err).Warn("report extraction error")
			b.warn(err)
			result = b.build()
		}
	}()

	for _, step := range steps {
		if err := step.run(text, b); err != nil {
			fieldErr := &FieldError{Field: step.field, Err: err}
			logger.WithField("field", step.field).WithError(err).Warn("report field extraction failed")
			b.warn(fieldErr)
		}
	}

	return b.build()
}

func extractTemperature(text string, b *recordBuilder) error {
	match := temperatureRegex.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	raw, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return err
	}
	b.set(FieldTemperature, vitals.NormalizeTemperature(raw))
	return nil
}

// labelledInteger reads the first integer on the line following label.
// Placeholder values ("--", "Not Available", blank) leave the default.
func labelledInteger(label, field string) func(string, *recordBuilder) error {
	return func(text string, b *recordBuilder) error {
		line, ok := lineAfter(text, label)
		if !ok {
			return nil
		}
		if line == "" || line == "--" || strings.Contains(line, notAvailable) {
			return nil
		}
		digits := integerRegex.FindString(line)
		if digits == "" {
			return fmt.Errorf("%q: %w", line, errNoNumber)
		}
		value, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return err
		}
		b.set(field, value)
		return nil
	}
}

func postureShare(re *regexp.Regexp, field string) func(string, *recordBuilder) error {
	return func(text string, b *recordBuilder) error {
		match := re.FindStringSubmatch(text)
		if match == nil {
			return nil
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return err
		}
		b.set(field, value)
		return nil
	}
}

// extractCurrentPosture checks keywords in vitals.Postures order, so Left
// wins over Right and Right over Supine.
func extractCurrentPosture(text string, b *recordBuilder) error {
	line, ok := lineAfter(text, positionLabel)
	if !ok {
		return nil
	}
	for _, p := range vitals.Postures {
		if strings.Contains(line, string(p)) {
			b.setPosture(p)
			return nil
		}
	}
	if line == "" {
		return nil
	}
	return fmt.Errorf("%q: %w", line, errNoPosture)
}

// lineAfter returns the trimmed remainder of the line that follows the first
// occurrence of label.
func lineAfter(text, label string) (string, bool) {
	idx := strings.Index(text, label)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(label):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest), true
}
