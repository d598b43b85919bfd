package series

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"PowerPull/internal/domain/models"
	"PowerPull/pkg/util"
)

// HourConvention tells how an hour-of-day index 1..24 maps to a clock hour.
type HourConvention int

const (
	// HourBeginning treats hour h as the interval starting at (h-1):00,
	// so hour 1 is 00:00 and hour 24 is 23:00.
	HourBeginning HourConvention = iota
	// HourEnding labels hour h as h:00 and wraps hour 24 to 00:00.
	HourEnding
)

// ParseHourConvention accepts "beginning" or "ending"; empty means beginning.
func ParseHourConvention(s string) (HourConvention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "beginning", "hour_beginning":
		return HourBeginning, nil
	case "ending", "hour_ending":
		return HourEnding, nil
	default:
		return HourBeginning, fmt.Errorf("unknown hour convention %q", s)
	}
}

var (
	ErrNoTimeSlot     = errors.New("record has no time of day")
	ErrSlotOutOfRange = errors.New("time slot out of range")
	ErrBadRangeText   = errors.New("unparsable time range text")
)

// Normalizer relabels raw records with canonical bucket keys. It never aggregates.
type Normalizer struct {
	convention HourConvention
}

func NewNormalizer(c HourConvention) *Normalizer {
	return &Normalizer{convention: c}
}

// Key returns the bucket key of rec at granularity g. Under the hour-ending
// convention hour 24 is midnight of the next day, so its daily key moves too.
func (n *Normalizer) Key(g models.Granularity, rec models.RawRecord) (models.TimeKey, error) {
	if g == models.GranularityDaily {
		if s, ok := rec.Slot.(models.HourSlot); ok && s.Hour == 24 && n.convention == HourEnding {
			return models.DayKey(util.AddDays(rec.Date, 1)), nil
		}
		return models.DayKey(rec.Date), nil
	}
	h, err := n.HourOfDay(rec.Slot)
	if err != nil {
		return models.TimeKey{}, err
	}
	return models.HourKey(h), nil
}

// HourOfDay maps a time slot onto a clock hour 0..23.
func (n *Normalizer) HourOfDay(slot models.TimeSlot) (int, error) {
	switch s := slot.(type) {
	case models.HourSlot:
		if s.Hour < 1 || s.Hour > 24 {
			return 0, fmt.Errorf("%w: hour %d", ErrSlotOutOfRange, s.Hour)
		}
		if n.convention == HourEnding {
			return s.Hour % 24, nil
		}
		return s.Hour - 1, nil
	case models.BlockSlot:
		if s.Block < 1 || s.Block > 96 {
			return 0, fmt.Errorf("%w: block %d", ErrSlotOutOfRange, s.Block)
		}
		return (s.Block - 1) / 4, nil
	case models.RangeSlot:
		start, err := RangeStart(s.Text)
		if err != nil {
			return 0, err
		}
		h, _ := strconv.Atoi(start[:2])
		return h % 24, nil
	case nil:
		return 0, ErrNoTimeSlot
	default:
		return 0, fmt.Errorf("unsupported time slot %T", slot)
	}
}

// rangeSeparators split the start and end of a range label.
var rangeSeparators = []string{" - ", "-", "–", "—", " to "}

// RangeStart returns the start of a range label such as "9:15 - 9:30",
// left-padded to HH:MM.
func RangeStart(text string) (string, error) {
	start := strings.TrimSpace(text)
	for _, sep := range rangeSeparators {
		if i := strings.Index(start, sep); i >= 0 {
			start = strings.TrimSpace(start[:i])
			break
		}
	}
	hh, mm, ok := strings.Cut(start, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrBadRangeText, text)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil || h < 0 || h > 24 {
		return "", fmt.Errorf("%w: %q", ErrBadRangeText, text)
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return "", fmt.Errorf("%w: %q", ErrBadRangeText, text)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}
