package scheduling

import (
	"context"

	"studiodesk_backend/internal/quotes/domain"
)

const (
	// DefaultMaxSuggestions is the number of alternatives returned when the
	// caller does not ask for a specific count.
	DefaultMaxSuggestions = 5

	// maxSuggestionsCap bounds operator-supplied counts; the offset sequence
	// only yields this many distinct slots anyway.
	maxSuggestionsCap = 10
)

// timeOffsets is the probe order in hours, nearest to the original time
// first, alternating before and after.
var timeOffsets = []int{1, -1, 2, -2, 3, -3, 4, -4, 5, -5, 6, -6}

// Suggestion is one verified alternative slot on the quote's original date.
type Suggestion struct {
	Time        domain.TimeOfDay `json:"time"`
	Display     string           `json:"display"`
	OffsetHours int              `json:"offset_hours"`
}

// RejectedSlot explains why one probed slot was discarded.
type RejectedSlot struct {
	Time   domain.TimeOfDay `json:"time"`
	Reason string           `json:"reason"`
}

// Diagnostics summarizes the probe loop so an operator UI can explain why no
// slots were found instead of failing silently. RejectedSample holds at most
// the first few rejections.
type Diagnostics struct {
	SlotsChecked      int            `json:"slots_checked"`
	SlotsWithinHours  int            `json:"slots_within_hours"`
	SlotsConflictFree int            `json:"slots_conflict_free"`
	AvailableFound    int            `json:"available_found"`
	RejectedCount     int            `json:"rejected_count"`
	RejectedSample    []RejectedSlot `json:"rejected_sample,omitempty"`
}

const rejectedSampleSize = 3

// AlternativesResult is the outcome of one alternative time search.
type AlternativesResult struct {
	Success     bool         `json:"success"`
	Error       string       `json:"error,omitempty"`
	Suggestions []Suggestion `json:"available_times"`
	Diagnostics Diagnostics  `json:"diagnostics"`
}

// AlternativeSearcher probes nearby times on a quote's date for slots that
// are both within studio hours and conflict-free.
type AlternativeSearcher struct {
	hours    WeeklyHours
	detector *ConflictDetector
}

func NewAlternativeSearcher(hours WeeklyHours, detector *ConflictDetector) *AlternativeSearcher {
	return &AlternativeSearcher{hours: hours, detector: detector}
}

// Search walks the offset sequence from the quote's original time, keeping
// minutes fixed and wrapping the hour modulo 24. Every returned suggestion
// has passed both the hours check and a fresh conflict check excluding the
// quote itself. The loop stops once maxSuggestions slots are found or all
// offsets are exhausted. A non-positive maxSuggestions falls back to the
// default; oversized requests are capped.
func (s *AlternativeSearcher) Search(ctx context.Context, q *domain.Quote, maxSuggestions int) (AlternativesResult, error) {
	if !q.HasSlot() {
		return AlternativesResult{
			Success: false,
			Error:   "quote has no event date and time",
		}, nil
	}

	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	if maxSuggestions > maxSuggestionsCap {
		maxSuggestions = maxSuggestionsCap
	}

	window, ok := s.hours.Window(q.EventDate.Weekday())
	if !ok {
		return AlternativesResult{
			Success: false,
			Error:   (&ClosedDayError{Day: q.EventDate.Weekday()}).Error(),
		}, nil
	}

	var (
		result   AlternativesResult
		rejected []RejectedSlot
		seen     = make(map[int]bool, len(timeOffsets))
	)

	for _, offset := range timeOffsets {
		if len(result.Suggestions) >= maxSuggestions {
			break
		}

		candidate := q.EventTime.AddHours(offset)
		if seen[candidate.Minutes()] {
			continue
		}
		seen[candidate.Minutes()] = true
		result.Diagnostics.SlotsChecked++

		if !window.Contains(candidate) {
			rejected = append(rejected, RejectedSlot{Time: candidate, Reason: "outside studio hours"})
			continue
		}
		result.Diagnostics.SlotsWithinHours++

		report, err := s.detector.Detect(ctx, *q.EventDate, candidate, q.ID)
		if err != nil {
			return AlternativesResult{}, err
		}
		if report.HasConflict {
			rejected = append(rejected, RejectedSlot{Time: candidate, Reason: "time slot occupied"})
			continue
		}
		result.Diagnostics.SlotsConflictFree++

		result.Suggestions = append(result.Suggestions, Suggestion{
			Time:        candidate,
			Display:     candidate.Display12h(),
			OffsetHours: offset,
		})
	}

	result.Diagnostics.AvailableFound = len(result.Suggestions)
	result.Diagnostics.RejectedCount = len(rejected)
	if len(rejected) > rejectedSampleSize {
		rejected = rejected[:rejectedSampleSize]
	}
	result.Diagnostics.RejectedSample = rejected

	result.Success = len(result.Suggestions) > 0
	if !result.Success {
		result.Error = "no alternative times available within studio hours"
	}
	return result, nil
}
