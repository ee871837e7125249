// Package dataset reads the personality survey CSV, fills its missing values
// and turns it into a numeric design matrix.
//
// The expected file has a header row naming the columns below, in any order:
//
//	Time_spent_Alone,Stage_fear,Social_event_attendance,Going_outside,
//	Drained_after_socializing,Friends_circle_size,Post_frequency,Personality
//
// Empty cells (and the literals NA and NaN) are missing values. Columns not
// listed here are ignored.
package dataset

import (
	"strings"
)

// Column names of the survey file.
const (
	ColTimeSpentAlone          = "Time_spent_Alone"
	ColStageFear               = "Stage_fear"
	ColSocialEventAttendance   = "Social_event_attendance"
	ColGoingOutside            = "Going_outside"
	ColDrainedAfterSocializing = "Drained_after_socializing"
	ColFriendsCircleSize       = "Friends_circle_size"
	ColPostFrequency           = "Post_frequency"
	ColPersonality             = "Personality"
)

// Flag and label literals.
const (
	FlagYes = "Yes"
	FlagNo  = "No"

	LabelExtrovert = "Extrovert"
	LabelIntrovert = "Introvert"
)

// Kind classifies a column for parsing and imputation.
type Kind int

const (
	KindNumeric Kind = iota
	KindFlag
	KindLabel
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindFlag:
		return "flag"
	case KindLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Column describes one required column.
type Column struct {
	Name string
	Kind Kind
}

// Schema lists the required columns in the canonical order used by Frame rows
// and by the design matrix.
var Schema = []Column{
	{ColTimeSpentAlone, KindNumeric},
	{ColStageFear, KindFlag},
	{ColSocialEventAttendance, KindNumeric},
	{ColGoingOutside, KindNumeric},
	{ColDrainedAfterSocializing, KindFlag},
	{ColFriendsCircleSize, KindNumeric},
	{ColPostFrequency, KindNumeric},
	{ColPersonality, KindLabel},
}

// ColumnNames returns the names of Schema, optionally restricted to kinds.
func ColumnNames(kinds ...Kind) []string {
	var names []string
	for _, c := range Schema {
		if len(kinds) == 0 || containsKind(kinds, c.Kind) {
			names = append(names, c.Name)
		}
	}
	return names
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Label is the target class. Extrovert is the positive class.
type Label int

const (
	Introvert Label = 0
	Extrovert Label = 1
)

func (l Label) String() string {
	if l == Extrovert {
		return LabelExtrovert
	}
	return LabelIntrovert
}

// Float returns the 0/1 encoding used by classifiers.
func (l Label) Float() float64 {
	return float64(l)
}

// ParseLabel parses Extrovert or Introvert.
func ParseLabel(s string) (Label, bool) {
	switch s {
	case LabelExtrovert:
		return Extrovert, true
	case LabelIntrovert:
		return Introvert, true
	}
	return Introvert, false
}

// ParseFlag parses Yes or No.
func ParseFlag(s string) (bool, bool) {
	switch s {
	case FlagYes:
		return true, true
	case FlagNo:
		return false, true
	}
	return false, false
}

// IsMissing reports whether a raw cell is a missing value.
func IsMissing(cell string) bool {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "", "NA", "NAN":
		return true
	}
	return false
}

// Record is one cleaned survey response.
type Record struct {
	TimeSpentAlone          float64
	StageFear               bool
	SocialEventAttendance   float64
	GoingOutside            float64
	DrainedAfterSocializing bool
	FriendsCircleSize       float64
	PostFrequency           float64
	Personality             Label
}
