package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is the canonical 5-step reading complexity used by every projection.
type Level int

const (
	LevelFoundation Level = 1
	LevelDeveloping Level = 2
	LevelStandard   Level = 3
	LevelAdvanced   Level = 4
	LevelExpert     Level = 5

	MinLevel     = LevelFoundation
	MaxLevel     = LevelExpert
	DefaultLevel = LevelStandard
)

var levelLabels = map[Level]string{
	LevelFoundation: "Foundation",
	LevelDeveloping: "Developing",
	LevelStandard:   "Standard",
	LevelAdvanced:   "Advanced",
	LevelExpert:     "Expert",
}

// Valid reports whether l is within 1..5.
func (l Level) Valid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// OrDefault returns l when valid, otherwise DefaultLevel.
func (l Level) OrDefault() Level {
	if l.Valid() {
		return l
	}
	return DefaultLevel
}

// String returns the display label.
func (l Level) String() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Encode renders the persisted form "1".."5".
func (l Level) Encode() string {
	return strconv.Itoa(int(l))
}

// ParseLevel decodes a persisted level. Anything other than a base-10
// integer in 1..5 is rejected.
func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, NewValidationError("level", "not an integer", s)
	}
	l := Level(n)
	if !l.Valid() {
		return 0, NewValidationError("level", "must be between 1 and 5", n)
	}
	return l, nil
}

// ModuleLevel is the 6-step scale carried by authored educational modules.
type ModuleLevel int

const (
	ModuleFoundation   ModuleLevel = 1
	ModuleHighSchool   ModuleLevel = 2
	ModuleCollege      ModuleLevel = 3
	ModuleGraduate     ModuleLevel = 4
	ModuleProfessional ModuleLevel = 5
	ModuleClinical     ModuleLevel = 6
)

// Valid reports whether m is within 1..6.
func (m ModuleLevel) Valid() bool {
	return m >= ModuleFoundation && m <= ModuleClinical
}

// ToModuleLevel maps the UI scale onto authored module tiers.
// Expert readers get the Clinical tier; Professional is never selected
// from the UI side.
func (l Level) ToModuleLevel() ModuleLevel {
	switch l.OrDefault() {
	case LevelFoundation:
		return ModuleFoundation
	case LevelDeveloping:
		return ModuleHighSchool
	case LevelStandard:
		return ModuleCollege
	case LevelAdvanced:
		return ModuleGraduate
	default:
		return ModuleClinical
	}
}

// ToLevel maps an authored module tier back onto the UI scale.
// Professional and Graduate both land on Advanced.
func (m ModuleLevel) ToLevel() Level {
	switch m {
	case ModuleFoundation:
		return LevelFoundation
	case ModuleHighSchool:
		return LevelDeveloping
	case ModuleCollege:
		return LevelStandard
	case ModuleGraduate, ModuleProfessional:
		return LevelAdvanced
	case ModuleClinical:
		return LevelExpert
	default:
		return DefaultLevel
	}
}
