package access

import (
	"fmt"
	"strings"
)

// SensitivityLevel is the ordered classification of how exposable a field or
// dataset is outside its owning company. Higher values are more restricted.
type SensitivityLevel int

const (
	LevelPublic SensitivityLevel = iota
	LevelOperational
	LevelCommercial
	LevelConfidential
	LevelRestricted
)

func (l SensitivityLevel) String() string {
	switch l {
	case LevelPublic:
		return "PUBLIC"
	case LevelOperational:
		return "OPERATIONAL"
	case LevelCommercial:
		return "COMMERCIAL"
	case LevelConfidential:
		return "CONFIDENTIAL"
	case LevelRestricted:
		return "RESTRICTED"
	default:
		return fmt.Sprintf("SensitivityLevel(%d)", int(l))
	}
}

func (l SensitivityLevel) Valid() bool {
	return l >= LevelPublic && l <= LevelRestricted
}

// Covers reports whether a grant at level l covers a request at level
// requested. A grant implicitly covers every level at or below its own.
func (l SensitivityLevel) Covers(requested SensitivityLevel) bool {
	return l >= requested
}

// FilteredPlaceholder is the token substituted for a field value the caller
// is not allowed to see, e.g. "[COMMERCIAL_DATA_FILTERED]".
func (l SensitivityLevel) FilteredPlaceholder() string {
	return "[" + l.String() + "_DATA_FILTERED]"
}

func ParseSensitivityLevel(s string) (SensitivityLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PUBLIC":
		return LevelPublic, nil
	case "OPERATIONAL":
		return LevelOperational, nil
	case "COMMERCIAL":
		return LevelCommercial, nil
	case "CONFIDENTIAL":
		return LevelConfidential, nil
	case "RESTRICTED":
		return LevelRestricted, nil
	default:
		return LevelPublic, fmt.Errorf("unknown sensitivity level %q", s)
	}
}
