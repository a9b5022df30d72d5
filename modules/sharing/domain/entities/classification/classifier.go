package classification

import (
	"regexp"
	"sort"
	"strings"

	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
)

// keywordLevels is the heuristic fallback applied when no rule matches.
// Entries are checked in order; the first substring hit wins.
var keywordLevels = []struct {
	keywords []string
	level    access.SensitivityLevel
}{
	{[]string{"price", "cost", "margin", "amount"}, access.LevelCommercial},
	{[]string{"coordinate", "location", "address"}, access.LevelConfidential},
	{[]string{"quantity", "date", "status", "unit"}, access.LevelOperational},
}

// Classify maps a field of an entity type to its sensitivity level. The
// highest-priority matching active rule wins; absent any match the keyword
// heuristic applies. Classify never fails: a rule that cannot be evaluated is
// classified CONFIDENTIAL rather than skipped open.
func Classify(entityType, fieldName string, rules []*Rule) access.SensitivityLevel {
	ordered := make([]*Rule, 0, len(rules))
	for _, rule := range rules {
		if rule == nil || !rule.IsActive || rule.EntityType != entityType {
			continue
		}
		ordered = append(ordered, rule)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	for _, rule := range ordered {
		re, err := regexp.Compile("(?i)" + rule.FieldPattern)
		if err != nil {
			// A rule we cannot evaluate means we cannot prove the field is
			// safe to expose. Fail closed.
			return access.LevelConfidential
		}
		if re.MatchString(fieldName) {
			if !rule.SensitivityLevel.Valid() {
				return access.LevelConfidential
			}
			return rule.SensitivityLevel
		}
	}

	return classifyByKeyword(fieldName)
}

func classifyByKeyword(fieldName string) access.SensitivityLevel {
	lowered := strings.ToLower(fieldName)
	for _, entry := range keywordLevels {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.level
			}
		}
	}
	return access.LevelPublic
}
