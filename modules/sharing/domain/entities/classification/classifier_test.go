package classification_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/classification"
	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
)

func rule(entityType, pattern string, level access.SensitivityLevel, priority int, active bool) *classification.Rule {
	return &classification.Rule{
		EntityType:       entityType,
		FieldPattern:     pattern,
		SensitivityLevel: level,
		RuleName:         pattern,
		Priority:         priority,
		IsActive:         active,
	}
}

func TestClassify_HighestPriorityRuleWins(t *testing.T) {
	rules := []*classification.Rule{
		rule("purchase_order", "^unit_price$", access.LevelRestricted, 100, true),
		rule("purchase_order", "price", access.LevelCommercial, 10, true),
	}

	level := classification.Classify("purchase_order", "unit_price", rules)
	require.Equal(t, access.LevelRestricted, level)
}

func TestClassify_RuleMatchIsCaseInsensitive(t *testing.T) {
	rules := []*classification.Rule{
		rule("product", "ORIGIN", access.LevelConfidential, 1, true),
	}

	require.Equal(t, access.LevelConfidential, classification.Classify("product", "origin_country", rules))
}

func TestClassify_InactiveRuleDoesNotSuppressActiveRule(t *testing.T) {
	rules := []*classification.Rule{
		rule("purchase_order", "price", access.LevelRestricted, 100, false),
		rule("purchase_order", "price", access.LevelCommercial, 10, true),
	}

	require.Equal(t, access.LevelCommercial, classification.Classify("purchase_order", "unit_price", rules))
}

func TestClassify_RuleForOtherEntityTypeIsIgnored(t *testing.T) {
	rules := []*classification.Rule{
		rule("product", "price", access.LevelRestricted, 100, true),
	}

	// Falls through to the keyword heuristic.
	require.Equal(t, access.LevelCommercial, classification.Classify("purchase_order", "unit_price", rules))
}

func TestClassify_KeywordHeuristic(t *testing.T) {
	cases := []struct {
		field string
		want  access.SensitivityLevel
	}{
		{"unit_price", access.LevelCommercial},
		{"total_cost", access.LevelCommercial},
		{"profit_margin", access.LevelCommercial},
		{"gps_coordinates", access.LevelConfidential},
		{"warehouse_location", access.LevelConfidential},
		{"delivery_address", access.LevelConfidential},
		{"quantity_ordered", access.LevelOperational},
		{"delivery_date", access.LevelOperational},
		{"order_status", access.LevelOperational},
		{"po_number", access.LevelPublic},
		{"description", access.LevelPublic},
	}

	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			require.Equal(t, tc.want, classification.Classify("purchase_order", tc.field, nil))
		})
	}
}

func TestClassify_UnevaluableRuleFailsClosed(t *testing.T) {
	rules := []*classification.Rule{
		rule("purchase_order", "(unclosed", access.LevelPublic, 100, true),
	}

	require.Equal(t, access.LevelConfidential, classification.Classify("purchase_order", "po_number", rules))
}

func TestClassify_InvalidStoredLevelFailsClosed(t *testing.T) {
	rules := []*classification.Rule{
		rule("purchase_order", "po_number", access.SensitivityLevel(42), 100, true),
	}

	require.Equal(t, access.LevelConfidential, classification.Classify("purchase_order", "po_number", rules))
}
