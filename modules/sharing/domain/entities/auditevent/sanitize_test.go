package auditevent_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
)

func TestSanitize_RedactsDenylistedKeys(t *testing.T) {
	input := map[string]any{
		"email":           "buyer@example.com",
		"password":        "hunter2",
		"hashed_password": "argon2$...",
		"api_key":         "sk-123",
		"refresh_token":   "tok",
		"credit_card":     "4111111111111111",
		"ssn":             "000-00-0000",
		"company_tax_id":  "TX-99",
	}

	out := auditevent.Sanitize(input)

	require.Equal(t, "buyer@example.com", out["email"])
	for _, key := range []string{"password", "hashed_password", "api_key", "refresh_token", "credit_card", "ssn", "company_tax_id"} {
		require.Equal(t, auditevent.Redacted, out[key], key)
	}
}

func TestSanitize_IsCaseInsensitive(t *testing.T) {
	out := auditevent.Sanitize(map[string]any{"API_Key": "sk-1", "Password": "x"})
	require.Equal(t, auditevent.Redacted, out["API_Key"])
	require.Equal(t, auditevent.Redacted, out["Password"])
}

func TestSanitize_RecursesThroughNestedStructures(t *testing.T) {
	input := map[string]any{
		"supplier": map[string]any{
			"name": "Acme",
			"credentials": map[string]any{
				"secret_key": "s3cr3t",
			},
		},
		"contacts": []any{
			map[string]any{"email": "a@b.c", "password": "pw"},
			"plain string",
		},
	}

	out := auditevent.Sanitize(input)

	supplier := out["supplier"].(map[string]any)
	require.Equal(t, "Acme", supplier["name"])
	require.Equal(t, auditevent.Redacted, supplier["credentials"].(map[string]any)["secret_key"])

	contacts := out["contacts"].([]any)
	first := contacts[0].(map[string]any)
	require.Equal(t, "a@b.c", first["email"])
	require.Equal(t, auditevent.Redacted, first["password"])
	require.Equal(t, "plain string", contacts[1])
}

func TestSanitize_StringifiesUnserializableLeaves(t *testing.T) {
	out := auditevent.Sanitize(map[string]any{
		"callback": func() {},
		"updates":  make(chan int),
		"status":   "draft",
		"nested":   map[string]any{"signal": make(chan int)},
	})

	require.IsType(t, "", out["callback"])
	require.IsType(t, "", out["updates"])
	require.Equal(t, "draft", out["status"])
	require.IsType(t, "", out["nested"].(map[string]any)["signal"])

	// The sanitized copy must round-trip through JSON.
	_, err := json.Marshal(out)
	require.NoError(t, err)
}

func TestSanitize_DoesNotMutateInput(t *testing.T) {
	input := map[string]any{
		"password": "pw",
		"nested":   map[string]any{"token": "tok"},
	}

	_ = auditevent.Sanitize(input)

	require.Equal(t, "pw", input["password"])
	require.Equal(t, "tok", input["nested"].(map[string]any)["token"])
}

func TestSanitize_NilInput(t *testing.T) {
	require.Nil(t, auditevent.Sanitize(nil))
}

func TestChangedFields_DetectsValueAndPresenceChanges(t *testing.T) {
	oldValues := map[string]any{
		"status":     "draft",
		"quantity":   10,
		"removed":    "gone",
		"untouched":  "same",
		"unit_price": 800.0,
	}
	newValues := map[string]any{
		"status":     "confirmed",
		"quantity":   10,
		"added":      "new",
		"untouched":  "same",
		"unit_price": 850.0,
	}

	fields := auditevent.ChangedFields(oldValues, newValues)
	require.Equal(t, []string{"added", "removed", "status", "unit_price"}, fields)
}

func TestChangedFields_NestedChangeReportsTopLevelKey(t *testing.T) {
	oldValues := map[string]any{"delivery": map[string]any{"city": "Rotterdam"}}
	newValues := map[string]any{"delivery": map[string]any{"city": "Hamburg"}}

	require.Equal(t, []string{"delivery"}, auditevent.ChangedFields(oldValues, newValues))
}

func TestChangedFields_NilSides(t *testing.T) {
	require.Nil(t, auditevent.ChangedFields(nil, nil))
	require.Equal(t, []string{"a"}, auditevent.ChangedFields(nil, map[string]any{"a": 1}))
	require.Equal(t, []string{"a"}, auditevent.ChangedFields(map[string]any{"a": 1}, nil))
}
