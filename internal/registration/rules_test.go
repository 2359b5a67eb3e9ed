package registration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"familyconnect/internal/domain"
)

var testLanguages = []string{"eng_UG", "cgg_UG", "xog_UG", "lug_UG"}

func TestIsValidDate(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"valid date", "20150202", true},
		{"leap day on leap year", "20160229", true},
		{"leap day on non-leap year", "19830229", false},
		{"month out of range", "20151302", false},
		{"day out of range", "20150232", false},
		{"too short", "2015022", false},
		{"too long", "201502020", false},
		{"dashes", "2015-02-02", false},
		{"not a string", 20150202, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidDate(tt.value))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"canonical v4 uuid", "2f3e4d5c-1111-4aaa-8bbb-000000000001", true},
		{"variant a", "2f3e4d5c-1111-4aaa-abbb-000000000001", true},
		{"variant 9", "2f3e4d5c-1111-4aaa-9bbb-000000000001", true},
		// Only length and two positions are checked; everything else is
		// accepted even when it is not hex.
		{"fake but positionally correct", "zzzzzzzz-zzzz-4zzz-8zzz-zzzzzzzzzzzz", true},
		{"wrong version position", "2f3e4d5c-1111-5aaa-8bbb-000000000001", false},
		{"wrong variant position", "2f3e4d5c-1111-4aaa-cbbb-000000000001", false},
		{"too short", "2f3e4d5c-1111-4aaa-8bbb-0000000001", false},
		{"not a string", 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIdentifier(tt.value))
		})
	}
}

func TestFieldRules(t *testing.T) {
	assert.True(t, IsValidLanguage("eng_UG", testLanguages))
	assert.False(t, IsValidLanguage("eng_KE", testLanguages))
	assert.False(t, IsValidLanguage(7, testLanguages))

	assert.True(t, IsValidMsgType("text"))
	assert.False(t, IsValidMsgType("voice"))

	assert.True(t, IsValidMsgReceiver("head_of_household"))
	assert.True(t, IsValidMsgReceiver("trusted_friend"))
	assert.False(t, IsValidMsgReceiver("neighbour"))

	assert.True(t, IsValidLossReason("miscarriage"))
	assert.False(t, IsValidLossReason("other"))

	assert.True(t, IsValidName("Sharon"))
	assert.False(t, IsValidName(nil))
}

func TestCheckFieldValues(t *testing.T) {
	today := time.Date(2015, 8, 17, 0, 0, 0, 0, time.UTC)

	t.Run("all fields pass", func(t *testing.T) {
		data := domain.Data{
			domain.KeyHoHID:          "2f3e4d5c-1111-4aaa-8bbb-000000000002",
			domain.KeyReceiverID:     "2f3e4d5c-1111-4aaa-8bbb-000000000002",
			domain.KeyLanguage:       "eng_UG",
			domain.KeyMsgType:        "text",
			domain.KeyLastPeriodDate: "20150202",
			domain.KeyMsgReceiver:    "head_of_household",
		}
		violations := CheckFieldValues(publicPrebirthProfile, data, testLanguages, today)
		assert.Empty(t, violations)
	})

	t.Run("violating fields reported by name", func(t *testing.T) {
		data := domain.Data{
			domain.KeyHoHID:          "nope",
			domain.KeyReceiverID:     "2f3e4d5c-1111-4aaa-8bbb-000000000002",
			domain.KeyLanguage:       "eng_KE",
			domain.KeyMsgType:        "text",
			domain.KeyLastPeriodDate: "20150202",
			domain.KeyMsgReceiver:    "head_of_household",
		}
		violations := CheckFieldValues(publicPrebirthProfile, data, testLanguages, today)
		assert.ElementsMatch(t, []string{domain.KeyHoHID, domain.KeyLanguage}, violations)
	})

	t.Run("unparseable period date reports the field", func(t *testing.T) {
		data := domain.Data{domain.KeyLastPeriodDate: "19830229"}
		violations := CheckFieldValues([]string{domain.KeyLastPeriodDate}, data, testLanguages, today)
		assert.Equal(t, []string{domain.KeyLastPeriodDate}, violations)
	})

	t.Run("out of range period date reports the token", func(t *testing.T) {
		// 43 elapsed weeks, one past the registration window.
		data := domain.Data{domain.KeyLastPeriodDate: "20141020"}
		violations := CheckFieldValues([]string{domain.KeyLastPeriodDate}, data, testLanguages, today)
		assert.Equal(t, []string{"last_period_date out of range"}, violations)
	})
}

func TestProfilesAreUnions(t *testing.T) {
	// The health-worker profile is the public one plus the operator-collected
	// fields; no field appears twice.
	assert.Subset(t, hwPrebirthProfile, publicPrebirthProfile)
	assert.Contains(t, hwPrebirthProfile, domain.KeyOperatorID)
	assert.NotContains(t, publicPrebirthProfile, domain.KeyOperatorID)
	assert.Contains(t, publicLossProfile, domain.KeyLossReason)
	assert.NotContains(t, publicLossProfile, domain.KeyLastPeriodDate)

	seen := map[string]int{}
	for _, f := range hwPrebirthProfile {
		seen[f]++
	}
	for f, n := range seen {
		assert.Equal(t, 1, n, "field %s duplicated", f)
	}
}
