// Package registration holds the intake validation engine: per-field rules,
// the pregnancy-week calculator, and the state machine that decides whether a
// submitted registration is well-formed for its stage and source authority.
package registration

import (
	"time"

	"familyconnect/internal/domain"
)

// Field-requirement profiles, built as unions the same way the requirement
// sets are defined in program policy.
var (
	generalFields     = []string{domain.KeyHoHID, domain.KeyReceiverID, domain.KeyLanguage, domain.KeyMsgType}
	prebirthFields    = []string{domain.KeyLastPeriodDate, domain.KeyMsgReceiver}
	lossFields        = []string{domain.KeyLossReason}
	healthWorkerExtra = []string{domain.KeyOperatorID, domain.KeyHoHName, domain.KeyHoHSurname, domain.KeyMamaName, domain.KeyMamaSurname}

	hwPrebirthProfile     = union(generalFields, prebirthFields, healthWorkerExtra)
	publicPrebirthProfile = union(generalFields, prebirthFields)
	publicLossProfile     = union(generalFields, lossFields)
)

func union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, f := range set {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// hasFields reports whether data's key set is a superset of the profile.
// Extra keys are ignored.
func hasFields(data domain.Data, profile []string) bool {
	for _, f := range profile {
		if !data.Has(f) {
			return false
		}
	}
	return true
}

// Valid message receiver roles.
const (
	ReceiverHeadOfHousehold = "head_of_household"
	ReceiverMotherToBe      = "mother_to_be"
	ReceiverFamilyMember    = "family_member"
	ReceiverTrustedFriend   = "trusted_friend"
)

// MsgTypeText is the only supported outbound channel.
const MsgTypeText = "text"

var lossReasons = map[string]struct{}{
	"miscarriage": {},
	"stillborn":   {},
	"baby_died":   {},
}

var receiverRoles = map[string]struct{}{
	ReceiverHeadOfHousehold: {},
	ReceiverMotherToBe:      {},
	ReceiverFamilyMember:    {},
	ReceiverTrustedFriend:   {},
}

// IsValidDate reports whether v is an 8-digit YYYYMMDD string naming a real
// calendar date.
func IsValidDate(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := ParseDate(s)
	return err == nil
}

// ParseDate parses an 8-digit YYYYMMDD date, rejecting impossible day/month
// combinations.
func ParseDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, &time.ParseError{Layout: "20060102", Value: s, Message: ": must be 8 digits"}
	}
	return time.Parse("20060102", s)
}

// IsValidIdentifier reports whether v looks like a version-4 UUID: a
// 36-character string with '4' at position 15 and a variant marker at
// position 20. This is a positional check, not a full UUID parse, and it
// accepts syntactically-fake identifiers on purpose.
func IsValidIdentifier(v any) bool {
	s, ok := v.(string)
	if !ok || len(s) != 36 {
		return false
	}
	if s[14] != '4' {
		return false
	}
	switch s[19] {
	case 'a', 'b', '8', '9':
		return true
	}
	return false
}

// IsValidLanguage reports whether v is one of the configured locale codes.
func IsValidLanguage(v any, languages []string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, l := range languages {
		if s == l {
			return true
		}
	}
	return false
}

// IsValidMsgType reports whether v is the supported channel tag.
func IsValidMsgType(v any) bool {
	s, ok := v.(string)
	return ok && s == MsgTypeText
}

// IsValidMsgReceiver reports whether v is a known recipient role.
func IsValidMsgReceiver(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, ok = receiverRoles[s]
	return ok
}

// IsValidLossReason reports whether v is a known loss reason.
func IsValidLossReason(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, ok = lossReasons[s]
	return ok
}

// IsValidName reports whether v is a text value. No character-class rule is
// applied; names are accepted as-is.
func IsValidName(v any) bool {
	_, ok := v.(string)
	return ok
}

// outOfRangeToken is recorded instead of the field name when the computed
// pregnancy week falls outside the acceptable window.
const outOfRangeToken = "last_period_date out of range"

// Gestation window accepted at registration time. The calculator clamps any
// result below 2 up to 2, so in practice only the upper bound can reject.
const (
	minPregWeeks = 2
	maxPregWeeks = 42
)

// CheckFieldValues runs the per-field rules over the profile's field list and
// returns the names of violating fields. last_period_date is special: a
// parseable date whose computed week is out of range contributes the
// out-of-range token rather than the field name. An empty return means every
// field passed.
func CheckFieldValues(fields []string, data domain.Data, languages []string, today time.Time) []string {
	var violations []string
	for _, field := range fields {
		value := data[field]
		switch field {
		case domain.KeyLastPeriodDate:
			if !IsValidDate(value) {
				violations = append(violations, field)
				continue
			}
			weeks, err := PregnancyWeeks(today, value.(string))
			if err != nil || weeks < minPregWeeks || weeks > maxPregWeeks {
				violations = append(violations, outOfRangeToken)
			}
		case domain.KeyHoHID, domain.KeyReceiverID, domain.KeyOperatorID:
			if !IsValidIdentifier(value) {
				violations = append(violations, field)
			}
		case domain.KeyLanguage:
			if !IsValidLanguage(value, languages) {
				violations = append(violations, field)
			}
		case domain.KeyMsgType:
			if !IsValidMsgType(value) {
				violations = append(violations, field)
			}
		case domain.KeyMsgReceiver:
			if !IsValidMsgReceiver(value) {
				violations = append(violations, field)
			}
		case domain.KeyLossReason:
			if !IsValidLossReason(value) {
				violations = append(violations, field)
			}
		case domain.KeyHoHName, domain.KeyHoHSurname, domain.KeyMamaName, domain.KeyMamaSurname:
			if !IsValidName(value) {
				violations = append(violations, field)
			}
		}
	}
	return violations
}
