package registration

import (
	"fmt"
	"time"

	"familyconnect/internal/domain"
)

// Result is the outcome of one validation run. It is built up in full before
// anything is written back to the registration, so a half-evaluated record
// never leaks derived fields.
type Result struct {
	Valid   bool
	RegType domain.RegType

	// PregWeek is set for prebirth profiles only.
	PregWeek int

	// Violations holds per-field failures (field names plus the
	// last_period_date out-of-range token). Recorded as a list.
	Violations []string

	// StructuralReason holds a record-level rejection (bad mother id,
	// receiver-id inconsistency, no matching profile). Recorded as a plain
	// string, a deliberately different shape from Violations.
	StructuralReason string
}

// Apply writes the finalized result onto the registration's data workspace.
// Failures leave validated false and record the reason under invalid_fields;
// the two failure shapes (string vs list) are preserved as-is.
func (r Result) Apply(reg *domain.Registration) {
	if reg.Data == nil {
		reg.Data = domain.Data{}
	}
	if !r.Valid {
		if r.StructuralReason != "" {
			reg.Data[domain.KeyInvalidFields] = r.StructuralReason
		} else {
			reg.Data[domain.KeyInvalidFields] = r.Violations
		}
		return
	}
	reg.Data[domain.KeyRegType] = string(r.RegType)
	if r.RegType == domain.RegTypeHWPrebirth || r.RegType == domain.RegTypePublicPrebirth {
		reg.Data[domain.KeyPregWeek] = r.PregWeek
	}
	reg.Validated = true
}

// Engine is the registration validation state machine. It selects the
// field-requirement profile for the (stage, authority) pair, enforces
// receiver-id consistency, and runs the per-field rules. The clock is
// injected so pregnancy-week computation is deterministic under test.
type Engine struct {
	languages []string
	now       func() time.Time
}

func NewEngine(languages []string, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{languages: languages, now: now}
}

// Validate decides whether the registration is well-formed for its stage and
// the submitting source's authority. It never mutates the registration;
// callers apply the result once the decision is final.
func (e *Engine) Validate(reg *domain.Registration, authority domain.Authority) Result {
	if !IsValidIdentifier(reg.MotherID) {
		return Result{StructuralReason: "Invalid UUID mother_id"}
	}

	data := reg.Data
	if data.Has(domain.KeyMsgReceiver) {
		if reason := checkReceiverConsistency(reg.MotherID, data); reason != "" {
			return Result{StructuralReason: reason}
		}
	}

	regType, profile := selectProfile(reg.Stage, authority, data)
	if regType == "" {
		return Result{StructuralReason: "Invalid combination of fields"}
	}

	today := e.now()
	if violations := CheckFieldValues(profile, data, e.languages, today); len(violations) > 0 {
		return Result{Violations: violations}
	}

	result := Result{Valid: true, RegType: regType}
	if regType == domain.RegTypeHWPrebirth || regType == domain.RegTypePublicPrebirth {
		// The profile check already validated last_period_date, so this
		// cannot fail here.
		weeks, _ := PregnancyWeeks(today, data.String(domain.KeyLastPeriodDate))
		result.PregWeek = weeks
	}
	return result
}

// checkReceiverConsistency enforces the mutual-consistency rules between
// msg_receiver, receiver_id, hoh_id and mother_id before any profile is
// matched. A non-empty return is the rejection reason.
func checkReceiverConsistency(motherID string, data domain.Data) string {
	receiver := data.String(domain.KeyMsgReceiver)
	receiverID := data.String(domain.KeyReceiverID)
	hohID := data.String(domain.KeyHoHID)

	switch receiver {
	case ReceiverHeadOfHousehold:
		if hohID != receiverID {
			return fmt.Sprintf("msg_receiver is %s but hoh_id does not match receiver_id", receiver)
		}
	case ReceiverMotherToBe:
		if motherID != receiverID {
			return fmt.Sprintf("msg_receiver is %s but mother_id does not match receiver_id", receiver)
		}
	case ReceiverFamilyMember, ReceiverTrustedFriend:
		if receiverID == hohID || receiverID == motherID {
			return fmt.Sprintf("msg_receiver is %s but receiver_id matches mother_id or hoh_id", receiver)
		}
	}
	return ""
}

// selectProfile picks the first matching field-requirement profile, in
// priority order. It returns an empty RegType when no profile matches.
func selectProfile(stage domain.Stage, authority domain.Authority, data domain.Data) (domain.RegType, []string) {
	switch {
	case stage == domain.StagePrebirth && authority.HealthWorker() && hasFields(data, hwPrebirthProfile):
		return domain.RegTypeHWPrebirth, hwPrebirthProfile
	case stage == domain.StagePrebirth && authority.Public() && hasFields(data, publicPrebirthProfile):
		return domain.RegTypePublicPrebirth, publicPrebirthProfile
	case stage == domain.StageLoss && authority.Public() && hasFields(data, publicLossProfile):
		return domain.RegTypePublicLoss, publicLossProfile
	}
	return "", nil
}
