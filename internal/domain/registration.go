package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage is the program phase a registration belongs to.
type Stage string

const (
	StagePrebirth  Stage = "prebirth"
	StagePostbirth Stage = "postbirth"
	StageLoss      Stage = "loss"
)

// Valid reports whether the stage is one of the known program phases.
func (s Stage) Valid() bool {
	switch s {
	case StagePrebirth, StagePostbirth, StageLoss:
		return true
	}
	return false
}

// Authority is the trust level of a submission source. Health-worker
// authorities require the operator-collected detail set; patient and advisor
// submissions come in over the public line.
type Authority string

const (
	AuthorityPatient   Authority = "patient"
	AuthorityAdvisor   Authority = "advisor"
	AuthorityHWLimited Authority = "hw_limited"
	AuthorityHWFull    Authority = "hw_full"
)

// HealthWorker reports whether the authority is an operator-collected one.
func (a Authority) HealthWorker() bool {
	return a == AuthorityHWLimited || a == AuthorityHWFull
}

// Public reports whether the authority is a public/self-service one.
func (a Authority) Public() bool {
	return a == AuthorityPatient || a == AuthorityAdvisor
}

func (a Authority) Valid() bool {
	return a.HealthWorker() || a.Public()
}

// Source identifies the caller a registration or change originated from.
type Source struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Authority Authority `json:"authority"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Data is the open payload submitted with a registration or change. It doubles
// as the workspace for derived fields (reg_type, preg_week, baby_age,
// invalid_fields) once validation has run.
type Data map[string]any

// String returns the value for key if it is a string, or "".
func (d Data) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// Has reports whether key is present, regardless of value.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Int returns the value for key coerced to int. JSON decoding hands numbers
// back as float64, so both are accepted.
func (d Data) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Well-known data keys.
const (
	KeyHoHID          = "hoh_id"
	KeyReceiverID     = "receiver_id"
	KeyLanguage       = "language"
	KeyMsgType        = "msg_type"
	KeyMsgReceiver    = "msg_receiver"
	KeyLastPeriodDate = "last_period_date"
	KeyLossReason     = "loss_reason"
	KeyOperatorID     = "operator_id"
	KeyHoHName        = "hoh_name"
	KeyHoHSurname     = "hoh_surname"
	KeyMamaName       = "mama_name"
	KeyMamaSurname    = "mama_surname"
	KeyParish         = "parish"

	// Derived fields written back after validation.
	KeyRegType        = "reg_type"
	KeyPregWeek       = "preg_week"
	KeyBabyAge        = "baby_age"
	KeyInvalidFields  = "invalid_fields"
	KeyProvisionError = "provision_error"
)

// RegType tags which validation profile a registration matched.
type RegType string

const (
	RegTypeHWPrebirth     RegType = "hw_pre"
	RegTypePublicPrebirth RegType = "pbl_pre"
	RegTypePublicLoss     RegType = "pbl_loss"
)

// Registration is a submitted intake record. It is created unvalidated and
// moves to validated exactly once; on failure the recorded reasons live in
// Data under invalid_fields and the record stays unvalidated permanently.
type Registration struct {
	ID        uuid.UUID `json:"id"`
	Stage     Stage     `json:"stage"`
	MotherID  string    `json:"mother_id"`
	Data      Data      `json:"data"`
	Validated bool      `json:"validated"`
	SourceID  uuid.UUID `json:"source_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}
