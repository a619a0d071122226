// Package domain holds domain primitives shared across features. Typed IDs
// make it a compile error to pass a process ID where a document ID is
// expected, and Parse functions enforce validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "credentia/pkg/domain-errors"
)

// Typed identifiers. Each is a distinct type over uuid.UUID so cross-type
// assignment fails at compile time.
type (
	// OrgID identifies a tenant organization.
	OrgID uuid.UUID
	// ProfessionalID identifies a healthcare professional record.
	ProfessionalID uuid.UUID
	// ProcessID identifies a screening process.
	ProcessID uuid.UUID
	// StepID identifies one step row within a process.
	StepID uuid.UUID
	// DocumentID identifies a required document within an upload step.
	DocumentID uuid.UUID
	// DocumentTypeID identifies an entry in the document-type catalog.
	DocumentTypeID uuid.UUID
	// VersionID identifies a staged professional version.
	VersionID uuid.UUID
	// AlertID identifies a screening alert.
	AlertID uuid.UUID
	// ActorID identifies the human or system actor performing an operation.
	ActorID uuid.UUID
)

func parseUUID(value, kind string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseOrgID parses and validates an organization ID.
func ParseOrgID(value string) (OrgID, error) {
	parsed, err := parseUUID(value, "org id")
	return OrgID(parsed), err
}

// ParseProfessionalID parses and validates a professional ID.
func ParseProfessionalID(value string) (ProfessionalID, error) {
	parsed, err := parseUUID(value, "professional id")
	return ProfessionalID(parsed), err
}

// ParseProcessID parses and validates a screening process ID.
func ParseProcessID(value string) (ProcessID, error) {
	parsed, err := parseUUID(value, "process id")
	return ProcessID(parsed), err
}

// ParseStepID parses and validates a step ID.
func ParseStepID(value string) (StepID, error) {
	parsed, err := parseUUID(value, "step id")
	return StepID(parsed), err
}

// ParseDocumentID parses and validates a document ID.
func ParseDocumentID(value string) (DocumentID, error) {
	parsed, err := parseUUID(value, "document id")
	return DocumentID(parsed), err
}

// ParseDocumentTypeID parses and validates a document-type ID.
func ParseDocumentTypeID(value string) (DocumentTypeID, error) {
	parsed, err := parseUUID(value, "document type id")
	return DocumentTypeID(parsed), err
}

// ParseVersionID parses and validates a professional-version ID.
func ParseVersionID(value string) (VersionID, error) {
	parsed, err := parseUUID(value, "version id")
	return VersionID(parsed), err
}

// ParseAlertID parses and validates an alert ID.
func ParseAlertID(value string) (AlertID, error) {
	parsed, err := parseUUID(value, "alert id")
	return AlertID(parsed), err
}

// ParseActorID parses and validates an actor ID.
func ParseActorID(value string) (ActorID, error) {
	parsed, err := parseUUID(value, "actor id")
	return ActorID(parsed), err
}

func (id OrgID) String() string          { return uuid.UUID(id).String() }
func (id ProfessionalID) String() string { return uuid.UUID(id).String() }
func (id ProcessID) String() string      { return uuid.UUID(id).String() }
func (id StepID) String() string         { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id DocumentTypeID) String() string { return uuid.UUID(id).String() }
func (id VersionID) String() string      { return uuid.UUID(id).String() }
func (id AlertID) String() string        { return uuid.UUID(id).String() }
func (id ActorID) String() string        { return uuid.UUID(id).String() }

func (id OrgID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id ProfessionalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProcessID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id StepID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id VersionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// MarshalText keeps every typed ID on the canonical UUID string form in JSON
// and cache payloads.
func (id OrgID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id ProfessionalID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ProcessID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id StepID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DocumentTypeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id VersionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id AlertID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }

func unmarshalUUID(text []byte) (uuid.UUID, error) {
	return uuid.ParseBytes(text)
}

func (id *OrgID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = OrgID(parsed)
	return err
}

func (id *ProfessionalID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = ProfessionalID(parsed)
	return err
}

func (id *ProcessID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = ProcessID(parsed)
	return err
}

func (id *StepID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = StepID(parsed)
	return err
}

func (id *DocumentID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = DocumentID(parsed)
	return err
}

func (id *DocumentTypeID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = DocumentTypeID(parsed)
	return err
}

func (id *VersionID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = VersionID(parsed)
	return err
}

func (id *AlertID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = AlertID(parsed)
	return err
}

func (id *ActorID) UnmarshalText(text []byte) error {
	parsed, err := unmarshalUUID(text)
	*id = ActorID(parsed)
	return err
}

// NewOrgID returns a freshly generated organization ID.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// NewProfessionalID returns a freshly generated professional ID.
func NewProfessionalID() ProfessionalID { return ProfessionalID(uuid.New()) }

// NewProcessID returns a freshly generated process ID.
func NewProcessID() ProcessID { return ProcessID(uuid.New()) }

// NewStepID returns a freshly generated step ID.
func NewStepID() StepID { return StepID(uuid.New()) }

// NewDocumentID returns a freshly generated document ID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewDocumentTypeID returns a freshly generated document-type ID.
func NewDocumentTypeID() DocumentTypeID { return DocumentTypeID(uuid.New()) }

// NewVersionID returns a freshly generated version ID.
func NewVersionID() VersionID { return VersionID(uuid.New()) }

// NewAlertID returns a freshly generated alert ID.
func NewAlertID() AlertID { return AlertID(uuid.New()) }

// NewActorID returns a freshly generated actor ID.
func NewActorID() ActorID { return ActorID(uuid.New()) }
