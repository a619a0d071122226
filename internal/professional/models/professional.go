// Package models defines the live professional record and its snapshot form.
// The record is the shared resource screening processes and version applies
// contend for; RecordVersion is the entity-level CAS counter serializing
// concurrent converges.
package models

import (
	"time"

	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
)

// Professional is the live, mutable professional record. All mutation goes
// through version apply; nothing edits these fields in place.
type Professional struct {
	ID             id.ProfessionalID
	OrgID          id.OrgID
	FullName       string
	DocumentNumber string
	Email          string
	Phone          string

	// Legal-entity fields. When the professional operates through a company,
	// payment setup additionally requires the company references.
	LegalEntity    bool
	CompanyName    string
	CompanyTaxID   string
	CompanyLinkRef string

	Qualifications []Qualification
	Specialties    []Specialty
	Educations     []Education
	BankAccounts   []BankAccount

	// RecordVersion is bumped on every applied snapshot; converge uses it as
	// a compare-and-swap token so concurrent applies cannot interleave.
	RecordVersion int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Qualification is a professional council registration.
type Qualification struct {
	ID            string `json:"id"`
	Profession    string `json:"profession"`
	CouncilNumber string `json:"council_number"`
	CouncilState  string `json:"council_state"`
}

// Specialty is a registered medical specialty.
type Specialty struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RQENumber string `json:"rqe_number"`
}

// Education is a completed degree or course.
type Education struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Course      string `json:"course"`
	CompletedAt string `json:"completed_at"`
}

// BankAccount is a payout destination.
type BankAccount struct {
	ID          string `json:"id"`
	BankCode    string `json:"bank_code"`
	Agency      string `json:"agency"`
	Account     string `json:"account"`
	AccountType string `json:"account_type"`
}

// Snapshot is the full point-in-time copy of a professional's mutable data.
// Versions store exactly this shape; apply converges the live record to it.
type Snapshot struct {
	FullName       string `json:"full_name"`
	DocumentNumber string `json:"document_number"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`

	LegalEntity    bool   `json:"legal_entity"`
	CompanyName    string `json:"company_name,omitempty"`
	CompanyTaxID   string `json:"company_tax_id,omitempty"`
	CompanyLinkRef string `json:"company_link_ref,omitempty"`

	Qualifications []Qualification `json:"qualifications"`
	Specialties    []Specialty     `json:"specialties"`
	Educations     []Education     `json:"educations"`
	BankAccounts   []BankAccount   `json:"bank_accounts"`
}

// ToSnapshot projects the live record into snapshot form.
func (p *Professional) ToSnapshot() Snapshot {
	return Snapshot{
		FullName:       p.FullName,
		DocumentNumber: p.DocumentNumber,
		Email:          p.Email,
		Phone:          p.Phone,
		LegalEntity:    p.LegalEntity,
		CompanyName:    p.CompanyName,
		CompanyTaxID:   p.CompanyTaxID,
		CompanyLinkRef: p.CompanyLinkRef,
		Qualifications: cloneSlice(p.Qualifications),
		Specialties:    cloneSlice(p.Specialties),
		Educations:     cloneSlice(p.Educations),
		BankAccounts:   cloneSlice(p.BankAccounts),
	}
}

// ApplySnapshot converges the live record to the snapshot. Sub-collections
// are matched by identity key: new items are inserted, matched items updated
// in place, and items absent from the snapshot are removed (hard delete; the
// version's diff rows retain their last state for audit).
func (p *Professional) ApplySnapshot(s Snapshot) {
	p.FullName = s.FullName
	p.DocumentNumber = s.DocumentNumber
	p.Email = s.Email
	p.Phone = s.Phone
	p.LegalEntity = s.LegalEntity
	p.CompanyName = s.CompanyName
	p.CompanyTaxID = s.CompanyTaxID
	p.CompanyLinkRef = s.CompanyLinkRef

	// In-memory convergence reduces to replacement: sub-items are value
	// structs keyed by their ID field. Row-level upsert/insert/remove by the
	// same keys happens in the postgres store.
	p.Qualifications = cloneSlice(s.Qualifications)
	p.Specialties = cloneSlice(s.Specialties)
	p.Educations = cloneSlice(s.Educations)
	p.BankAccounts = cloneSlice(s.BankAccounts)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// ValidateRequired enforces the required-field checks a screening-staged
// snapshot must satisfy before the professional-data step may complete.
func (s Snapshot) ValidateRequired() error {
	if s.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "professional full name is required")
	}
	if s.DocumentNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "professional document number is required")
	}
	if len(s.Qualifications) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one qualification is required")
	}
	for _, q := range s.Qualifications {
		if q.CouncilNumber == "" {
			return dErrors.Newf(dErrors.CodeValidation, "qualification %s is missing a council number", q.ID)
		}
	}
	if s.LegalEntity && s.CompanyTaxID == "" {
		return dErrors.New(dErrors.CodeValidation, "legal-entity professionals must inform a company tax id")
	}
	return nil
}
