package version

import (
	"encoding/json"
	"fmt"
	"strconv"

	professional "credentia/internal/professional/models"
	"credentia/internal/version/models"
)

// ComputeDiff derives the field-level changes between a predecessor snapshot
// and the one being staged. previous == nil means no current snapshot exists;
// every populated field surfaces as ADDED.
//
// Scalars: old != new -> MODIFIED, old absent -> ADDED, new empty -> REMOVED.
// Sub-lists are matched by identity key: unmatched-left items become one
// REMOVED row carrying the whole object, unmatched-right one ADDED row, and
// matched-but-different items recurse into per-field rows with an [index]
// path suffix.
//
// The result is audit metadata only. Apply always converges from the full
// snapshot, never by replaying these rows.
func ComputeDiff(previous *professional.Snapshot, next professional.Snapshot) []models.Change {
	d := differ{hasPrevious: previous != nil}
	var base professional.Snapshot
	if previous != nil {
		base = *previous
	}

	d.scalar("full_name", base.FullName, next.FullName)
	d.scalar("document_number", base.DocumentNumber, next.DocumentNumber)
	d.scalar("email", base.Email, next.Email)
	d.scalar("phone", base.Phone, next.Phone)
	d.boolean("legal_entity", base.LegalEntity, next.LegalEntity)
	d.scalar("company_name", base.CompanyName, next.CompanyName)
	d.scalar("company_tax_id", base.CompanyTaxID, next.CompanyTaxID)
	d.scalar("company_link_ref", base.CompanyLinkRef, next.CompanyLinkRef)

	diffList(&d, "qualifications", base.Qualifications, next.Qualifications,
		func(q professional.Qualification) string { return q.ID },
		func(d *differ, prefix string, old, new professional.Qualification) {
			d.scalarAt(prefix, "profession", old.Profession, new.Profession)
			d.scalarAt(prefix, "council_number", old.CouncilNumber, new.CouncilNumber)
			d.scalarAt(prefix, "council_state", old.CouncilState, new.CouncilState)
		})
	diffList(&d, "specialties", base.Specialties, next.Specialties,
		func(s professional.Specialty) string { return s.ID },
		func(d *differ, prefix string, old, new professional.Specialty) {
			d.scalarAt(prefix, "name", old.Name, new.Name)
			d.scalarAt(prefix, "rqe_number", old.RQENumber, new.RQENumber)
		})
	diffList(&d, "educations", base.Educations, next.Educations,
		func(e professional.Education) string { return e.ID },
		func(d *differ, prefix string, old, new professional.Education) {
			d.scalarAt(prefix, "institution", old.Institution, new.Institution)
			d.scalarAt(prefix, "course", old.Course, new.Course)
			d.scalarAt(prefix, "completed_at", old.CompletedAt, new.CompletedAt)
		})
	diffList(&d, "bank_accounts", base.BankAccounts, next.BankAccounts,
		func(b professional.BankAccount) string { return b.ID },
		func(d *differ, prefix string, old, new professional.BankAccount) {
			d.scalarAt(prefix, "bank_code", old.BankCode, new.BankCode)
			d.scalarAt(prefix, "agency", old.Agency, new.Agency)
			d.scalarAt(prefix, "account", old.Account, new.Account)
			d.scalarAt(prefix, "account_type", old.AccountType, new.AccountType)
		})

	return d.changes
}

type differ struct {
	hasPrevious bool
	changes     []models.Change
}

func (d *differ) scalar(path, old, new string) {
	oldAbsent := !d.hasPrevious || old == ""
	switch {
	case old == new:
		return
	case oldAbsent && new != "":
		d.append(path, models.ChangeAdded, "", new)
	case new == "":
		d.append(path, models.ChangeRemoved, old, "")
	default:
		d.append(path, models.ChangeModified, old, new)
	}
}

// scalarAt diffs a scalar inside a matched sub-item; the item existed on both
// sides, so absence is judged by the field value alone.
func (d *differ) scalarAt(prefix, field, old, new string) {
	path := prefix + "." + field
	switch {
	case old == new:
		return
	case old == "" && new != "":
		d.append(path, models.ChangeAdded, "", new)
	case new == "":
		d.append(path, models.ChangeRemoved, old, "")
	default:
		d.append(path, models.ChangeModified, old, new)
	}
}

func (d *differ) boolean(path string, old, new bool) {
	if !d.hasPrevious {
		if new {
			d.append(path, models.ChangeAdded, "", strconv.FormatBool(new))
		}
		return
	}
	if old != new {
		d.append(path, models.ChangeModified, strconv.FormatBool(old), strconv.FormatBool(new))
	}
}

func (d *differ) append(path string, changeType models.ChangeType, old, new string) {
	d.changes = append(d.changes, models.Change{
		FieldPath: path,
		Type:      changeType,
		OldValue:  old,
		NewValue:  new,
	})
}

// diffList matches two ordered sub-lists by identity key.
func diffList[T any](d *differ, path string, old, new []T, key func(T) string, diffItem func(*differ, string, T, T)) {
	oldByKey := make(map[string]T, len(old))
	for _, item := range old {
		oldByKey[key(item)] = item
	}
	newKeys := make(map[string]struct{}, len(new))

	for index, item := range new {
		itemKey := key(item)
		newKeys[itemKey] = struct{}{}
		prefix := fmt.Sprintf("%s[%d]", path, index)

		oldItem, matched := oldByKey[itemKey]
		if !matched || !d.hasPrevious {
			d.append(prefix, models.ChangeAdded, "", mustJSON(item))
			continue
		}
		diffItem(d, prefix, oldItem, item)
	}

	for index, item := range old {
		if _, kept := newKeys[key(item)]; kept {
			continue
		}
		prefix := fmt.Sprintf("%s[%d]", path, index)
		d.append(prefix, models.ChangeRemoved, mustJSON(item), "")
	}
}

func mustJSON(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		// Snapshot types marshal cleanly; a failure here is a programming error.
		return fmt.Sprintf("%+v", v)
	}
	return string(encoded)
}
