package priorauth

import (
	"strings"
	"time"
)

// ICDCode is an ICD-10 diagnosis code. Codes are upper-cased and must be
// between 3 and 7 characters.
type ICDCode struct {
	Code        string `db:"icd_code" json:"code"`
	Description string `db:"icd_description" json:"description"`
}

func NewICDCode(code, description string) (ICDCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ICDCode{}, &ValidationError{Field: "icd_code", Message: "ICD-10 code cannot be empty"}
	}
	if len(code) < 3 || len(code) > 7 {
		return ICDCode{}, &ValidationError{Field: "icd_code", Message: "ICD-10 code must be between 3 and 7 characters"}
	}
	return ICDCode{Code: code, Description: strings.TrimSpace(description)}, nil
}

func (c ICDCode) String() string { return c.Code + " - " + c.Description }

// CPTCode is a CPT procedure code, exactly 5 characters.
type CPTCode struct {
	Code              string `db:"cpt_code" json:"code"`
	Description       string `db:"cpt_description" json:"description"`
	RequiresPriorAuth bool   `db:"cpt_requires_prior_auth" json:"requires_prior_auth"`
}

func NewCPTCode(code, description string, requiresPriorAuth bool) (CPTCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return CPTCode{}, &ValidationError{Field: "cpt_code", Message: "CPT code cannot be empty"}
	}
	if len(code) != 5 {
		return CPTCode{}, &ValidationError{Field: "cpt_code", Message: "CPT code must be exactly 5 characters"}
	}
	return CPTCode{Code: code, Description: strings.TrimSpace(description), RequiresPriorAuth: requiresPriorAuth}, nil
}

func (c CPTCode) String() string { return c.Code + " - " + c.Description }

// ClinicalJustification documents why the requested service is medically
// necessary. DocumentedAt is stamped at construction.
type ClinicalJustification struct {
	Notes                 string    `db:"clinical_notes" json:"notes"`
	DocumentedBy          string    `db:"clinical_documented_by" json:"documented_by"`
	SupportingDocumentRef string    `db:"clinical_supporting_document" json:"supporting_document_ref,omitempty"`
	DocumentedAt          time.Time `db:"clinical_documented_at" json:"documented_at"`
}

func NewClinicalJustification(notes, documentedBy, supportingDocumentRef string) (ClinicalJustification, error) {
	if strings.TrimSpace(notes) == "" {
		return ClinicalJustification{}, &ValidationError{Field: "clinical_notes", Message: "clinical justification notes cannot be empty"}
	}
	if strings.TrimSpace(documentedBy) == "" {
		return ClinicalJustification{}, &ValidationError{Field: "clinical_documented_by", Message: "documenting provider cannot be empty"}
	}
	return ClinicalJustification{
		Notes:                 strings.TrimSpace(notes),
		DocumentedBy:          strings.TrimSpace(documentedBy),
		SupportingDocumentRef: strings.TrimSpace(supportingDocumentRef),
		DocumentedAt:          time.Now().UTC(),
	}, nil
}

// ContactInfo is a phone-first contact record shared by patients, providers
// and payers. Phone is required; email and fax are optional.
type ContactInfo struct {
	Phone string `db:"contact_phone" json:"phone"`
	Email string `db:"contact_email" json:"email,omitempty"`
	Fax   string `db:"contact_fax" json:"fax,omitempty"`
}

func NewContactInfo(phone, email, fax string) (ContactInfo, error) {
	if strings.TrimSpace(phone) == "" {
		return ContactInfo{}, &ValidationError{Field: "phone", Message: "phone number cannot be empty"}
	}
	return ContactInfo{
		Phone: strings.TrimSpace(phone),
		Email: strings.TrimSpace(email),
		Fax:   strings.TrimSpace(fax),
	}, nil
}
