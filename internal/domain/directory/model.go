package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/priorauth/priorauth/internal/domain/priorauth"
	"github.com/priorauth/priorauth/internal/platform/fhir"
)

// Patient maps to the patient table.
type Patient struct {
	ID          uuid.UUID             `db:"id" json:"id"`
	FirstName   string                `db:"first_name" json:"first_name"`
	LastName    string                `db:"last_name" json:"last_name"`
	DateOfBirth time.Time             `db:"date_of_birth" json:"date_of_birth"`
	MemberID    string                `db:"member_id" json:"member_id"`
	Contact     priorauth.ContactInfo `db:"-" json:"contact"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time            `db:"updated_at" json:"updated_at,omitempty"`
}

// FullName returns the display name used on authorization summaries.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.ID.String(),
		"active":       true,
		"name": []fhir.HumanName{{
			Use:    "official",
			Family: p.LastName,
			Given:  []string{p.FirstName},
		}},
		"birthDate": p.DateOfBirth.Format("2006-01-02"),
		"identifier": []fhir.Identifier{{
			Use:   "usual",
			Type:  &fhir.CodeableConcept{Coding: []fhir.Coding{{System: "http://terminology.hl7.org/CodeSystem/v2-0203", Code: "MB"}}},
			Value: p.MemberID,
		}},
	}
	if p.UpdatedAt != nil {
		result["meta"] = fhir.Meta{LastUpdated: *p.UpdatedAt}
	}
	var telecoms []fhir.ContactPoint
	if p.Contact.Phone != "" {
		telecoms = append(telecoms, fhir.ContactPoint{System: "phone", Value: p.Contact.Phone})
	}
	if p.Contact.Email != "" {
		telecoms = append(telecoms, fhir.ContactPoint{System: "email", Value: p.Contact.Email})
	}
	if len(telecoms) > 0 {
		result["telecom"] = telecoms
	}
	return result
}

// Provider maps to the provider table.
type Provider struct {
	ID        uuid.UUID             `db:"id" json:"id"`
	Name      string                `db:"name" json:"name"`
	NPI       string                `db:"npi" json:"npi"`
	Specialty string                `db:"specialty" json:"specialty"`
	Contact   priorauth.ContactInfo `db:"-" json:"contact"`
	CreatedAt time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time            `db:"updated_at" json:"updated_at,omitempty"`
}

func (p *Provider) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Practitioner",
		"id":           p.ID.String(),
		"active":       true,
		"name":         []fhir.HumanName{{Use: "official", Text: p.Name}},
		"identifier": []fhir.Identifier{{
			System: "http://hl7.org/fhir/sid/us-npi",
			Value:  p.NPI,
		}},
	}
	if p.Specialty != "" {
		result["qualification"] = []map[string]interface{}{{
			"code": fhir.CodeableConcept{Text: p.Specialty},
		}}
	}
	return result
}

// Payer maps to the payer table.
type Payer struct {
	ID                   uuid.UUID             `db:"id" json:"id"`
	Name                 string                `db:"name" json:"name"`
	PayerCode            string                `db:"payer_code" json:"payer_code"`
	StandardResponseDays int                   `db:"standard_response_days" json:"standard_response_days"`
	Contact              priorauth.ContactInfo `db:"-" json:"contact"`
	CreatedAt            time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt            *time.Time            `db:"updated_at" json:"updated_at,omitempty"`
}

// ResponseDeadlineFrom computes the default response deadline for a request
// submitted at the given time.
func (p *Payer) ResponseDeadlineFrom(submitted time.Time) time.Time {
	return submitted.AddDate(0, 0, p.StandardResponseDays)
}

func (p *Payer) ToFHIR() map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Organization",
		"id":           p.ID.String(),
		"active":       true,
		"name":         p.Name,
		"type": []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{System: "http://terminology.hl7.org/CodeSystem/organization-type", Code: "pay", Display: "Payer"}},
		}},
		"identifier": []fhir.Identifier{{Use: "official", Value: p.PayerCode}},
	}
}
