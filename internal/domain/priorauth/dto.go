package priorauth

import (
	"time"

	"github.com/google/uuid"
)

// Summary is the list projection of an authorization request.
type Summary struct {
	ID                 uuid.UUID `json:"id"`
	PatientName        string    `json:"patient_name"`
	ProviderName       string    `json:"provider_name"`
	PayerName          string    `json:"payer_name"`
	CPTCode            string    `json:"cpt_code"`
	ICDCode            string    `json:"icd_code"`
	Status             Status    `json:"status"`
	SubmittedAt        time.Time `json:"submitted_at"`
	RequiredResponseBy time.Time `json:"required_response_by"`
}

// Detail is the full read projection, including the transition history.
type Detail struct {
	ID                    uuid.UUID          `json:"id"`
	PatientName           string             `json:"patient_name"`
	ProviderName          string             `json:"provider_name"`
	PayerName             string             `json:"payer_name"`
	ICDCode               string             `json:"icd_code"`
	ICDDescription        string             `json:"icd_description"`
	CPTCode               string             `json:"cpt_code"`
	CPTDescription        string             `json:"cpt_description"`
	Status                Status             `json:"status"`
	ClinicalJustification string             `json:"clinical_justification"`
	SubmittedAt           time.Time          `json:"submitted_at"`
	RequiredResponseBy    time.Time          `json:"required_response_by"`
	Transitions           []StatusTransition `json:"status_transitions"`
}

// Stats is the aggregated dashboard view over all requests.
type Stats struct {
	Total                 int                  `json:"total"`
	ByStatus              map[Status]int       `json:"by_status"`
	Pending               int                  `json:"pending"`
	Approved              int                  `json:"approved"`
	Denied                int                  `json:"denied"`
	Expired               int                  `json:"expired"`
	DenialReasons         map[DenialReason]int `json:"denial_reasons"`
	AverageResolutionDays float64              `json:"average_resolution_days"`
}
