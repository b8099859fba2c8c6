package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/priorauth/priorauth/internal/domain/priorauth"
)

// Service manages the patient, provider and payer directory that
// authorization requests reference.
type Service struct {
	patients  PatientRepository
	providers ProviderRepository
	payers    PayerRepository
}

func NewService(patients PatientRepository, providers ProviderRepository, payers PayerRepository) *Service {
	return &Service{patients: patients, providers: providers, payers: payers}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByMemberID(ctx context.Context, memberID string) (*Patient, error) {
	return s.patients.GetByMemberID(ctx, memberID)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func validatePatient(p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.MemberID == "" {
		return fmt.Errorf("member_id is required")
	}
	if p.DateOfBirth.IsZero() || !p.DateOfBirth.Before(time.Now()) {
		return fmt.Errorf("date_of_birth must be in the past")
	}
	if p.Contact.Phone == "" {
		return fmt.Errorf("contact phone is required")
	}
	return nil
}

// -- Provider --

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	return s.providers.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) GetProviderByNPI(ctx context.Context, npi string) (*Provider, error) {
	return s.providers.GetByNPI(ctx, npi)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	return s.providers.Update(ctx, p)
}

func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	return s.providers.Delete(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, limit, offset)
}

func validateProvider(p *Provider) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validNPI(p.NPI) {
		return fmt.Errorf("npi must be exactly 10 digits")
	}
	if p.Contact.Phone == "" {
		return fmt.Errorf("contact phone is required")
	}
	return nil
}

func validNPI(npi string) bool {
	if len(npi) != 10 {
		return false
	}
	for _, r := range npi {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// -- Payer --

func (s *Service) CreatePayer(ctx context.Context, p *Payer) error {
	if err := validatePayer(p); err != nil {
		return err
	}
	return s.payers.Create(ctx, p)
}

func (s *Service) GetPayer(ctx context.Context, id uuid.UUID) (*Payer, error) {
	return s.payers.GetByID(ctx, id)
}

func (s *Service) GetPayerByCode(ctx context.Context, code string) (*Payer, error) {
	return s.payers.GetByCode(ctx, code)
}

func (s *Service) UpdatePayer(ctx context.Context, p *Payer) error {
	if err := validatePayer(p); err != nil {
		return err
	}
	return s.payers.Update(ctx, p)
}

func (s *Service) DeletePayer(ctx context.Context, id uuid.UUID) error {
	return s.payers.Delete(ctx, id)
}

func (s *Service) ListPayers(ctx context.Context, limit, offset int) ([]*Payer, int, error) {
	return s.payers.List(ctx, limit, offset)
}

func validatePayer(p *Payer) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.PayerCode == "" {
		return fmt.Errorf("payer_code is required")
	}
	if p.StandardResponseDays <= 0 {
		return fmt.Errorf("standard_response_days must be positive")
	}
	if p.Contact.Phone == "" {
		return fmt.Errorf("contact phone is required")
	}
	return nil
}

// Directory adapts the service to the authorization module's reference
// lookups.
type Directory struct {
	svc *Service
}

func NewDirectory(svc *Service) *Directory {
	return &Directory{svc: svc}
}

func (d *Directory) Patient(ctx context.Context, id uuid.UUID) (*priorauth.ReferencedParty, error) {
	p, err := d.svc.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	return &priorauth.ReferencedParty{ID: p.ID, Name: p.FullName()}, nil
}

func (d *Directory) Provider(ctx context.Context, id uuid.UUID) (*priorauth.ReferencedParty, error) {
	p, err := d.svc.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	return &priorauth.ReferencedParty{ID: p.ID, Name: p.Name}, nil
}

func (d *Directory) Payer(ctx context.Context, id uuid.UUID) (*priorauth.ReferencedParty, error) {
	p, err := d.svc.GetPayer(ctx, id)
	if err != nil {
		return nil, err
	}
	return &priorauth.ReferencedParty{ID: p.ID, Name: p.Name}, nil
}
