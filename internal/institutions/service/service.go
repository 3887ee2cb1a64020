package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"medcrm_backend/internal/institutions/repository"
	"medcrm_backend/internal/institutions/transport"
	"medcrm_backend/platform/apperr"
	"medcrm_backend/platform/logger"
	"medcrm_backend/platform/phone"
	"medcrm_backend/platform/sanitize"
)

// Service provides business logic for institutions.
type Service struct {
	repo  repository.Repository
	phone *phone.Normalizer
	log   *logger.Logger
}

// New creates a new institutions service.
func New(repo repository.Repository, phones *phone.Normalizer, log *logger.Logger) *Service {
	return &Service{repo: repo, phone: phones, log: log}
}

// GetByID retrieves an institution by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.InstitutionResponse, error) {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.InstitutionResponse{}, err
	}
	return toResponse(inst), nil
}

// List retrieves a page of institutions.
func (s *Service) List(ctx context.Context, req transport.ListInstitutionsRequest) (transport.InstitutionListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Search: req.Search,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		return transport.InstitutionListResponse{}, err
	}

	resp := transport.InstitutionListResponse{
		Items:      make([]transport.InstitutionResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for _, inst := range items {
		resp.Items = append(resp.Items, toResponse(inst))
	}
	return resp, nil
}

// Create stores a new institution. Phone numbers are normalized to E.164.
func (s *Service) Create(ctx context.Context, req transport.CreateInstitutionRequest) (transport.InstitutionResponse, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return transport.InstitutionResponse{}, apperr.Validation("name is required").
			WithDetails(map[string]string{"name": "required"})
	}

	params := repository.CreateParams{
		Name:  name,
		SIRET: trimmed(req.SIRET),
		Email: lowered(req.Email),
		City:  sanitize.TextPtr(trimmed(req.City)),
	}
	if p := trimmed(req.Phone); p != nil {
		e164, err := s.phone.E164(*p)
		if err != nil {
			return transport.InstitutionResponse{}, apperr.Validation("phone number is not valid").
				WithDetails(map[string]string{"phone": "e164"})
		}
		params.Phone = &e164
	}

	inst, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.InstitutionResponse{}, err
	}
	s.log.WithContext(ctx).Info("institution created", "institutionId", inst.ID)
	return toResponse(inst), nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func lowered(v *string) *string {
	t := trimmed(v)
	if t == nil {
		return nil
	}
	l := strings.ToLower(*t)
	return &l
}

func toResponse(inst repository.Institution) transport.InstitutionResponse {
	return transport.InstitutionResponse{
		ID:        inst.ID,
		Name:      inst.Name,
		SIRET:     inst.SIRET,
		Email:     inst.Email,
		Phone:     inst.Phone,
		City:      inst.City,
		CreatedAt: inst.CreatedAt,
		UpdatedAt: inst.UpdatedAt,
	}
}
