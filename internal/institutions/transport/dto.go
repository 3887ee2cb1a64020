package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateInstitutionRequest is the request body for creating an institution
type CreateInstitutionRequest struct {
	Name  string  `json:"name" validate:"required,max=255"`
	SIRET *string `json:"siret" validate:"omitempty,numeric,len=14"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=40"`
	City  *string `json:"city" validate:"omitempty,max=120"`
}

// ListInstitutionsRequest defines the query parameters for listing institutions
type ListInstitutionsRequest struct {
	Search   string `form:"search" validate:"omitempty,max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// InstitutionResponse is the response for an institution
type InstitutionResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SIRET     *string   `json:"siret,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	City      *string   `json:"city,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InstitutionListResponse is a page of institutions
type InstitutionListResponse struct {
	Items      []InstitutionResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}
