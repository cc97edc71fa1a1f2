package response

import "cleaning-booking/internal/data/entity"

type ServiceResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	BasePrice         float64 `json:"base_price"`
	Currency          string  `json:"currency"`
	EstimatedDuration float64 `json:"estimated_duration"`
	IsDeleted         bool    `json:"is_deleted"`
}

func ServiceToResponse(s *entity.Service, currency string) ServiceResponse {
	return ServiceResponse{
		ID:                s.ID.String(),
		Name:              s.Name,
		Description:       s.Description,
		BasePrice:         s.BasePrice,
		Currency:          currency,
		EstimatedDuration: s.EstimatedDuration,
		IsDeleted:         s.IsDeleted(),
	}
}
