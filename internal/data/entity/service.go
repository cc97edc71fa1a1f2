package entity

// Service is a catalog entry. EstimatedDuration is in hours.
type Service struct {
	Base
	Name              string  `db:"name"`
	Description       string  `db:"description"`
	BasePrice         float64 `db:"base_price"`
	EstimatedDuration float64 `db:"estimated_duration"`
}

func (s *Service) IsDeleted() bool {
	return s.DeletedAt != nil
}
