package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

type ReviewHandler struct {
	base
	service usecase.ReviewService
}

func NewReviewHandler(service usecase.ReviewService, debug bool, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		base:    base{log: log.With(zap.String("handler", "review")), debug: debug},
		service: service,
	}
}

// CreateReview handles POST /api/reviews (customer)
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	var req request.CreateReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	review, err := h.service.CreateReview(r.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(w, err, "create review")
		return
	}

	utils.ResponseCreated(w, "Review submitted", review)
}
