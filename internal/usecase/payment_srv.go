package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/internal/provider/paypal"
	"cleaning-booking/pkg/apperror"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	// Customer
	InitiatePayment(ctx context.Context, actor Actor, req *request.InitiatePaymentRequest) (*response.InitiatePaymentResponse, error)
	GetPayment(ctx context.Context, actor Actor, paymentID string) (*response.PaymentResponse, error)

	// Provider redirects, keyed by the provider order id
	HandleProviderCapture(ctx context.Context, orderID string) (*response.PaymentResponse, error)
	HandleProviderCancel(ctx context.Context, orderID string) (*response.PaymentResponse, error)

	// Admin
	VerifyCashPayment(ctx context.Context, paymentID string) (*response.PaymentResponse, error)
	RefundPayment(ctx context.Context, actor Actor, paymentID string) (*response.PaymentResponse, error)
}

type paymentService struct {
	repo      *repository.Repository
	tx        Transactor
	provider  PaymentProvider
	pub       EventPublisher
	converter utils.CurrencyConverter
	paypal    utils.PayPalConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewPaymentService(repo *repository.Repository, tx Transactor, provider PaymentProvider, pub EventPublisher, config *utils.Config, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:      repo,
		tx:        tx,
		provider:  provider,
		pub:       pub,
		converter: utils.NewCurrencyConverter(config.Currency),
		paypal:    config.PayPal,
		log:       log.With(zap.String("service", "payment")),
		now:       time.Now,
	}
}

var errProviderDisabled = errors.New("paypal credentials are not configured")

type cardSummary struct {
	Card        string    `json:"card"`
	CardHolder  string    `json:"card_holder"`
	ProcessedAt time.Time `json:"processed_at"`
}

func (s *paymentService) InitiatePayment(ctx context.Context, actor Actor, req *request.InitiatePaymentRequest) (*response.InitiatePaymentResponse, error) {
	if err := validateRequest(s.log, "Initiate payment", req); err != nil {
		return nil, err
	}

	bookingID, err := parseID(req.BookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	method := entity.PaymentMethod(req.Method)
	if method == entity.PaymentMethodCard {
		if n := len(utils.DigitsOnly(req.Card.Number)); n < 13 || n > 19 {
			return nil, apperror.Validation("Invalid card number", map[string]string{"card_number": "Must contain 13 to 19 digits"})
		}
	}

	var (
		payment     *entity.Payment
		approvalURL string
	)
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		booking, err := s.repo.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return apperror.NotFound("Booking not found")
		}
		if booking.CustomerID != actor.ID {
			return apperror.Unauthorized("You can only pay for your own bookings")
		}
		if booking.Status != entity.BookingStatusPending {
			return apperror.InvalidState("Only pending bookings can be paid, booking is %s", booking.Status)
		}

		existing, err := s.repo.Payment.FindByBookingIDForUpdate(ctx, booking.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case entity.PaymentStatusFailed:
				// a failed attempt is replaced by the new one
				booking.PaymentID = nil
				if err := s.repo.Payment.Delete(ctx, existing.ID); err != nil {
					return err
				}
				s.log.Info("Replacing failed payment",
					zap.String("booking_id", booking.ID.String()),
					zap.String("failed_payment_id", existing.ID.String()))
			case entity.PaymentStatusPending:
				return apperror.Conflict("A payment for this booking is already in progress")
			default:
				return apperror.Conflict("Booking is already paid")
			}
		}

		service, err := s.repo.Service.FindByID(ctx, booking.ServiceID)
		if err != nil {
			return fmt.Errorf("find service %s: %w", booking.ServiceID, err)
		}
		if service == nil {
			return apperror.NotFound("Service not found")
		}

		now := s.now()
		payment = &entity.Payment{
			BaseNoDelete: entity.BaseNoDelete{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			UserID:    actor.ID,
			BookingID: booking.ID,
			Amount:    utils.RoundMoney(service.BasePrice),
			Currency:  s.converter.Local,
			Method:    method,
		}

		switch method {
		case entity.PaymentMethodCard:
			summary, err := json.Marshal(cardSummary{
				Card:        utils.MaskCardNumber(req.Card.Number),
				CardHolder:  strings.TrimSpace(req.Card.HolderName),
				ProcessedAt: now,
			})
			if err != nil {
				return fmt.Errorf("encode card summary: %w", err)
			}
			txID := "CC-" + uuid.NewString()
			payment.Status = entity.PaymentStatusCompleted
			payment.TransactionID = &txID
			payment.ProviderResponse = summary
			booking.Status = entity.BookingStatusConfirmed

		case entity.PaymentMethodPayPal:
			order, err := s.createOrder(ctx, booking, payment.Amount)
			if err != nil {
				return err
			}
			payment.Status = entity.PaymentStatusPending
			payment.TransactionID = &order.ID
			payment.ProviderResponse = order.Raw
			approvalURL = order.ApprovalURL

		case entity.PaymentMethodCash:
			payment.Status = entity.PaymentStatusPending
		}

		if err := s.repo.Payment.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.Conflict("A payment for this booking is already in progress")
			}
			return err
		}

		booking.PaymentID = &payment.ID
		booking.UpdatedAt = now
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
		zap.String("method", string(payment.Method)),
		zap.String("status", string(payment.Status)),
		zap.Float64("amount", payment.Amount))
	metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))

	event := EventPaymentInitiated
	if payment.Status == entity.PaymentStatusCompleted {
		metrics.IncBookingTransition(string(entity.BookingStatusConfirmed))
		event = EventPaymentCompleted
	}
	publish(ctx, s.pub, s.log, event, newPaymentEvent(payment, payment.CreatedAt))

	return &response.InitiatePaymentResponse{
		Payment:     response.PaymentToResponse(payment),
		ApprovalURL: approvalURL,
	}, nil
}

// createOrder opens a provider order for amount converted to the settlement
// currency.
func (s *paymentService) createOrder(ctx context.Context, booking *entity.Booking, amount float64) (*paypal.Order, error) {
	if s.provider == nil {
		return nil, apperror.Provider(errProviderDisabled, "PayPal is not available")
	}

	order, err := s.provider.CreateOrder(ctx, paypal.OrderRequest{
		ReferenceID: booking.ID.String(),
		Amount:      s.converter.ToSettlement(amount),
		Currency:    s.converter.Settlement,
		ReturnURL:   s.paypal.ReturnURL,
		CancelURL:   s.paypal.CancelURL,
	})
	if err != nil {
		return nil, apperror.Provider(err, "Could not create PayPal order")
	}
	return order, nil
}

// lockPayment locks the payment's booking and then the payment itself, the
// same order InitiatePayment takes them in.
func (s *paymentService) lockPayment(ctx context.Context, paymentID uuid.UUID) (*entity.Payment, *entity.Booking, error) {
	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, apperror.NotFound("Payment not found")
	}

	booking, err := s.repo.Booking.FindByIDForUpdate(ctx, payment.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking == nil {
		return nil, nil, fmt.Errorf("booking %s of payment %s is missing", payment.BookingID, payment.ID)
	}

	payment, err = s.repo.Payment.FindByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, apperror.NotFound("Payment not found")
	}

	return payment, booking, nil
}

func (s *paymentService) lockByOrderID(ctx context.Context, orderID string) (*entity.Payment, *entity.Booking, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, nil, apperror.Validation("Missing order token", map[string]string{"token": "This field is required"})
	}

	found, err := s.repo.Payment.FindByTransactionID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if found == nil {
		return nil, nil, apperror.NotFound("No payment for order %s", orderID)
	}
	return s.lockPayment(ctx, found.ID)
}

func (s *paymentService) HandleProviderCapture(ctx context.Context, orderID string) (*response.PaymentResponse, error) {
	var (
		payment         *entity.Payment
		booking         *entity.Booking
		alreadyCaptured bool
		abandoned       bool
	)
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		payment, booking, err = s.lockByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		if payment.Status == entity.PaymentStatusCompleted {
			alreadyCaptured = true
			return nil
		}
		if !payment.CanTransition(entity.PaymentStatusCompleted) {
			return apperror.InvalidState("Payment is %s and cannot be captured", payment.Status)
		}

		// The booking was canceled while the payer was at PayPal: the order
		// is never captured and the payment fails.
		if !booking.Blocking() {
			abandoned = true
			return s.failPending(ctx, payment, booking)
		}

		if s.provider == nil {
			return apperror.Provider(errProviderDisabled, "PayPal is not available")
		}

		capture, err := s.provider.CaptureOrder(ctx, orderID)
		if err != nil {
			return apperror.Provider(err, "Could not capture PayPal order")
		}

		now := s.now()
		payment.Status = entity.PaymentStatusCompleted
		payment.CaptureID = &capture.CaptureID
		payment.ProviderResponse = capture.Raw
		payment.UpdatedAt = now
		if err := s.repo.Payment.Update(ctx, payment); err != nil {
			return err
		}

		booking.Status = entity.BookingStatusConfirmed
		booking.PaymentID = &payment.ID
		booking.UpdatedAt = now
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case alreadyCaptured:
		s.log.Info("Capture repeated for completed payment", zap.String("order_id", orderID))
	case abandoned:
		s.log.Warn("PayPal order not captured, booking is no longer active",
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_id", booking.ID.String()),
			zap.String("booking_status", string(booking.Status)))
		metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))
		publish(ctx, s.pub, s.log, EventPaymentFailed, newPaymentEvent(payment, payment.UpdatedAt))
		return nil, apperror.InvalidState("Booking is %s, the payment was not captured", booking.Status)
	default:
		s.log.Info("PayPal payment captured",
			zap.String("payment_id", payment.ID.String()),
			zap.String("order_id", orderID))
		metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))
		metrics.IncBookingTransition(string(entity.BookingStatusConfirmed))
		publish(ctx, s.pub, s.log, EventPaymentCompleted, newPaymentEvent(payment, payment.UpdatedAt))
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

func (s *paymentService) HandleProviderCancel(ctx context.Context, orderID string) (*response.PaymentResponse, error) {
	var payment *entity.Payment
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var (
			booking *entity.Booking
			err     error
		)
		payment, booking, err = s.lockByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if !payment.CanTransition(entity.PaymentStatusFailed) {
			return apperror.InvalidState("Payment is %s and cannot be canceled", payment.Status)
		}
		return s.failPending(ctx, payment, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("PayPal payment canceled by payer",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", orderID))
	metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))
	publish(ctx, s.pub, s.log, EventPaymentFailed, newPaymentEvent(payment, payment.UpdatedAt))

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

// failPending marks a pending payment failed and detaches it from its
// booking. Both rows must already be locked.
func (s *paymentService) failPending(ctx context.Context, payment *entity.Payment, booking *entity.Booking) error {
	now := s.now()
	payment.Status = entity.PaymentStatusFailed
	payment.UpdatedAt = now
	if err := s.repo.Payment.Update(ctx, payment); err != nil {
		return err
	}

	if booking.PaymentID != nil && *booking.PaymentID == payment.ID {
		booking.PaymentID = nil
		booking.UpdatedAt = now
		return s.repo.Booking.Update(ctx, booking)
	}
	return nil
}

func (s *paymentService) VerifyCashPayment(ctx context.Context, paymentID string) (*response.PaymentResponse, error) {
	id, err := parseID(paymentID, "payment_id")
	if err != nil {
		return nil, err
	}

	var payment *entity.Payment
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		var booking *entity.Booking
		payment, booking, err = s.lockPayment(ctx, id)
		if err != nil {
			return err
		}
		if payment.Method != entity.PaymentMethodCash {
			return apperror.Validation("Only cash payments can be verified", map[string]string{"payment_method": "Must be cash"})
		}
		if !payment.CanTransition(entity.PaymentStatusCompleted) {
			return apperror.InvalidState("Payment is %s and cannot be verified", payment.Status)
		}
		if !booking.Blocking() {
			return apperror.InvalidState("Booking is %s", booking.Status)
		}

		now := s.now()
		payment.Status = entity.PaymentStatusCompleted
		payment.UpdatedAt = now
		if err := s.repo.Payment.Update(ctx, payment); err != nil {
			return err
		}

		if booking.Status == entity.BookingStatusPending {
			booking.Status = entity.BookingStatusConfirmed
		}
		booking.PaymentID = &payment.ID
		booking.UpdatedAt = now
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Cash payment verified", zap.String("payment_id", payment.ID.String()))
	metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))
	metrics.IncBookingTransition(string(entity.BookingStatusConfirmed))
	publish(ctx, s.pub, s.log, EventPaymentCompleted, newPaymentEvent(payment, payment.UpdatedAt))

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

func (s *paymentService) RefundPayment(ctx context.Context, actor Actor, paymentID string) (*response.PaymentResponse, error) {
	id, err := parseID(paymentID, "payment_id")
	if err != nil {
		return nil, err
	}

	var payment *entity.Payment
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		var booking *entity.Booking
		payment, booking, err = s.lockPayment(ctx, id)
		if err != nil {
			return err
		}
		if !payment.CanTransition(entity.PaymentStatusRefunded) {
			return apperror.InvalidState("Only completed payments can be refunded, payment is %s", payment.Status)
		}

		if payment.Method == entity.PaymentMethodPayPal {
			refund, err := s.refundCapture(ctx, payment)
			if err != nil {
				return err
			}
			payment.ProviderResponse = mergeProviderResponse(payment.ProviderResponse, refund.Raw)
		}

		now := s.now()
		payment.Status = entity.PaymentStatusRefunded
		payment.UpdatedAt = now
		if err := s.repo.Payment.Update(ctx, payment); err != nil {
			return err
		}

		reason := entity.ReasonPaymentRefunded
		canceledBy := actor.ID
		booking.Status = entity.BookingStatusCanceled
		booking.CancellationReason = &reason
		booking.CanceledBy = &canceledBy
		booking.UpdatedAt = now
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment refunded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("admin_id", actor.ID.String()))
	metrics.IncPaymentOutcome(string(payment.Method), string(payment.Status))
	metrics.IncBookingTransition(string(entity.BookingStatusCanceled))
	publish(ctx, s.pub, s.log, EventPaymentRefunded, newPaymentEvent(payment, payment.UpdatedAt))

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

func (s *paymentService) refundCapture(ctx context.Context, payment *entity.Payment) (*paypal.Refund, error) {
	if payment.CaptureID == nil || *payment.CaptureID == "" {
		return nil, apperror.InvalidState("Payment has no capture to refund")
	}
	if s.provider == nil {
		return nil, apperror.Provider(errProviderDisabled, "PayPal is not available")
	}

	refund, err := s.provider.RefundCapture(ctx, *payment.CaptureID, s.converter.ToSettlement(payment.Amount), s.converter.Settlement)
	if err != nil {
		return nil, apperror.Provider(err, "Could not refund PayPal capture")
	}
	return refund, nil
}

// mergeProviderResponse keeps the capture payload next to the refund one.
func mergeProviderResponse(capture, refund json.RawMessage) json.RawMessage {
	merged, err := json.Marshal(map[string]json.RawMessage{
		"capture": nullIfEmpty(capture),
		"refund":  nullIfEmpty(refund),
	})
	if err != nil {
		return refund
	}
	return merged
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func (s *paymentService) GetPayment(ctx context.Context, actor Actor, paymentID string) (*response.PaymentResponse, error) {
	id, err := parseID(paymentID, "payment_id")
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.NotFound("Payment not found")
	}
	if !actor.IsAdmin() && payment.UserID != actor.ID {
		return nil, apperror.Unauthorized("You cannot view this payment")
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}
