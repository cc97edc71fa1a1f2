package request

type CardDetails struct {
	Number     string `json:"card_number" validate:"required,min=13,max=23"`
	HolderName string `json:"card_holder" validate:"required,max=100"`
	Expiry     string `json:"expiry" validate:"required,len=5"`
	CVV        string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

type InitiatePaymentRequest struct {
	BookingID string       `json:"booking_id" validate:"required,uuid"`
	Method    string       `json:"payment_method" validate:"required,oneof=credit_card paypal cash"`
	Card      *CardDetails `json:"card_details,omitempty" validate:"required_if=Method credit_card"`
}
