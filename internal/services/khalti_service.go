package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const paymentFailedFallback = "Payment verification failed"

var minorUnitsPerMajor = decimal.NewFromInt(100)

// PaymentVerification is the gateway's confirmation of a payment token.
type PaymentVerification struct {
	TransactionID    string
	AmountMinorUnits int64
}

// PaymentError is the single failure kind surfaced by payment verification.
type PaymentError struct {
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// KhaltiService verifies Khalti payment tokens.
type KhaltiService struct {
	client    *resty.Client
	verifyURL string
	secretKey string
}

// NewKhaltiService constructs a KhaltiService with its own HTTP client.
func NewKhaltiService(verifyURL, secretKey string, timeout time.Duration) *KhaltiService {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &KhaltiService{
		client:    client,
		verifyURL: verifyURL,
		secretKey: secretKey,
	}
}

type khaltiVerifyRequest struct {
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

type khaltiVerifyResponse struct {
	Idx    string `json:"idx"`
	Amount int64  `json:"amount"`
}

type khaltiErrorResponse struct {
	Detail string `json:"detail"`
}

// Verify confirms that token pays amountMinorUnits (paisa). It is called once;
// retries are left to the caller.
func (s *KhaltiService) Verify(ctx context.Context, token string, amountMinorUnits int64) (*PaymentVerification, error) {
	var (
		result  khaltiVerifyResponse
		failure khaltiErrorResponse
	)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Key "+s.secretKey).
		SetBody(khaltiVerifyRequest{Token: token, Amount: amountMinorUnits}).
		SetResult(&result).
		SetError(&failure).
		Post(s.verifyURL)
	if err != nil {
		return nil, &PaymentError{Message: paymentFailedFallback, Err: fmt.Errorf("khalti verify request: %w", err)}
	}

	if resp.IsError() {
		msg := failure.Detail
		if msg == "" {
			msg = paymentFailedFallback
		}
		return nil, &PaymentError{Message: msg, Err: fmt.Errorf("khalti verify: status %d", resp.StatusCode())}
	}

	return &PaymentVerification{
		TransactionID:    result.Idx,
		AmountMinorUnits: result.Amount,
	}, nil
}

// ToMinorUnits converts a major currency amount (rupees) into minor units (paisa).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// FromMinorUnits converts paisa back into rupees.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorUnitsPerMajor)
}
