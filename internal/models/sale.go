package models

import (
	"math"
	"strconv"
	"time"
)

type PaymentMethod string

const (
	PaymentPix  PaymentMethod = "PIX"
	PaymentCard PaymentMethod = "CARTÃO DE CRÉDITO"
)

const SaleCompleted = "completed"

type Sale struct {
	ID            string        `json:"id"`
	AccountID     string        `json:"userId"`
	CourseIDs     []int         `json:"courseIds"`
	TotalAmount   float64       `json:"totalAmount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Status        string        `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (s Sale) RecordID() string { return s.ID }

// PendingCheckout is the journal written before a checkout commits. It
// holds everything needed to finish the checkout after a crash.
type PendingCheckout struct {
	Sale      Sale      `json:"sale"`
	StartedAt time.Time `json:"startedAt"`
}

// Cents converts an amount to integer cents, rounding half away from zero.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to an amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

func itoa(n int) string { return strconv.Itoa(n) }
