package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/models"
)

const (
	minHolderLen = 3
	cardDigits   = 16
	minCVVLen    = 3
)

var (
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// Payment is the data entered at checkout. Nothing is charged; Validate
// only checks the shape of the input.
type Payment interface {
	Method() models.PaymentMethod
	Validate() error
}

type PixPayment struct {
	Confirmed bool
}

func (PixPayment) Method() models.PaymentMethod { return models.PaymentPix }

func (p PixPayment) Validate() error {
	if !p.Confirmed {
		return fmt.Errorf("pix payment not confirmed: %w", common.ErrInvalidInput)
	}
	return nil
}

type CardPayment struct {
	Holder string
	Number string
	Expiry string
	CVV    string
}

func (CardPayment) Method() models.PaymentMethod { return models.PaymentCard }

func (p CardPayment) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(p.Holder)) < minHolderLen {
		return fmt.Errorf("card holder must have at least %d characters: %w", minHolderLen, common.ErrInvalidInput)
	}

	number := strings.ReplaceAll(p.Number, " ", "")
	if len(number) != cardDigits || !digitsPattern.MatchString(number) {
		return fmt.Errorf("card number must have %d digits: %w", cardDigits, common.ErrInvalidInput)
	}

	if !expiryPattern.MatchString(strings.TrimSpace(p.Expiry)) {
		return fmt.Errorf("expiry must look like MM/YY: %w", common.ErrInvalidInput)
	}

	cvv := strings.TrimSpace(p.CVV)
	if len(cvv) < minCVVLen || !digitsPattern.MatchString(cvv) {
		return fmt.Errorf("cvv must have at least %d digits: %w", minCVVLen, common.ErrInvalidInput)
	}
	return nil
}
