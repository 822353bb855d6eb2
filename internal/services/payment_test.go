package services

import (
	"testing"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPixPayment(t *testing.T) {
	assert.Equal(t, models.PaymentPix, PixPayment{}.Method())
	assert.ErrorIs(t, PixPayment{}.Validate(), common.ErrInvalidInput)
	assert.NoError(t, PixPayment{Confirmed: true}.Validate())
}

func TestCardPayment_Validate(t *testing.T) {
	valid := CardPayment{Holder: "ANA SILVA", Number: "4111 1111 1111 1111", Expiry: "12/27", CVV: "123"}

	tests := []struct {
		name    string
		mutate  func(*CardPayment)
		wantErr bool
	}{
		{name: "valid", mutate: func(*CardPayment) {}},
		{name: "four digit cvv", mutate: func(p *CardPayment) { p.CVV = "1234" }},
		{name: "number without spaces", mutate: func(p *CardPayment) { p.Number = "4111111111111111" }},
		{name: "short holder", mutate: func(p *CardPayment) { p.Holder = " AB " }, wantErr: true},
		{name: "short number", mutate: func(p *CardPayment) { p.Number = "4111 1111 1111 111" }, wantErr: true},
		{name: "letters in number", mutate: func(p *CardPayment) { p.Number = "4111 1111 1111 111x" }, wantErr: true},
		{name: "bad expiry", mutate: func(p *CardPayment) { p.Expiry = "1227" }, wantErr: true},
		{name: "short cvv", mutate: func(p *CardPayment) { p.CVV = "12" }, wantErr: true},
		{name: "letters in cvv", mutate: func(p *CardPayment) { p.CVV = "12a" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, models.PaymentCard, valid.Method())
}
