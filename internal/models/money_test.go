package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"250.50", nil},
		{"0.01", nil},
		{"1", nil},
		{"9999999999.99", nil},
		{"2.500", nil}, // trailing zero is still two places
		{"0", ErrAmountNotPositive},
		{"-5.00", ErrAmountNotPositive},
		{"0.001", ErrAmountPrecision},
		{"10.555", ErrAmountPrecision},
		{"10000000000.00", ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.in))
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 250.5 ")
	require.NoError(t, err)
	assert.Equal(t, "250.50", FormatAmount(d))

	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestAccount_DebitCreditKeepExactDecimals(t *testing.T) {
	a := Account{Balance: decimal.RequireFromString("0.30")}
	for i := 0; i < 3; i++ {
		a.Debit(decimal.RequireFromString("0.10"))
	}
	assert.True(t, a.Balance.IsZero(), "got %s", a.Balance)

	a.Credit(decimal.RequireFromString("0.1"))
	assert.True(t, a.CanCover(decimal.RequireFromString("0.10")))
	assert.False(t, a.CanCover(decimal.RequireFromString("0.11")))
}

func TestTransaction_Validate(t *testing.T) {
	ok := Transaction{
		SenderAccountID:   "a",
		ReceiverAccountID: "b",
		Amount:            decimal.RequireFromString("1.00"),
		Currency:          "USD",
		Status:            TxnPending,
	}
	require.NoError(t, ok.Validate())

	self := ok
	self.ReceiverAccountID = "a"
	assert.Error(t, self.Validate())

	status := ok
	status.Status = "settled"
	assert.Error(t, status.Validate())

	wide := ok
	d := strings.Repeat("é", MaxDescriptionLen)
	wide.Description = &d
	assert.NoError(t, wide.Validate())
	long := d + "é"
	wide.Description = &long
	assert.Error(t, wide.Validate())
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice_01", NormalizeUsername("  Alice_01 "))
	assert.True(t, ValidUsername("alice_01"))
	assert.False(t, ValidUsername("al"))
	assert.False(t, ValidUsername("alice-01"))
}
