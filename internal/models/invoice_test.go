package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverdueIsDerivedNotStored(t *testing.T) {
	now := time.Now().UTC()
	invoice := Invoice{
		PaymentStatus: PaymentStatusUnpaid,
		DueDate:       now.Add(-time.Hour),
	}

	assert.True(t, invoice.Overdue(now))
	assert.Equal(t, PaymentStatusOverdue, invoice.EffectiveStatus(now))
	// The stored status never flips.
	assert.Equal(t, PaymentStatusUnpaid, invoice.PaymentStatus)

	invoice.PaymentStatus = PaymentStatusPaid
	assert.False(t, invoice.Overdue(now))
	assert.Equal(t, PaymentStatusPaid, invoice.EffectiveStatus(now))

	invoice.PaymentStatus = PaymentStatusUnpaid
	invoice.DueDate = now.Add(time.Hour)
	assert.Equal(t, PaymentStatusUnpaid, invoice.EffectiveStatus(now))
}

func TestDeletionOTPLive(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, DeletionOTP{}.Live(now))
	assert.True(t, DeletionOTP{Code: "123456", ExpiresAt: &future}.Live(now))
	assert.False(t, DeletionOTP{Code: "123456", ExpiresAt: &past}.Live(now))
	assert.False(t, DeletionOTP{Code: "123456", ExpiresAt: &future, Verified: true}.Live(now))
}

func TestNormalizeRejectionReason(t *testing.T) {
	assert.Equal(t, ReasonProjectFull, NormalizeRejectionReason(ReasonProjectFull))
	assert.Equal(t, ReasonOther, NormalizeRejectionReason(""))
	assert.Equal(t, ReasonOther, NormalizeRejectionReason("made-up"))
}
