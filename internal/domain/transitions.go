package domain

import "time"

// Transition methods are the only way an order changes status. Each
// method validates the current status first and leaves the order
// untouched when the transition is illegal. Persisting the result is
// the caller's job; Version is bumped by the repository on commit.

// MarkPaid applies a successful payment authorization. Applying it to
// an already-paid order is a no-op: duplicate provider callbacks must
// not shift PaidAt or PaymentID.
func (o *Order) MarkPaid(paymentID string, paidAt time.Time, invoiceURL string) error {
	if o.Status == OrderStatusPaid {
		return nil
	}
	if o.Status != OrderStatusPending {
		return ErrInvalidState
	}
	o.Status = OrderStatusPaid
	o.PaymentStatus = PaymentStatusPaid
	o.PaymentID = paymentID
	o.PaidAt = &paidAt
	o.InvoiceURL = invoiceURL
	o.UpdatedAt = paidAt
	return nil
}

// MarkFailed records a business decline. The order remains retryable;
// a new payment attempt re-enters pending via RetryPayment.
func (o *Order) MarkFailed(now time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrInvalidState
	}
	o.Status = OrderStatusFailed
	o.PaymentStatus = PaymentStatusFailed
	o.UpdatedAt = now
	return nil
}

// RetryPayment re-enters pending ahead of a new authorization attempt.
func (o *Order) RetryPayment(now time.Time) error {
	if o.Status != OrderStatusFailed {
		return ErrInvalidState
	}
	o.Status = OrderStatusPending
	o.PaymentStatus = PaymentStatusPending
	o.UpdatedAt = now
	return nil
}

// Cancel is only legal while pending.
func (o *Order) Cancel(now time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrInvalidState
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = now
	return nil
}

// Fulfill marks the deliverables (download grants) issued. Terminal.
func (o *Order) Fulfill(now time.Time) error {
	if o.Status != OrderStatusPaid {
		return ErrInvalidState
	}
	o.Status = OrderStatusFulfilled
	o.UpdatedAt = now
	return nil
}

// Refund is legal from paid or fulfilled. Terminal.
func (o *Order) Refund(now time.Time) error {
	if o.Status != OrderStatusPaid && o.Status != OrderStatusFulfilled {
		return ErrInvalidState
	}
	o.Status = OrderStatusRefunded
	o.PaymentStatus = PaymentStatusRefunded
	o.UpdatedAt = now
	return nil
}

// Payable reports whether a payment attempt may be started.
func (o *Order) Payable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusFailed
}

// Approve reviews a pending profile. Terminal either way.
func (p *PhotographerProfile) Approve(reviewer string, now time.Time) error {
	return p.review(ProfileStatusApproved, reviewer, now)
}

func (p *PhotographerProfile) Reject(reviewer string, now time.Time) error {
	return p.review(ProfileStatusRejected, reviewer, now)
}

func (p *PhotographerProfile) review(status ProfileStatus, reviewer string, now time.Time) error {
	if p.Status != ProfileStatusPending {
		return ErrInvalidState
	}
	p.Status = status
	p.ReviewedBy = reviewer
	p.ReviewedAt = &now
	p.UpdatedAt = now
	return nil
}
