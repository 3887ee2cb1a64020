package domain

import "time"

var modifiableStatuses = map[Status]bool{
	StatusDraft: true,
	StatusSent:  true,
}

var cancellableStatuses = map[Status]bool{
	StatusDraft: true,
	StatusSent:  true,
}

// IsExpired reports whether the validity date has passed. Accepted quotes
// never expire.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.Status != StatusAccepted && now.After(q.ValidUntil)
}

// CanBeModified reports whether header fields and lines may still change.
func (q *Quote) CanBeModified() bool {
	return modifiableStatuses[q.Status]
}

// CanBeDeleted reports whether the quote may be removed.
func (q *Quote) CanBeDeleted() bool {
	return q.Status == StatusDraft
}

// ShouldExpire reports whether the sweeper must flip the quote to expired.
func (q *Quote) ShouldExpire(now time.Time) bool {
	return q.Status == StatusSent && q.ValidUntil.Before(now)
}

// Send moves a draft to sent. The caller checks the quote has lines.
func (q *Quote) Send(now time.Time) error {
	if q.Status != StatusDraft {
		return invalidTransition(msgOnlyDraftCanBeSent)
	}
	q.Status = StatusSent
	q.UpdatedAt = now
	return nil
}

// Accept records client acceptance of a sent, unexpired quote.
func (q *Quote) Accept(now time.Time, comments *string) error {
	if q.Status != StatusSent || q.IsExpired(now) {
		return invalidTransition(msgCannotAccept)
	}
	q.Status = StatusAccepted
	q.AcceptedAt = &now
	q.ClientComments = comments
	q.UpdatedAt = now
	return nil
}

// Reject records client refusal of a sent, unexpired quote.
func (q *Quote) Reject(now time.Time, comments *string) error {
	if q.Status != StatusSent || q.IsExpired(now) {
		return invalidTransition(msgCannotReject)
	}
	q.Status = StatusRejected
	q.RejectedAt = &now
	q.ClientComments = comments
	q.UpdatedAt = now
	return nil
}

// Cancel withdraws a draft or sent quote.
func (q *Quote) Cancel(now time.Time) error {
	if !cancellableStatuses[q.Status] {
		return invalidTransition(msgCannotCancel)
	}
	q.Status = StatusCancelled
	q.UpdatedAt = now
	return nil
}

// Expire flips a sent quote whose validity date has passed.
func (q *Quote) Expire(now time.Time) error {
	if !q.ShouldExpire(now) {
		return invalidTransition(msgCannotExpire)
	}
	q.Status = StatusExpired
	q.UpdatedAt = now
	return nil
}
