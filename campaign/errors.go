package campaign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnauthorized is returned when the caller of an owner-only
	// operation is not the owner.
	ErrUnauthorized = errors.New("caller is not authorized")
	// ErrCampaignPaused is returned when the pause gate reports the
	// campaign inactive.
	ErrCampaignPaused = errors.New("campaign is paused")
	// ErrSaleClosed is returned when a contribution arrives after the
	// sale finished or entered refund settlement.
	ErrSaleClosed = errors.New("sale is closed")
	// ErrInvalidRate rejects a zero conversion rate.
	ErrInvalidRate = errors.New("conversion rate must not be zero")
	// ErrInvalidTransition rejects a stage change to a non-settable
	// stage or backward in the stage order.
	ErrInvalidTransition = errors.New("invalid stage transition")
	// ErrInvalidContribution rejects a non-positive contribution value.
	ErrInvalidContribution = errors.New("contribution value must be positive")
	// ErrHardCapExceeded means the contribution would push the total
	// raised value over the campaign hard cap.
	ErrHardCapExceeded = errors.New("hard cap exceeded")
	// ErrStageCapExceeded means the contribution would push the credits
	// sold over the active stage's ceiling.
	ErrStageCapExceeded = errors.New("stage cap exceeded")
	// ErrArithmeticOverflow means value*rate does not fit the credit
	// unit's representable range.
	ErrArithmeticOverflow = errors.New("credit amount overflow")
	// ErrCreditTransferFailed means the credit source refused the
	// transfer; the contribution is rolled back.
	ErrCreditTransferFailed = errors.New("credit transfer failed")
	// ErrValueTransferFailed means the value vault refused a transfer.
	ErrValueTransferFailed = errors.New("value transfer failed")
	// ErrTooEarly gates settlement before the stage end date.
	ErrTooEarly = errors.New("private stage has not ended yet")
	// ErrGoalNotMet gates finishing before the hard cap is raised.
	ErrGoalNotMet = errors.New("hard cap has not been raised")
)

// PartialRefundError reports refund transfers that failed during a
// settlement batch. The batch is not aborted by individual failures;
// the failed contributors stay pending and are retried on the next
// settlement call.
type PartialRefundError struct {
	Failed []common.Address
}

func (e *PartialRefundError) Error() string {
	list := make([]string, len(e.Failed))
	for i, addr := range e.Failed {
		list[i] = addr.String()
	}
	return fmt.Sprintf("refund failed for %d contributors: %s", len(e.Failed), strings.Join(list, ", "))
}

// Reason maps an error to a short stable label, used for rejection
// metrics and API responses.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrCampaignPaused):
		return "paused"
	case errors.Is(err, ErrSaleClosed):
		return "sale_closed"
	case errors.Is(err, ErrInvalidRate):
		return "invalid_rate"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidContribution):
		return "invalid_contribution"
	case errors.Is(err, ErrHardCapExceeded):
		return "hard_cap_exceeded"
	case errors.Is(err, ErrStageCapExceeded):
		return "stage_cap_exceeded"
	case errors.Is(err, ErrArithmeticOverflow):
		return "overflow"
	case errors.Is(err, ErrCreditTransferFailed):
		return "credit_transfer_failed"
	case errors.Is(err, ErrValueTransferFailed):
		return "value_transfer_failed"
	case errors.Is(err, ErrTooEarly):
		return "too_early"
	case errors.Is(err, ErrGoalNotMet):
		return "goal_not_met"
	}
	var partial *PartialRefundError
	if errors.As(err, &partial) {
		return "partial_refund"
	}
	return "internal"
}
