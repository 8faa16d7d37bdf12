package booking

import "veilslot/utils"

// Sentinels returned (wrapped) by the orchestrator; compare with errors.Is.
var (
	ErrSlotUnavailable        = utils.NewError(utils.KindConflict, "slot unavailable")
	ErrBuyerNotLinked         = utils.NewError(utils.KindDependencyMissing, "buyer profile not linked")
	ErrBookingNotFound        = utils.NewError(utils.KindNotFound, "booking not found")
	ErrReconciliationRequired = utils.NewError(utils.KindUnavailable, "booking failed after the slot was reserved; manual reconciliation required")
	ErrRequestInFlight        = utils.NewError(utils.KindConflict, "a request with this idempotency key is still in progress")
	ErrIdempotencyMismatch    = utils.NewError(utils.KindConflict, "idempotency key was already used for a different request")
)

func wrap(sentinel *utils.AppError, cause error) error {
	return &utils.AppError{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}
