package domain

import "fmt"

// SubmissionStep identifies which remote write a submission error came from.
type SubmissionStep string

const (
	StepInsertSale  SubmissionStep = "insert_sale"
	StepAdjustStock SubmissionStep = "adjust_stock"
	StepAppendAudit SubmissionStep = "append_audit"
)

// PersistenceError means the local queue could not be read or written. Fatal
// to the triggering operation: the caller keeps its cart and retries.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("local queue %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SubmissionError means a remote write was rejected or the remote was
// unreachable before any stock decrement applied. Retryable on the next
// drain cycle.
type SubmissionError struct {
	Step SubmissionStep
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("remote submission %s: %v", e.Step, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PartialSubmissionError means the sale rows inserted but a stock decrement
// failed partway through the line items. Applied decrements are not rolled
// back; retrying the record may duplicate the sale insert.
type PartialSubmissionError struct {
	SaleID  string
	Applied []CartLine
	Failed  CartLine
	Err     error
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf("sale %s partially applied: %d decrements done, failed on product %s: %v",
		e.SaleID, len(e.Applied), e.Failed.ProductID, e.Err)
}

func (e *PartialSubmissionError) Unwrap() error { return e.Err }
