package types

import (
	"errors"
	"fmt"
)

// StatusCode is the outcome code recorded for every transaction.
type StatusCode uint64

const (
	StatusExecuted StatusCode = 4001

	// Validation: transaction rejected before execution.
	StatusInvalidSignature                     StatusCode = 1
	StatusMalformed                            StatusCode = 2
	StatusInsufficientBalanceForTransactionFee StatusCode = 5
	StatusTransactionExpired                   StatusCode = 6

	// Verification and linking.
	StatusVerificationError         StatusCode = 1001
	StatusLinkerError               StatusCode = 1002
	StatusFunctionNotFound          StatusCode = 1003
	StatusNumberOfArgumentsMismatch StatusCode = 1004
	StatusTypeMismatch              StatusCode = 1005
	StatusCodeDeserializationError  StatusCode = 3001

	// Invariant violations: bugs in the trusted pipeline.
	StatusUnknownInvariantViolation StatusCode = 2000
	StatusUnreachable               StatusCode = 2001
	StatusStorageError              StatusCode = 2002

	// Runtime failures raised by executing code.
	StatusOutOfGas               StatusCode = 4002
	StatusAborted                StatusCode = 4003
	StatusArithmeticError        StatusCode = 4004
	StatusMissingData            StatusCode = 4005
	StatusResourceAlreadyExists  StatusCode = 4006
	StatusCallStackOverflow      StatusCode = 4007
	StatusExecutionStackOverflow StatusCode = 4008
)

var statusNames = map[StatusCode]string{
	StatusExecuted:                             "EXECUTED",
	StatusInvalidSignature:                     "INVALID_SIGNATURE",
	StatusTransactionExpired:                   "TRANSACTION_EXPIRED",
	StatusInsufficientBalanceForTransactionFee: "INSUFFICIENT_BALANCE_FOR_TRANSACTION_FEE",
	StatusMalformed:                            "MALFORMED",
	StatusVerificationError:                    "VERIFICATION_ERROR",
	StatusLinkerError:                          "LINKER_ERROR",
	StatusFunctionNotFound:                     "FUNCTION_NOT_FOUND",
	StatusNumberOfArgumentsMismatch:            "NUMBER_OF_ARGUMENTS_MISMATCH",
	StatusTypeMismatch:                         "TYPE_MISMATCH",
	StatusCodeDeserializationError:             "CODE_DESERIALIZATION_ERROR",
	StatusUnknownInvariantViolation:            "UNKNOWN_INVARIANT_VIOLATION",
	StatusUnreachable:                          "UNREACHABLE",
	StatusStorageError:                         "STORAGE_ERROR",
	StatusOutOfGas:                             "OUT_OF_GAS",
	StatusAborted:                              "ABORTED",
	StatusArithmeticError:                      "ARITHMETIC_ERROR",
	StatusMissingData:                          "MISSING_DATA",
	StatusResourceAlreadyExists:                "RESOURCE_ALREADY_EXISTS",
	StatusCallStackOverflow:                    "CALL_STACK_OVERFLOW",
	StatusExecutionStackOverflow:               "EXECUTION_STACK_OVERFLOW",
}

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_STATUS(%d)", uint64(c))
}

// IsInvariantViolation reports whether c signals a defect in the trusted
// pipeline rather than a property of the transaction.
func (c StatusCode) IsInvariantViolation() bool {
	return c >= 2000 && c < 3000
}

// VMStatus is a status code plus optional detail. It is the error type
// returned by every execution-path failure.
type VMStatus struct {
	Code      StatusCode
	SubStatus *uint64
	Message   string
}

// NewVMStatus returns a VMStatus with code and no detail.
func NewVMStatus(code StatusCode) *VMStatus {
	return &VMStatus{Code: code}
}

// WithSubStatus returns a copy of s carrying sub, e.g. an abort code.
func (s *VMStatus) WithSubStatus(sub uint64) *VMStatus {
	cp := *s
	cp.SubStatus = &sub
	return &cp
}

// WithMessage returns a copy of s carrying a formatted message.
func (s *VMStatus) WithMessage(format string, args ...interface{}) *VMStatus {
	cp := *s
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func (s *VMStatus) Error() string {
	out := s.Code.String()
	if s.SubStatus != nil {
		out += fmt.Sprintf(" (sub-status %d)", *s.SubStatus)
	}
	if s.Message != "" {
		out += ": " + s.Message
	}
	return out
}

// Is matches any VMStatus with the same code, so
// errors.Is(err, NewVMStatus(StatusOutOfGas)) works on wrapped chains.
func (s *VMStatus) Is(target error) bool {
	var t *VMStatus
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == s.Code
}

// StatusOf extracts the VMStatus from err. Errors that carry none map to
// UNKNOWN_INVARIANT_VIOLATION with the error text as message; nil maps to
// EXECUTED.
func StatusOf(err error) *VMStatus {
	if err == nil {
		return NewVMStatus(StatusExecuted)
	}
	var s *VMStatus
	if errors.As(err, &s) {
		return s
	}
	return NewVMStatus(StatusUnknownInvariantViolation).WithMessage("%v", err)
}
