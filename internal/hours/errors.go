package hours

import "errors"

var (
	// ErrInvalidRule is returned when an exception rule's payload or bounds are inconsistent.
	ErrInvalidRule = errors.New("invalid exception rule")

	// ErrUnknownRuleType is returned for a rule_type outside the supported set.
	ErrUnknownRuleType = errors.New("unknown exception rule type")
)
