package domain

import (
	"errors"
	"fmt"
)

// ViolationCode - машиночитаемый код нарушения бизнес-правила
type ViolationCode string

const (
	CodeRequiredName         ViolationCode = "REQUIRED_NAME"
	CodeRequiredOrganization ViolationCode = "REQUIRED_ORGANIZATION"
	CodeRequiredType         ViolationCode = "REQUIRED_TYPE"
	CodeRequiredSegment      ViolationCode = "REQUIRED_SEGMENT"
	CodeInvalidValue         ViolationCode = "INVALID_VALUE"
	CodeNameTooLong          ViolationCode = "NAME_TOO_LONG"
	CodeInvalidCloseDate     ViolationCode = "INVALID_CLOSE_DATE"
	CodeInvalidStage         ViolationCode = "INVALID_STAGE"
	CodeInvalidStatus        ViolationCode = "INVALID_STATUS"
	CodeInvalidContext       ViolationCode = "INVALID_CONTEXT"
	CodeDuplicateName        ViolationCode = "DUPLICATE_NAME"
	CodeInvalidType          ViolationCode = "INVALID_TYPE"
	CodeInvalidPriority      ViolationCode = "INVALID_PRIORITY"
	CodeInvalidEmail         ViolationCode = "INVALID_EMAIL"
	CodeInvalidPhone         ViolationCode = "INVALID_PHONE"
	CodeInvalidPrincipal     ViolationCode = "INVALID_PRINCIPAL_FLAG"
	CodeInvalidDistributor   ViolationCode = "INVALID_DISTRIBUTOR_FLAG"
	CodeIncompleteAddress    ViolationCode = "INCOMPLETE_ADDRESS"
	CodeDescriptionTooLong   ViolationCode = "DESCRIPTION_TOO_LONG"
	CodeNotesTooLong         ViolationCode = "NOTES_TOO_LONG"
	CodeSegmentTooLong       ViolationCode = "SEGMENT_TOO_LONG"
)

// BusinessRuleViolation - структурированная ошибка валидатора
type BusinessRuleViolation struct {
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

func NewViolation(code ViolationCode, format string, args ...any) *BusinessRuleViolation {
	return &BusinessRuleViolation{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (v *BusinessRuleViolation) Error() string {
	return v.Message
}

// AsViolation достает BusinessRuleViolation из цепочки ошибок
func AsViolation(err error) (*BusinessRuleViolation, bool) {
	var v *BusinessRuleViolation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
