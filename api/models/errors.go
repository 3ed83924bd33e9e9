package models

import "errors"

var (
	ErrTicketNotFound  = errors.New("download request not found")
	ErrNotApproved     = errors.New("download request is not approved")
	ErrTicketMismatch  = errors.New("download request was issued for another file")
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
	ErrAlreadyDecided  = errors.New("download request was already decided")
)
