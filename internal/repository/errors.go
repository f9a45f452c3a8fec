package repository

import "errors"

var (
	ErrCampNotFound      = errors.New("camp not found")
	ErrPersonNotFound    = errors.New("person not found")
	ErrBedNotFound       = errors.New("bed not found")
	ErrRequestNotFound   = errors.New("transfer request not found")
	ErrBedStatusConflict = errors.New("bed status conflict")
)
