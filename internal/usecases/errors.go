package usecases

import "errors"

var (
	ErrNoReportData = errors.New("no report data for today")
	ErrAlreadySent  = errors.New("message already sent")
	ErrEmptyContent = errors.New("message content is empty")
	// ErrIncompleteProfile means the onboarding profile fields are missing or invalid
	ErrIncompleteProfile = errors.New("user profile is incomplete")
)
