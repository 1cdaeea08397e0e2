package domain

import "errors"

var (
	ErrSectionNotFound      = errors.New("section not found")
	ErrSnapshotNotFound     = errors.New("snapshot not found")
	ErrInvalidDate          = errors.New("invalid date, want YYYY-MM-DD")
	ErrInvalidAssetType     = errors.New("invalid asset type")
	ErrNegativeAmount       = errors.New("shares must not be negative")
	ErrFieldNotApplicable   = errors.New("field does not apply to this asset type")
	ErrConfirmationRequired = errors.New("confirmation required for destructive action")
	ErrRefreshInProgress    = errors.New("price refresh already in progress for section")
	ErrInvalidImport        = errors.New("invalid import file")
)
