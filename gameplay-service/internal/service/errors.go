package service

import "errors"

var (
	// ErrNoBuildAvailable means neither the character nor the build table has a
	// sheet to export.
	ErrNoBuildAvailable = errors.New("no exportable build for this character")
	// ErrProgressMissing is returned by Choose when the progress record is gone;
	// the client recovers by initializing the adventure again.
	ErrProgressMissing = errors.New("adventure progress is missing, initialize the adventure again")
)
