package common

import "fmt"

var (
	ErrInvalidInstallDir = fmt.Errorf("install dir is missing or does not exist")
	ErrNoEnabledSources  = fmt.Errorf("no enabled sources")
	ErrRunAlreadyActive  = fmt.Errorf("a run is already active")
)
