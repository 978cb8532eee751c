package entity

// RunSummary holds the counters computed after an index pass.
// Invariant: ToDownload + AlreadyHave == AfterFilters <= RemoteUnique.
type RunSummary struct {
	RemoteUnique int
	AfterFilters int
	AlreadyHave  int
	ToDownload   int
}
