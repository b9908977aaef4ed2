// Package model defines the core domain models used throughout the application.
package model

// Region is an administrative area under analysis. Regions are seeded once
// from reference data and are read-only to the collection pipeline.
type Region struct {
	AdmCode  string // stable external identifier, first 8 digits of the MOIS code
	Province string
	District string
	Town     string
	ID       int64
}

// Category is a business category under analysis.
type Category struct {
	Name         string
	ExternalCode string // upstream registry classification code (indsSclsCd), may be empty
	ID           int64
}

// PopulationRecord holds the floating-population figures for one
// administrative area. Built once per run from the Seoul open-data API and
// held in memory; never persisted.
type PopulationRecord struct {
	DominantAgeBracket string
	Total              int
	Male               int
	Female             int
}
