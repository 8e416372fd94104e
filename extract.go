package beanport

import (
	"fmt"
	"log"
	"sort"
)

// Importer converts one institution's export files into ledger records.
type Importer interface {
	// Name identifies the importer in configuration and summaries.
	Name() string
	// Identify reports whether this importer handles the given file name.
	Identify(filename string) bool
	// Account is the institution's root account, used for filing.
	Account() string
	// Extract parses the file into records. existing may be nil; when given
	// it supplies the cost-basis snapshot of previously recorded lots.
	// Extraction never fails hard on a bad row; whole-file infra failures
	// return an empty record set with a warning.
	Extract(path string, existing *Holdings) Result
}

// Result is the outcome of extracting one file: the records plus everything
// the importer could not fully resolve. Warnings are also logged as they are
// raised so batch runs stay observable.
type Result struct {
	Records  []Record
	Warnings []string
}

// Add appends records to the result.
func (r *Result) Add(records ...Record) { r.Records = append(r.Records, records...) }

// Warnf records and logs a warning.
func (r *Result) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	log.Printf("warning: %s", msg)
}

// Merge folds another result into r.
func (r *Result) Merge(other Result) {
	r.Records = append(r.Records, other.Records...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// SortRecords orders records by date, keeping the emission order of records
// sharing a day.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].When().Before(records[j].When()) })
}
