// Package beanport converts proprietary financial export files (broker
// flex-query XML, bank CSV and JSON exports) into normalized double-entry
// records for a plain-text accounting ledger.
//
// The root package holds the shared vocabulary: exact decimal Money and
// Quantity values, the normalized Row every importer parses into, the Record
// shapes (Transaction, Balance) every importer emits, the Holdings cost-basis
// lookup, and the ledger text encoder. Each institution lives in its own
// sub-package (ibkr, revolut, yuh, viseca, viac) behind the Importer
// interface.
package beanport
