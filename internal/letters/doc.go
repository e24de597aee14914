// Package letters implements the audit letter import pipeline.
//
// A run lists candidate PDFs in the upload directory, matches each file to a
// record through the identifier before the first underscore, registers the
// file with a MediaImporter, and prepends an Entry to the record's audit
// letters field through a RecordStore. Files are processed one at a time and
// a failure on one file never stops the rest of the batch; every candidate
// yields exactly one Outcome.
//
// The package owns no storage or process execution of its own. Backends live
// in internal/catalog (SQLite) and internal/services/wpcli (WordPress).
package letters
