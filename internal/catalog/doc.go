// Package catalog is a self-contained record store backed by SQLite.
//
// It models the subset of a content store the importer needs: categorized
// records with key/value metadata, a JSON-encoded repeater field per record,
// and an asset table that stands in for a media library. Store satisfies
// both letters.RecordStore and letters.MediaImporter, which makes it the
// backend of choice for tests, dry rehearsals, and installs without a CMS.
package catalog
