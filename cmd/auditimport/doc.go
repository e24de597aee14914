// Command auditimport attaches uploaded audit letter PDFs to the records
// named in their file names.
//
// The import command scans <upload_dir>/<letters_subdir>/<year>/, matches
// each <identifier>_<label>.pdf file to a published record, registers the
// file as a media asset, and prepends an entry to the record's audit letters
// field. With --watch it stays running and imports letters as they arrive.
// serve exposes the same run behind an operator form.
package main
