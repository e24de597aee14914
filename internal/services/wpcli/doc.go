// Package wpcli drives a WordPress install through the wp command line tool.
//
// Client implements the importer's record store and media importer on top
// of three wp subcommands: `media import --skip-copy --porcelain` to register
// a letter in place, and `eval` snippets that read published records and
// read or replace an ACF repeater field. Command execution goes through an
// injectable Executor so tests never spawn wp.
package wpcli
