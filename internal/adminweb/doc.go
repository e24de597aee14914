// Package adminweb serves the operator form that triggers an import run.
//
// GET renders the form with an anti-forgery token and instructions naming
// the letters directory and the default year label. POST verifies the
// token and the optional submission rate limit, runs the importer under the
// batch lock, and renders one line per candidate file. Every request is
// authorized before any processing.
package adminweb
