// Package daemon hosts the long-running capture service.
//
// A Daemon holds an exclusive flock on <data_dir>/hearingcap.lock so only one
// instance drives a given data directory, verifies that the transcoder is
// installed, and then runs the workflow manager until stopped.
package daemon
