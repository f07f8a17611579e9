// Package process launches the pre-start program configured by
// auto_migrate_bin.
//
// The program is started and forgotten: serverkit never waits on it,
// never observes its exit status, and keeps serving whether it succeeds
// or not. Only a failure to launch is reported.
package process
