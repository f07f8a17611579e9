// Package portwatch resolves a listening port published through a file.
//
// Another process (a supervisor, a test harness, a port allocator) writes
// the port as plain text; Watch returns the first value that parses as an
// unsigned 16-bit integer and stops watching.
package portwatch
