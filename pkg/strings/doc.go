// Package strings holds small text helpers shared by the command line
// output and backend error reporting.
package strings
