// Package homework holds the homework-review domain: the status catalog,
// the response validator, the status parser and the error taxonomy shared by
// the poll loop and its collaborators.
package homework
