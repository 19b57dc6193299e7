// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing snapshots, traces and workers. They
// are not intended for production usage.
package testutil
