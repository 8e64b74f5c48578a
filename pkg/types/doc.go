// Package types defines the book record, the catalog configuration, and the
// standard errors shared by the storage, service, and presentation layers.
package types
