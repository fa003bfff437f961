// Package api renders engine results for HTTP transports: the bearer token
// payload returned by sign in and refresh, and RFC 9457 problem documents
// for failures.
//
// Failures that could reveal whether an account or token exists are mapped
// to uniform titles and details; only validation errors carry field detail.
package api
