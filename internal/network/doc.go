// Package network holds low-level socket helpers for the gateway's
// REST API listener.
package network
