// Package internal holds helpers that are private to goJWT.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
package internal
