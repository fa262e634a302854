// Package services defines the shared error markers and failure
// classification used by the external tool clients under this directory.
package services
