// Package services provides shared error classification and context
// plumbing used across pipeline components.
package services
