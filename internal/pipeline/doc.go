// Package pipeline runs a scan session: the capture loop that turns camera
// frames into records and the writer that delivers them. The session owns
// both goroutines and coordinates a cooperative shutdown in which no
// accepted record is silently lost.
package pipeline
