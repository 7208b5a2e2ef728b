// Package api serves the local status surface: health, session stats, a
// live event stream, and Prometheus metrics. It binds to loopback by
// default and carries no credentials; anything that can reach the socket
// can read it.
package api
