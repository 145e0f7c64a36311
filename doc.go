// Package fixedpool offers a fixed-size worker(goroutine) pool draining one shared FIFO queue,
// with a blocking, join-guaranteed shutdown and a small "pipeline" helper on top of it.
package fixedpool
