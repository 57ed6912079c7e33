// Package connection owns the queue-manager connection of a factory and the
// queue handles opened through it.
//
// A Manager holds one connection and three handle caches: queues opened for
// sending, queues opened for receiving and dynamic queues created from a
// model template. Connecting happens lazily on first use. Destroy closes
// every cached handle and disconnects; the next operation reconnects.
package connection
