// Package rabbitmq implements the mq transport over AMQP 0-9-1.
//
// The queue manager name selects the virtual host. Queues are addressed
// through the default exchange, so a JMS destination maps onto the AMQP
// queue of the same name. Opening a model queue declares a server-named
// exclusive queue that is deleted when its creating handle closes.
// Descriptor fields without an AMQP property travel as x-mq-* headers.
package rabbitmq
