// Package bridge provides synchronous request-reply over JMS queues.
//
// A Requestor creates a dynamic reply queue for each request, stamps it as
// the request's reply-to, sends the request and waits for the message
// whose correlation id equals the request's message id. Sends go through a
// circuit breaker and are retried on transient transport failures.
//
//	requestor := bridge.NewRequestor(factory)
//	reply, err := requestor.Request(ctx, contracts.NewTextMessage("ping"), "queue:///SERVICE.Q", 5*time.Second)
//
// Reply answers such a request on the service side:
//
//	err := bridge.Reply(ctx, factory, request, contracts.NewTextMessage("pong"))
package bridge
