// Package jms is a JMS-style messaging bridge over an MQ transport.
//
// A ConnectionFactory sends and receives text messages whose JMS headers
// and user properties travel in an RFH2 header prepended to the payload,
// so that Java JMS peers on the same queue manager see ordinary JMS
// messages. The transport itself is pluggable through the mq package:
//
//	broker := memory.NewBroker("QM1", memory.WithQueues("ORDERS"))
//	factory, err := jms.NewConnectionFactory(broker,
//		jms.WithQueueManager("QM1"),
//		jms.WithChannel("DEV.APP.SVRCONN"),
//		jms.WithListener("localhost", 1414),
//	)
//	if err != nil {
//		return err
//	}
//	defer factory.Destroy()
//
//	msg := contracts.NewTextMessage("hello")
//	err = factory.Send(ctx, msg, "queue:///ORDERS")
//
// Connections are opened lazily and queue handles are cached per factory.
// Destroy releases everything; the factory reconnects on the next call.
package jms
