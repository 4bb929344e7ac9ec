// Package mq provides the in-process message queues that connect watchpost
// workers.
//
// A Queue is unbounded and strictly FIFO. Producers never block. Polling
// consumers use TryReceive so they can interleave their cancellation checks;
// the log funnel is the only consumer that parks on Receive. Traffic is event
// rate (roughly one item per minute per queue), so no capacity bound or
// back-pressure is applied.
package mq
