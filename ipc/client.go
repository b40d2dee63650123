package ipc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client is the host end of an established duplex channel pair.
type Client struct {
	requests *SendChannel
	replies  *ReceiveChannel
}

// Dial performs the host side of the bootstrap: it connects to the worker's
// channel, sends Start, then a Sender message naming a reply channel the
// host owns, and waits for the worker to connect back to it.
func Dial(ctx context.Context, name string) (*Client, error) {
	requests, err := Connect(ctx, name)
	if err != nil {
		return nil, err
	}

	replyServer, err := NewOneShotServer()
	if err != nil {
		requests.Close()
		return nil, fmt.Errorf("reply channel: %w", err)
	}
	defer replyServer.Close()

	if err := requests.Send(Start()); err != nil {
		requests.Close()
		return nil, err
	}
	if err := requests.Send(Sender(replyServer.Name())); err != nil {
		requests.Close()
		return nil, err
	}

	replies, err := replyServer.Accept(ctx)
	if err != nil {
		requests.Close()
		return nil, fmt.Errorf("reply channel: %w", err)
	}
	return &Client{requests: requests, replies: replies}, nil
}

// Send writes one request.
func (c *Client) Send(m Message) error {
	return c.requests.Send(m)
}

// Recv reads one reply, bounded by timeout (zero waits forever).
func (c *Client) Recv(timeout time.Duration) (Message, error) {
	return c.replies.RecvTimeout(timeout)
}

// Close sends End and closes both channels. The End is best-effort: the
// worker may already be gone.
func (c *Client) Close() error {
	_ = c.requests.Send(End())
	return errors.Join(c.requests.Close(), c.replies.Close())
}
