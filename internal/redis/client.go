package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// CallKey is the redis key holding the call record for a room.
func CallKey(roomName string) string {
	return "call:" + roomName
}

// CallIndexKey maps a platform call id back to its room name.
func CallIndexKey(callID string) string {
	return "callid:" + callID
}

// EventKey marks a webhook event id as seen.
func EventKey(eventID string) string {
	return "event:" + eventID
}

// DispatchKey guards the once-per-room agent dispatch.
func DispatchKey(roomName string) string {
	return "dispatched:" + roomName
}
