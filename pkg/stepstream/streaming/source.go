package streaming

import (
	"context"
	"io"
)

// ChannelSource adapts a fragment channel to ports.FragmentSource.
// The producer closes the channel to signal end of stream.
type ChannelSource struct {
	ch <-chan string
}

// NewChannelSource wraps a fragment channel.
func NewChannelSource(ch <-chan string) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Next blocks for the next fragment; io.EOF once the channel closes.
func (c *ChannelSource) Next(ctx context.Context) (string, error) {
	select {
	case fragment, ok := <-c.ch:
		if !ok {
			return "", io.EOF
		}

		return fragment, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
