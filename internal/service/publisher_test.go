package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/tvshow-catalog/internal/queue"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishGivesUpOnSilentBroker(t *testing.T) {
	p := NewAMQPPublisher(silentBroker(t), "", zap.NewNop())
	defer p.Close()

	start := time.Now()
	err := p.Publish(context.Background(), queue.NewShowEvent(queue.ShowImported, 1, 2, "Lost", time.Now()))
	require.Error(t, err)
	assert.Less(t, time.Since(start), dialTimeout+5*time.Second)
}
