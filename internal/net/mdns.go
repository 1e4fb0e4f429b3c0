package net

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	serviceType = "_canvasboard._tcp"

	DefaultDiscoveryTimeout = 2 * time.Second
)

// ErrNoRelay is returned when no relay answers on the local network.
var ErrNoRelay = errors.New("no relay found on the local network")

// Discover browses the local network for a relay advertising the board
// service and returns the websocket endpoint of the first one that answers.
func Discover(timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if endpoint, ok := endpointFor(e.AddrV4, e.Port); ok {
				select {
				case found <- endpoint:
				default:
				}
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return "", fmt.Errorf("mdns query for %s failed: %w", serviceType, err)
	}

	select {
	case endpoint := <-found:
		return endpoint, nil
	default:
		return "", ErrNoRelay
	}
}

// endpointFor skips entries without a usable IPv4 address or port.
func endpointFor(addr net.IP, port int) (string, bool) {
	if addr == nil || addr.To4() == nil || port == 0 {
		return "", false
	}
	return fmt.Sprintf("ws://%s:%d", addr.To4().String(), port), true
}
