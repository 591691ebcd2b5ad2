package download

import (
	"context"
	"net"
	"net/http"
	"time"
)

// addressFamily selects which IP family an attempt is pinned to. fastdl hosts
// with broken AAAA records are common enough that a failed attempt on the
// unrestricted dialer is retried pinned to IPv4, then IPv6.
type addressFamily string

const (
	familyDefault addressFamily = "tcp"
	familyIPv4    addressFamily = "tcp4"
	familyIPv6    addressFamily = "tcp6"
)

// familySequence is the order attempts walk through; it repeats for attempts
// beyond its length.
var familySequence = []addressFamily{familyDefault, familyIPv4, familyIPv6}

// familyForAttempt returns the address family for a zero-based attempt number.
func familyForAttempt(attempt int) addressFamily {
	return familySequence[attempt%len(familySequence)]
}

// clientSet holds one HTTP client per address family so that transports and
// their connection pools are built once and shared across workers.
type clientSet struct {
	clients map[addressFamily]*http.Client
}

func newClientSet() *clientSet {
	set := &clientSet{clients: make(map[addressFamily]*http.Client, len(familySequence))}
	for _, fam := range familySequence {
		set.clients[fam] = newFamilyClient(fam)
	}
	return set
}

func (s *clientSet) forFamily(fam addressFamily) *http.Client {
	return s.clients[fam]
}

// newFamilyClient builds a client whose dialer is pinned to the given network.
// No client-level timeout is set; attempts are bounded by a per-attempt context.
func newFamilyClient(fam addressFamily) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, string(fam), addr)
		},
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: transport}
}
