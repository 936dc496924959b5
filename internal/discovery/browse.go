package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// Endpoint is one advertised interactions endpoint.
type Endpoint struct {
	Instance string
	Host     string
	Addr     net.IP
	Port     int
	Meta     Metadata
}

// URL returns the http URL of the endpoint.
func (e Endpoint) URL() string {
	host := e.Host
	if e.Addr != nil {
		host = e.Addr.String()
	}
	return "http://" + net.JoinHostPort(strings.TrimSuffix(host, "."), strconv.Itoa(e.Port)) + e.Meta.Path
}

// Browse queries the local network for advertised endpoints for up to
// timeout, or until ctx is done, whichever is sooner.
func Browse(ctx context.Context, timeout time.Duration) ([]Endpoint, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, ctx.Err()
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	collected := make(chan []Endpoint, 1)
	go func() {
		seen := map[string]bool{}
		var out []Endpoint
		for e := range entries {
			ep := fromEntry(e)
			if seen[ep.Instance] {
				continue
			}
			seen[ep.Instance] = true
			out = append(out, ep)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
		collected <- out
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	})
	close(entries)
	out := <-collected
	if err != nil {
		return out, fmt.Errorf("mdns query: %w", err)
	}
	return out, nil
}

func fromEntry(e *mdns.ServiceEntry) Endpoint {
	ep := Endpoint{
		Instance: instanceName(e.Name),
		Host:     e.Host,
		Addr:     e.AddrV4,
		Port:     e.Port,
	}
	ep.Meta = parseTXT(e.InfoFields)
	return ep
}

// instanceName strips the service suffix from a fully qualified name.
func instanceName(name string) string {
	if i := strings.Index(name, "."+ServiceType); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, `\ `, " ")
}

func parseTXT(fields []string) Metadata {
	var m Metadata
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch k {
		case "path":
			m.Path = v
		case "app":
			m.AppID = v
		case "version":
			m.Version = v
		}
	}
	return m
}
