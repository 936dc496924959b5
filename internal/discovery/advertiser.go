// Package discovery advertises and finds interaction endpoints on the local
// network over mDNS.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service advertised for interaction endpoints.
const ServiceType = "_interactions._tcp"

// Metadata holds the TXT record fields for the service.
type Metadata struct {
	Path    string // interactions path, e.g. "/interactions"
	AppID   string // application client id
	Version string
}

// TXT renders the metadata as key=value records.
func (m Metadata) TXT() []string {
	txt := []string{
		fmt.Sprintf("path=%s", m.Path),
		fmt.Sprintf("version=%s", m.Version),
	}
	if m.AppID != "" {
		txt = append(txt, fmt.Sprintf("app=%s", m.AppID))
	}
	return txt
}

// Config holds configuration for the mDNS advertiser.
type Config struct {
	InstanceName string
	Port         int
	// Iface restricts advertisement to one interface name.
	Iface  string
	Meta   Metadata
	Logger *slog.Logger
}

// Advertiser manages the mDNS service registration.
type Advertiser struct {
	servers []*mdns.Server
	cfg     Config
	logger  *slog.Logger
}

// NewAdvertiser creates a new advertiser with the given config.
func NewAdvertiser(cfg Config) (*Advertiser, error) {
	if cfg.InstanceName == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("port must be > 0")
	}
	if cfg.Meta.Path == "" {
		cfg.Meta.Path = "/interactions"
	}
	if cfg.Iface == "" {
		cfg.Iface = strings.TrimSpace(os.Getenv("INTERACTIONS_MDNS_IFACE"))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Advertiser{cfg: cfg, logger: logger}, nil
}

// Start begins advertising on every multicast-capable interface. It returns
// immediately; the mdns servers answer queries in the background.
func (a *Advertiser) Start() error {
	service, err := mdns.NewMDNSService(
		a.cfg.InstanceName,
		ServiceType,
		"",
		"",
		a.cfg.Port,
		nil, // all interface addresses
		a.cfg.Meta.TXT(),
	)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}

	var servers []*mdns.Server
	for _, iface := range ifaces {
		if a.cfg.Iface != "" && iface.Name != a.cfg.Iface {
			continue
		}
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagMulticast) == 0 {
			continue
		}

		server, err := mdns.NewServer(&mdns.Config{Zone: service, Iface: &iface})
		if err != nil {
			a.logger.Warn("mdns interface bind failed", "iface", iface.Name, "error", err)
			continue
		}
		a.logger.Debug("mdns interface bound", "iface", iface.Name)
		servers = append(servers, server)
	}

	if len(servers) == 0 && a.cfg.Iface == "" {
		server, err := mdns.NewServer(&mdns.Config{Zone: service})
		if err != nil {
			return fmt.Errorf("start mdns server: %w", err)
		}
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		return fmt.Errorf("no mdns interfaces bound (filter=%q)", a.cfg.Iface)
	}

	a.servers = servers
	a.logger.Info("advertising over mdns", "service", ServiceType, "instance", a.cfg.InstanceName, "port", a.cfg.Port)
	return nil
}

// Stop shuts down the mDNS advertisement.
func (a *Advertiser) Stop() error {
	var firstErr error
	for _, server := range a.servers {
		if server == nil {
			continue
		}
		if err := server.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.servers = nil
	return firstErr
}
