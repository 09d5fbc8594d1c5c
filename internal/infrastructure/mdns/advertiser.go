package mdns

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/nerrad567/gray-logic-can/internal/infrastructure/config"
)

// DNS-SD names.
const (
	ServiceType = "_graylogic-can._tcp"
	Domain      = "local."
)

// ErrInvalidPort is returned when the advertised port is outside 1-65535.
var ErrInvalidPort = errors.New("mdns: invalid port")

// Info is published in the TXT record.
type Info struct {
	Version  string
	Database string
	Bus      string
	Snapshot string
}

// Advertiser holds a live DNS-SD registration.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// Advertise registers the API service and keeps answering queries until
// Shutdown is called.
func Advertise(cfg config.MDNSConfig, port int, info Info) (*Advertiser, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	ifaces, err := interfaces(cfg.Interface)
	if err != nil {
		return nil, err
	}

	server, err := zeroconf.Register(
		cfg.Instance,
		ServiceType,
		Domain,
		port,
		txtRecords(info),
		ifaces,
	)
	if err != nil {
		return nil, fmt.Errorf("registering mdns service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Update replaces the TXT record after the service loads a new snapshot.
func (a *Advertiser) Update(info Info) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.SetText(txtRecords(info))
	}
}

// Shutdown withdraws the registration. Safe to call multiple times.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// txtRecords renders info as sorted key=value strings, omitting empty values.
func txtRecords(info Info) []string {
	fields := map[string]string{
		"path":     "/api/v1",
		"version":  info.Version,
		"database": info.Database,
		"bus":      info.Bus,
		"snapshot": info.Snapshot,
	}
	out := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != "" {
			out = append(out, k+"="+v)
		}
	}
	sort.Strings(out)
	return out
}

// interfaces resolves the configured interface name. Nil means all.
func interfaces(name string) ([]net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("mdns interface %q: %w", name, err)
	}
	return []net.Interface{*iface}, nil
}
