package link

import (
	"net"

	"github.com/rs/zerolog"
)

// Interface checks an OS network interface. Association itself is owned by
// the OS (wpa_supplicant / NetworkManager); Begin only records the attempt.
type Interface struct {
	name   string
	log    zerolog.Logger
	lookup func(name string) (*net.Interface, error)
	addrs  func(ifi *net.Interface) ([]net.Addr, error)
}

// NewInterface returns a Link backed by the named OS interface.
func NewInterface(name string, log zerolog.Logger) *Interface {
	return &Interface{
		name:   name,
		log:    log,
		lookup: net.InterfaceByName,
		addrs:  func(ifi *net.Interface) ([]net.Addr, error) { return ifi.Addrs() },
	}
}

// Begin logs the association attempt.
func (i *Interface) Begin() {
	i.log.Info().Str("interface", i.name).Msg("waiting for network link")
}

// IsUp reports whether the interface is up, running and holds an IPv4
// address.
func (i *Interface) IsUp() bool {
	return i.Info().Up
}

// Info returns the interface name, first IPv4 address and link state.
func (i *Interface) Info() Info {
	info := Info{Interface: i.name}
	ifi, err := i.lookup(i.name)
	if err != nil {
		return info
	}
	if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagRunning == 0 {
		return info
	}
	addrs, err := i.addrs(ifi)
	if err != nil {
		return info
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
			info.IP = ip4.String()
			info.Up = true
			return info
		}
	}
	return info
}
