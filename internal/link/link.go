// Package link reports the state of the network link beneath the broker
// session.
package link

// Link is the network association layer.
type Link interface {
	// Begin starts (re)association. It does not wait for the link.
	Begin()

	// IsUp reports whether the link is associated and has an address.
	IsUp() bool

	// Info describes the link for logs and status output.
	Info() Info
}

// Info describes the current link.
type Info struct {
	Interface string
	IP        string
	Up        bool
}

// DefaultInterface is the wireless interface on a Raspberry Pi.
const DefaultInterface = "wlan0"
