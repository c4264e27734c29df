package service

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Address is a parsed listen prefix such as http://localhost:8080/mcp/.
type Address struct {
	// Host is the host as written. "+" and "*" bind every interface.
	Host string
	// Port 0 binds an ephemeral port.
	Port int
	// Path always begins and ends with "/".
	Path string
}

// ParseAddress parses an http URI prefix.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}, errors.New("address is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", raw, err)
	}
	if !strings.EqualFold(u.Scheme, "http") {
		return Address{}, fmt.Errorf("address %q: unsupported scheme %q", raw, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return Address{}, fmt.Errorf("address %q: host is required", raw)
	}
	portText := u.Port()
	if portText == "" {
		return Address{}, fmt.Errorf("address %q: port is required", raw)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("address %q: port %q out of range", raw, portText)
	}

	path := u.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return Address{Host: host, Port: port, Path: path}, nil
}

// ListenAddr returns the host:port handed to net.Listen.
func (a Address) ListenAddr() string {
	host := a.Host
	if host == "+" || host == "*" {
		host = ""
	}
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

// WithPort returns a copy of a bound to port.
func (a Address) WithPort(port int) Address {
	a.Port = port
	return a
}

// String renders the address as a URI prefix.
func (a Address) String() string {
	if a.Host == "" {
		return ""
	}
	return "http://" + net.JoinHostPort(a.Host, strconv.Itoa(a.Port)) + a.Path
}
