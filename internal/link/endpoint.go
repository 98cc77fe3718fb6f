package link

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPort        = 81
	DefaultPath        = "/"
	DefaultSubprotocol = "arduino"
)

// Endpoint is the address of the device's WebSocket server.
type Endpoint struct {
	Host        string
	Port        int
	Path        string
	Subprotocol string
}

// NewEndpoint returns the endpoint for host with the device defaults.
func NewEndpoint(host string) Endpoint {
	return Endpoint{
		Host:        host,
		Port:        DefaultPort,
		Path:        DefaultPath,
		Subprotocol: DefaultSubprotocol,
	}
}

func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("host is required")
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("port %d out of range", e.Port)
	}
	if e.Subprotocol == "" {
		return fmt.Errorf("subprotocol is required")
	}
	return nil
}

func (e Endpoint) URL() string {
	path := e.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(e.Host, strconv.Itoa(e.Port)),
		Path:   path,
	}
	return u.String()
}
