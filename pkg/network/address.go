package network

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
)

type Address string

func (a *Address) Port() (int, error) {
	if len(string(*a)) == 0 {
		return 0, errors.New("no address")
	}
	parts := strings.Split(string(*a), ":")
	var port string
	if len(parts) == 1 {
		port = parts[0]
	} else {
		port = parts[len(parts)-1]
	}
	if val, err := strconv.Atoi(port); err == nil {
		return val, nil
	}
	return 0, errors.New("port is not a number")
}

// WsURL builds a websocket URL for the endpoint path on host:port.
// An empty host means localhost.
func WsURL(host string, port int, path string, secure bool) url.URL {
	if host == "" {
		host = "localhost"
	}
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(port)), Path: path}
}
