// Package enode knows how to parse and mask the enode URLs a node and its
// peers advertise. The parser is deliberately lenient about the node key so
// every address reported over the admin RPC can be recorded, even ones the
// wire protocol itself would reject.
package enode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// scheme is the URL scheme every enode address starts with.
const scheme = "enode://"

// maskToken replaces the final octet of a masked dotted host.
const maskToken = "xxx"

// ErrInvalidURL is returned when a peer address can't be parsed. Callers are
// expected to drop the entry, not fail the batch.
var ErrInvalidURL = errors.New("invalid enode URL")

// URL represents the pieces of a parsed enode address.
type URL struct {
	ID    string
	Host  string
	Port  uint16
	Query string
}

// String re-renders the URL in its canonical form.
func (u URL) String() string {
	host := u.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s%s@%s:%d%s", scheme, u.ID, host, u.Port, u.Query)
}

// Parse breaks an enode URL of the form enode://id@host:port[?query] into
// its parts. The host may be a bracketed IPv6 literal.
func Parse(s string) (URL, error) {
	if !strings.HasPrefix(s, scheme) {
		return URL{}, fmt.Errorf("%w: missing scheme: %q", ErrInvalidURL, s)
	}

	at := strings.Index(s, "@")
	if at == -1 {
		return URL{}, fmt.Errorf("%w: missing node id separator: %q", ErrInvalidURL, s)
	}

	id := s[len(scheme):at]
	rest := s[at+1:]

	var query string
	if qi := strings.Index(rest, "?"); qi >= 0 {
		query = rest[qi:]
		rest = rest[:qi]
	}

	var host, portStr string
	switch {
	case strings.HasPrefix(rest, "["):
		end := strings.Index(rest, "]")
		if end == -1 {
			return URL{}, fmt.Errorf("%w: unclosed host bracket: %q", ErrInvalidURL, s)
		}
		host = rest[1:end]
		after := rest[end+1:]
		if !strings.HasPrefix(after, ":") {
			return URL{}, fmt.Errorf("%w: missing port: %q", ErrInvalidURL, s)
		}
		portStr = after[1:]

	default:
		lc := strings.LastIndex(rest, ":")
		if lc == -1 {
			return URL{}, fmt.Errorf("%w: missing port: %q", ErrInvalidURL, s)
		}
		host = rest[:lc]
		portStr = rest[lc+1:]
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return URL{}, fmt.Errorf("%w: bad port %q: %q", ErrInvalidURL, portStr, s)
	}

	if id == "" || host == "" {
		return URL{}, fmt.Errorf("%w: empty node id or host: %q", ErrInvalidURL, s)
	}

	return URL{ID: id, Host: host, Port: uint16(port), Query: query}, nil
}

// MaskHost redacts a host for display. A 4-part dotted literal keeps its
// first three octets, a colon-delimited literal keeps its first three groups.
// Anything else passes through unchanged. Masking is idempotent.
func MaskHost(host string) string {
	if strings.Contains(host, ".") {
		parts := strings.Split(host, ".")
		if len(parts) == 4 {
			parts[3] = maskToken
			return strings.Join(parts, ".")
		}
	}

	if strings.Contains(host, ":") {
		var groups []string
		for _, g := range strings.Split(host, ":") {
			if g != "" {
				groups = append(groups, g)
			}
		}
		if len(groups) >= 2 {
			if len(groups) > 3 {
				groups = groups[:3]
			}
			return strings.Join(groups, ":") + "::"
		}
	}

	return host
}

// MaskURL re-renders a full enode URL with its host masked. The scheme, node
// id, port and query are preserved verbatim. Unparseable input is returned
// unchanged.
func MaskURL(s string) string {
	u, err := Parse(s)
	if err != nil {
		return s
	}
	u.Host = MaskHost(u.Host)
	return u.String()
}

// MaskAddr masks a bare "host:port" transport address such as the remote
// address of a live connection.
func MaskAddr(addr string) string {
	if addr == "" {
		return addr
	}

	if strings.HasPrefix(addr, "[") {
		if end := strings.Index(addr, "]"); end > -1 {
			return "[" + MaskHost(addr[1:end]) + "]" + addr[end+1:]
		}
	}

	if lc := strings.LastIndex(addr, ":"); lc > -1 && strings.Contains(addr, ".") {
		return MaskHost(addr[:lc]) + addr[lc:]
	}

	return MaskHost(addr)
}
