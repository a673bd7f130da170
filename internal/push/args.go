package push

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/model"
)

// Wildcard marks a field that matches anything in setdown/introspection args.
const Wildcard = "*"

// Args is the sanitized form of an operator's key=value argument blob:
//
//	protocol=udp,port=9099,instance=bob,sip=10.0.0.1/a.b.**
//
// The part after "/" is the optional counter-name filter. In match mode,
// omitted fields are wildcards; Port 0 means "any port".
type Args struct {
	Protocol string
	Port     int
	Instance string
	TargetIP string
	Filter   []string
}

// ParseSetupArgs parses a setup blob. Every field except the filter is
// required; each missing field reports its own name so no partial worker is
// ever started on guesswork.
func ParseSetupArgs(raw string) (Args, error) {
	a, err := parse(raw)
	if err != nil {
		return Args{}, err
	}

	if a.Protocol == "" || a.Protocol == Wildcard {
		return Args{}, missingField("protocol")
	}
	if err := checkProtocol(a.Protocol); err != nil {
		return Args{}, err
	}
	if a.Port == 0 {
		return Args{}, missingField("port")
	}
	if a.Instance == "" || a.Instance == Wildcard {
		return Args{}, missingField("instance")
	}
	if a.TargetIP == "" || a.TargetIP == Wildcard {
		return Args{}, missingField("sip")
	}
	return a, nil
}

// ParseMatchArgs parses a setdown/introspection blob. Fields may be omitted
// or "*" to wildcard them; a bound protocol is still validated.
func ParseMatchArgs(raw string) (Args, error) {
	a, err := parse(raw)
	if err != nil {
		return Args{}, err
	}
	if a.Protocol == "" {
		a.Protocol = Wildcard
	}
	if a.Protocol != Wildcard {
		if err := checkProtocol(a.Protocol); err != nil {
			return Args{}, err
		}
	}
	if a.Instance == "" {
		a.Instance = Wildcard
	}
	if a.TargetIP == "" {
		a.TargetIP = Wildcard
	}
	return a, nil
}

// Matches reports whether a push record satisfies every bound field.
func (a Args) Matches(p *model.Push) bool {
	if a.Protocol != Wildcard && a.Protocol != p.Protocol {
		return false
	}
	if a.Instance != Wildcard && a.Instance != p.Instance {
		return false
	}
	if a.Port != 0 && a.Port != p.Port {
		return false
	}
	if a.TargetIP != Wildcard && a.TargetIP != p.TargetIP {
		return false
	}
	return true
}

func parse(raw string) (Args, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Args{}, fmt.Errorf("empty argument: %w", errs.ErrInvalidArgument)
	}

	var a Args
	kvPart := raw
	if i := strings.Index(raw, "/"); i >= 0 {
		kvPart = raw[:i]
		a.Filter = model.SplitName(strings.TrimSpace(raw[i+1:]))
	}

	for _, pair := range strings.Split(kvPart, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || v == "" {
			return Args{}, fmt.Errorf("malformed pair %q: %w", pair, errs.ErrInvalidArgument)
		}
		switch k {
		case "protocol":
			a.Protocol = v
		case "port":
			if v == Wildcard {
				continue
			}
			port, err := strconv.Atoi(v)
			if err != nil || port < 1 || port > 65535 {
				return Args{}, fmt.Errorf("invalid port %q: %w", v, errs.ErrInvalidArgument)
			}
			a.Port = port
		case "instance":
			a.Instance = v
		case "sip":
			if v != Wildcard && net.ParseIP(v) == nil {
				return Args{}, fmt.Errorf("invalid sip %q: %w", v, errs.ErrInvalidArgument)
			}
			a.TargetIP = v
		default:
			return Args{}, fmt.Errorf("unknown field %q: %w", k, errs.ErrInvalidArgument)
		}
	}
	return a, nil
}

func checkProtocol(p string) error {
	if p == "http" {
		return fmt.Errorf("http: %w", errs.ErrUnsupportedProtocol)
	}
	if !model.ValidProtocol(p) {
		return fmt.Errorf("invalid protocol %q: %w", p, errs.ErrInvalidArgument)
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("missing required field %q: %w", name, errs.ErrInvalidArgument)
}
