package push

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/model"
)

func TestParseSetupArgs_Valid(t *testing.T) {
	a, err := ParseSetupArgs("protocol=udp,port=9099,instance=bob,sip=10.0.0.1/node.mem.**")
	require.NoError(t, err)
	require.Equal(t, Args{
		Protocol: "udp",
		Port:     9099,
		Instance: "bob",
		TargetIP: "10.0.0.1",
		Filter:   []string{"node", "mem", "**"},
	}, a)
}

func TestParseSetupArgs_NoFilter(t *testing.T) {
	a, err := ParseSetupArgs("protocol=tcp,port=2003,instance=relay,sip=192.168.0.7")
	require.NoError(t, err)
	require.Equal(t, "tcp", a.Protocol)
	require.Nil(t, a.Filter)
}

func TestParseSetupArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		wantMsg string
	}{
		{"empty", "", errs.ErrInvalidArgument, "empty argument"},
		{"missing_protocol", "port=9099,instance=bob,sip=10.0.0.1", errs.ErrInvalidArgument, "protocol"},
		{"missing_port", "protocol=udp,instance=bob,sip=10.0.0.1", errs.ErrInvalidArgument, "port"},
		{"missing_instance", "protocol=udp,port=9099,sip=10.0.0.1", errs.ErrInvalidArgument, "instance"},
		{"missing_sip", "protocol=udp,port=9099,instance=bob", errs.ErrInvalidArgument, "sip"},
		{"http_refused", "protocol=http,port=80,instance=bob,sip=10.0.0.1", errs.ErrUnsupportedProtocol, "http"},
		{"bogus_protocol", "protocol=smoke,port=80,instance=bob,sip=10.0.0.1", errs.ErrInvalidArgument, "protocol"},
		{"bad_port", "protocol=udp,port=banana,instance=bob,sip=10.0.0.1", errs.ErrInvalidArgument, "port"},
		{"port_out_of_range", "protocol=udp,port=70000,instance=bob,sip=10.0.0.1", errs.ErrInvalidArgument, "port"},
		{"bad_ip", "protocol=udp,port=9099,instance=bob,sip=nowhere", errs.ErrInvalidArgument, "sip"},
		{"unknown_field", "protocol=udp,port=9099,instance=bob,sip=10.0.0.1,color=red", errs.ErrInvalidArgument, "color"},
		{"malformed_pair", "protocol=udp,port", errs.ErrInvalidArgument, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSetupArgs(tt.raw)
			require.ErrorIs(t, err, tt.wantErr)
			require.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseMatchArgs_WildcardsByOmission(t *testing.T) {
	a, err := ParseMatchArgs("instance=bob")
	require.NoError(t, err)
	require.Equal(t, Wildcard, a.Protocol)
	require.Equal(t, "bob", a.Instance)
	require.Equal(t, Wildcard, a.TargetIP)
	require.Zero(t, a.Port)
}

func TestParseMatchArgs_ExplicitWildcards(t *testing.T) {
	a, err := ParseMatchArgs("protocol=*,port=*,instance=*,sip=*")
	require.NoError(t, err)
	require.Equal(t, Wildcard, a.Protocol)
	require.Equal(t, Wildcard, a.Instance)
	require.Equal(t, Wildcard, a.TargetIP)
	require.Zero(t, a.Port)
}

func TestParseMatchArgs_StillValidatesProtocol(t *testing.T) {
	_, err := ParseMatchArgs("protocol=http")
	require.ErrorIs(t, err, errs.ErrUnsupportedProtocol)

	_, err = ParseMatchArgs("")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestArgsMatches(t *testing.T) {
	record := model.Push{Protocol: "udp", Instance: "bob", Port: 9099, TargetIP: "10.0.0.1"}

	tests := []struct {
		name string
		args Args
		want bool
	}{
		{"all_wildcards", Args{Protocol: Wildcard, Instance: Wildcard, TargetIP: Wildcard}, true},
		{"exact", Args{Protocol: "udp", Instance: "bob", Port: 9099, TargetIP: "10.0.0.1"}, true},
		{"wrong_protocol", Args{Protocol: "tcp", Instance: Wildcard, TargetIP: Wildcard}, false},
		{"wrong_instance", Args{Protocol: Wildcard, Instance: "alice", TargetIP: Wildcard}, false},
		{"wrong_port", Args{Protocol: Wildcard, Instance: Wildcard, Port: 1234, TargetIP: Wildcard}, false},
		{"wrong_ip", Args{Protocol: Wildcard, Instance: Wildcard, TargetIP: "10.0.0.2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.args.Matches(&record))
		})
	}
}
