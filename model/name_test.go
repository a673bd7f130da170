package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchName(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		target  string
		want    bool
	}{
		{"empty_pattern_matches_all", "", "a.b.c", true},
		{"exact", "a.b.c", "a.b.c", true},
		{"exact_mismatch", "a.b.c", "a.b.d", false},
		{"shorter_target", "a.b.c", "a.b", false},
		{"longer_target", "a.b", "a.b.c", false},
		{"single_wildcard", "a.*.c", "a.b.c", true},
		{"single_wildcard_mismatch_len", "a.*", "a.b.c", false},
		{"tail_wildcard", "a.**", "a.b.c", true},
		{"tail_wildcard_zero_segments", "a.b.c.**", "a.b.c", true},
		{"tail_wildcard_wrong_head", "b.**", "a.b.c", false},
		{"only_tail", "**", "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchName(SplitName(tt.pattern), SplitName(tt.target))
			require.Equal(t, tt.want, got)
		})
	}
}

func TestJoinSplitName(t *testing.T) {
	require.Equal(t, "a.b.c", JoinName([]string{"a", "b", "c"}))
	require.Equal(t, []string{"a", "b", "c"}, SplitName("a.b.c"))
	require.Nil(t, SplitName(""))
}

func TestOptionsStatus(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		want   Status
		wantOk bool
	}{
		{"enabled", Options{StatusOption: "enabled"}, StatusEnabled, true},
		{"disabled", Options{StatusOption: "disabled"}, StatusDisabled, true},
		{"absent", Options{"other": "x"}, "", false},
		{"garbage", Options{StatusOption: "sideways"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.opts.Status()
			require.Equal(t, tt.wantOk, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
