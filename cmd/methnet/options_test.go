package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/methnet/pkg/types"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    types.FailurePolicy
		wantErr bool
	}{
		{"", types.PolicyAbort, false},
		{"abort", types.PolicyAbort, false},
		{" Skip ", types.PolicySkip, false},
		{"retry", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"data", "net", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}
