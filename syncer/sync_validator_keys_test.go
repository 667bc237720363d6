package syncer

import (
	"testing"

	"github.com/validatorops/keysync/testing/assert"
	"github.com/validatorops/keysync/testing/require"
)

func TestValidatorIndexFromHostname(t *testing.T) {
	tests := []struct {
		hostname string
		want     int
		wantErr  bool
	}{
		{hostname: "validators-0", want: 0},
		{hostname: "validators-12", want: 12},
		{hostname: "validators-2.validators.eth.svc.cluster.local", want: 2},
		{hostname: "prod-lighthouse-validators-7", want: 7},
		{hostname: "validators", wantErr: true},
		{hostname: "validators-abc", wantErr: true},
		{hostname: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			index, err := validatorIndexFromHostname(tt.hostname)
			if tt.wantErr {
				require.ErrorContains(t, "could not derive validator index", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, index)
		})
	}
}
