package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityRef_String(t *testing.T) {
	assert.Equal(t, "job_42", JobRef("42").String())
	assert.Equal(t, "user_u_7", UserRef("u_7").String())
}

func TestParseEntityRef(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityRef
		wantErr bool
	}{
		{in: "job_42", want: JobRef("42")},
		{in: "user_u_7", want: UserRef("u_7")},
		{in: "42", wantErr: true},
		{in: "job_", wantErr: true},
		{in: "resume_1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntityRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
