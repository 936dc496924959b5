package admin

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		entry     string
		wantID    string
		wantAllow bool
		wantErr   bool
	}{
		{entry: "123", wantID: "123", wantAllow: true},
		{entry: "123:allow", wantID: "123", wantAllow: true},
		{entry: "123:DENY", wantID: "123", wantAllow: false},
		{entry: " 123:false ", wantID: "123", wantAllow: false},
		{entry: ":allow", wantErr: true},
		{entry: "123:maybe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			p, err := ParsePermission(discordgo.ApplicationCommandPermissionTypeRole, tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
			assert.Equal(t, tt.wantAllow, p.Permission)
			assert.Equal(t, discordgo.ApplicationCommandPermissionTypeRole, p.Type)
		})
	}
}

func TestParsePermissions(t *testing.T) {
	perms, err := ParsePermissions([]string{"r1:allow"}, []string{"u1:deny"}, []string{"c1"})
	require.NoError(t, err)
	require.Len(t, perms, 3)
	assert.Equal(t, discordgo.ApplicationCommandPermissionTypeRole, perms[0].Type)
	assert.Equal(t, discordgo.ApplicationCommandPermissionTypeUser, perms[1].Type)
	assert.False(t, perms[1].Permission)
	assert.Equal(t, discordgo.ApplicationCommandPermissionTypeChannel, perms[2].Type)

	assert.Equal(t, "role r1:allow", FormatPermission(perms[0]))
	assert.Equal(t, "user u1:deny", FormatPermission(perms[1]))
	assert.Equal(t, "channel c1:allow", FormatPermission(perms[2]))

	_, err = ParsePermissions(nil, []string{"bad:x"}, nil)
	assert.Error(t, err)
}
