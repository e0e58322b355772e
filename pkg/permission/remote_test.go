package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelToRemote(t *testing.T) {
	// Owner has no counterpart in the external vocabulary and degrades to
	// READ_WRITE when translated outward.
	assert.Equal(t, RemoteReadWrite, Owner.Remote())
	assert.Equal(t, RemoteReadWrite, ReadWrite.Remote())
	assert.Equal(t, RemoteRead, ReadOnly.Remote())
	assert.Equal(t, RemoteNone, None.Remote())
	assert.Equal(t, RemoteNone, Level(0).Remote())
}

func TestParseRemote(t *testing.T) {
	assert.Equal(t, RemoteReadWrite, ParseRemote("READ_WRITE"))
	assert.Equal(t, RemoteRead, ParseRemote("READ"))
	assert.Equal(t, RemoteNone, ParseRemote("NONE"))
	assert.Equal(t, RemoteNone, ParseRemote(""))
	assert.Equal(t, RemoteNone, ParseRemote("EXECUTE"))
	assert.Equal(t, RemoteRead, ParseRemote("read"))
}

func TestRemoteExpands(t *testing.T) {
	assert.True(t, RemoteReadWrite.Expands(RemoteRead))
	assert.True(t, RemoteReadWrite.Expands(RemoteNone))
	assert.True(t, RemoteRead.Expands(RemoteNone))

	// Equal or narrower permissions are never pushed.
	assert.False(t, RemoteReadWrite.Expands(RemoteReadWrite))
	assert.False(t, RemoteRead.Expands(RemoteRead))
	assert.False(t, RemoteRead.Expands(RemoteReadWrite))
	assert.False(t, RemoteNone.Expands(RemoteRead))
	assert.False(t, RemoteNone.Expands(RemoteNone))
}
