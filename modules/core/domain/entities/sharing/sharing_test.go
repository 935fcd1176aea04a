package sharing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccess(t *testing.T) {
	a := ParseAccess("rwr-----")
	assert.True(t, a.CanRead())
	assert.True(t, a.CanWrite())
	assert.True(t, a.CanDataRead())
	assert.False(t, a.CanDataWrite())

	assert.Equal(t, Access("r--w----"), NewAccess(true, false, false, true))
	assert.Equal(t, AccessDefault, ParseAccess("rw"))
	assert.False(t, Access("").CanRead())
}
