package sharing

import (
	"strings"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/usergroup"
)

// Access is an eight character access string. Position 0 and 1 hold metadata
// read/write, 2 and 3 hold data read/write, the rest is reserved.
type Access string

const (
	AccessDefault Access = "--------"
	AccessLength         = 8
)

const (
	posRead = iota
	posWrite
	posDataRead
	posDataWrite
)

func NewAccess(read, write, dataRead, dataWrite bool) Access {
	b := []byte(AccessDefault)
	if read {
		b[posRead] = 'r'
	}
	if write {
		b[posWrite] = 'w'
	}
	if dataRead {
		b[posDataRead] = 'r'
	}
	if dataWrite {
		b[posDataWrite] = 'w'
	}
	return Access(b)
}

// ParseAccess normalises a stored access string; malformed values grant nothing.
func ParseAccess(s string) Access {
	s = strings.TrimSpace(s)
	if len(s) != AccessLength {
		return AccessDefault
	}
	return Access(s)
}

func (a Access) enabled(pos int, flag byte) bool {
	return len(a) == AccessLength && a[pos] == flag
}

func (a Access) CanRead() bool      { return a.enabled(posRead, 'r') }
func (a Access) CanWrite() bool     { return a.enabled(posWrite, 'w') }
func (a Access) CanDataRead() bool  { return a.enabled(posDataRead, 'r') }
func (a Access) CanDataWrite() bool { return a.enabled(posDataWrite, 'w') }

type UserAccess struct {
	ID      int64
	Access  Access
	UserID  int64
	UserUID string
}

type UserGroupAccess struct {
	ID     int64
	Access Access
	Group  *usergroup.UserGroup
}

type Sharing struct {
	PublicAccess Access
	// Owner is the UID of the user who created the object, if known.
	Owner      string
	Users      []UserAccess
	UserGroups []UserGroupAccess
}

// Shareable is implemented by every entity carrying sharing settings.
type Shareable interface {
	GetUID() string
	GetSharing() *Sharing
}
