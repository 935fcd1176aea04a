package setting

import (
	"context"

	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

var ErrUnknownSetting = serrors.NewError("UNKNOWN_SETTING", "unknown setting", "Settings.Unknown")

// Key is a system setting name together with the value used when nothing is stored.
type Key struct {
	Name    string
	Default string
}

var (
	KeyCalendar      = Key{Name: "keyCalendar", Default: "iso8601"}
	KeyDateFormat    = Key{Name: "keyDateFormat", Default: "yyyy-MM-dd"}
	KeyCacheStrategy = Key{Name: "keyCacheStrategy", Default: "CACHE_6AM_TOMORROW"}
	KeyUiLocale      = Key{Name: "keyUiLocale", Default: "en"}
)

func Keys() []Key {
	return []Key{KeyCalendar, KeyDateFormat, KeyCacheStrategy, KeyUiLocale}
}

func Lookup(name string) (Key, bool) {
	for _, k := range Keys() {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// Changed is published after a setting is saved or deleted.
type Changed struct {
	Key     Key
	Value   string
	Deleted bool
}

type Repository interface {
	// Get returns the stored value and whether one exists.
	Get(ctx context.Context, name string) (string, bool, error)
	GetAll(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}
