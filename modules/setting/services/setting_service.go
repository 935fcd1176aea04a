package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/hmis-dev/hmis-sdk/modules/setting/domain/setting"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/eventbus"
)

// ValidateFunc rejects values that may not be stored for a setting.
type ValidateFunc func(value string) error

// SettingService reads and writes system settings. Resolved values, stored or
// default, are cached per key until they expire or the setting changes.
type SettingService struct {
	repo       setting.Repository
	publisher  eventbus.EventBus
	cache      *ttlcache.Cache[string, string]
	mu         sync.RWMutex
	validators map[string]ValidateFunc

	// gen counts writes; a load that overlaps one is returned but not cached.
	genMu sync.Mutex
	gen   uint64
}

func NewSettingService(repo setting.Repository, publisher eventbus.EventBus, ttl time.Duration) *SettingService {
	return &SettingService{
		repo:      repo,
		publisher: publisher,
		cache: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](ttl),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
		validators: make(map[string]ValidateFunc),
	}
}

// RegisterValidator installs fn as the validator for key, replacing any previous one.
func (s *SettingService) RegisterValidator(key setting.Key, fn ValidateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators[key.Name] = fn
}

// Cache exposes the settings cache for metrics collection.
func (s *SettingService) Cache() *ttlcache.Cache[string, string] {
	return s.cache
}

// GetStringSetting returns the stored value for key or its default.
func (s *SettingService) GetStringSetting(ctx context.Context, key setting.Key) (string, error) {
	var (
		loadErr  error
		uncached *string
	)
	loader := ttlcache.LoaderFunc[string, string](
		func(c *ttlcache.Cache[string, string], name string) *ttlcache.Item[string, string] {
			gen := s.generation()
			value, ok, err := s.repo.Get(ctx, name)
			if err != nil {
				loadErr = err
				return nil
			}
			if !ok {
				value = key.Default
			}
			item := s.storeIfCurrent(gen, name, value)
			if item == nil {
				uncached = &value
			}
			return item
		},
	)
	item := s.cache.Get(key.Name, ttlcache.WithLoader[string, string](loader))
	if item == nil {
		if uncached != nil {
			return *uncached, nil
		}
		if loadErr == nil {
			loadErr = fmt.Errorf("setting %s could not be loaded", key.Name)
		}
		return "", loadErr
	}
	return item.Value(), nil
}

func (s *SettingService) generation() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen
}

func (s *SettingService) storeIfCurrent(gen uint64, name, value string) *ttlcache.Item[string, string] {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gen != gen {
		return nil
	}
	return s.cache.Set(name, value, ttlcache.DefaultTTL)
}

// forget drops the cached value of name and keeps loads already running from
// caching what they read before the write.
func (s *SettingService) forget(name string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gen++
	s.cache.Delete(name)
}

// GetSettingByName resolves name to a known key and returns its value.
func (s *SettingService) GetSettingByName(ctx context.Context, name string) (string, error) {
	key, ok := setting.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", setting.ErrUnknownSetting, name)
	}
	return s.GetStringSetting(ctx, key)
}

// GetAll returns every known setting, stored values overriding defaults.
func (s *SettingService) GetAll(ctx context.Context) (map[string]string, error) {
	stored, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(setting.Keys()))
	for _, k := range setting.Keys() {
		out[k.Name] = k.Default
		if v, ok := stored[k.Name]; ok {
			out[k.Name] = v
		}
	}
	return out, nil
}

func (s *SettingService) SaveSetting(ctx context.Context, name, value string) error {
	key, ok := setting.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", setting.ErrUnknownSetting, name)
	}
	if err := authorizeSystem(ctx, SettingsAuthzObject, "update"); err != nil {
		return err
	}
	s.mu.RLock()
	validate := s.validators[key.Name]
	s.mu.RUnlock()
	if validate != nil {
		if err := validate(value); err != nil {
			return err
		}
	}

	if err := s.repo.Save(ctx, key.Name, value); err != nil {
		return err
	}
	s.forget(key.Name)
	composables.UseLogger(ctx).WithField("component", "settings").
		WithField("key", key.Name).Info("system setting saved")
	s.publisher.Publish(&setting.Changed{Key: key, Value: value})
	return nil
}

func (s *SettingService) DeleteSetting(ctx context.Context, name string) error {
	key, ok := setting.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", setting.ErrUnknownSetting, name)
	}
	if err := authorizeSystem(ctx, SettingsAuthzObject, "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, key.Name); err != nil {
		return err
	}
	s.forget(key.Name)
	s.publisher.Publish(&setting.Changed{Key: key, Value: key.Default, Deleted: true})
	return nil
}
