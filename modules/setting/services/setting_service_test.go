package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmis-dev/hmis-sdk/modules/setting/domain/setting"
	"github.com/hmis-dev/hmis-sdk/pkg/eventbus"
)

type fakeRepo struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
	getErr error
	// afterGet runs once a value has been read, outside the lock.
	afterGet func()
}

func newFakeRepo(values map[string]string) *fakeRepo {
	if values == nil {
		values = map[string]string{}
	}
	return &fakeRepo{values: values}
}

func (r *fakeRepo) Get(_ context.Context, name string) (string, bool, error) {
	r.mu.Lock()
	r.gets++
	if r.getErr != nil {
		r.mu.Unlock()
		return "", false, r.getErr
	}
	v, ok := r.values[name]
	after := r.afterGet
	r.afterGet = nil
	r.mu.Unlock()
	if after != nil {
		after()
	}
	return v, ok, nil
}

func (r *fakeRepo) GetAll(context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (r *fakeRepo) Save(_ context.Context, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = value
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, name)
	return nil
}

func newService(t *testing.T, repo setting.Repository) (*SettingService, eventbus.EventBus) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(logger)
	return NewSettingService(repo, bus, time.Hour), bus
}

func TestSettingService_GetStringSetting(t *testing.T) {
	ctx := context.Background()

	t.Run("default when not stored", func(t *testing.T) {
		svc, _ := newService(t, newFakeRepo(nil))
		v, err := svc.GetStringSetting(ctx, setting.KeyCalendar)
		require.NoError(t, err)
		assert.Equal(t, "iso8601", v)
	})

	t.Run("stored value is cached", func(t *testing.T) {
		repo := newFakeRepo(map[string]string{"keyCalendar": "ethiopian"})
		svc, _ := newService(t, repo)
		for i := 0; i < 3; i++ {
			v, err := svc.GetStringSetting(ctx, setting.KeyCalendar)
			require.NoError(t, err)
			assert.Equal(t, "ethiopian", v)
		}
		assert.Equal(t, 1, repo.gets)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		repo := newFakeRepo(nil)
		repo.getErr = errors.New("connection reset")
		svc, _ := newService(t, repo)

		_, err := svc.GetStringSetting(ctx, setting.KeyDateFormat)
		require.ErrorContains(t, err, "connection reset")

		repo.getErr = nil
		v, err := svc.GetStringSetting(ctx, setting.KeyDateFormat)
		require.NoError(t, err)
		assert.Equal(t, "yyyy-MM-dd", v)
		assert.Equal(t, 2, repo.gets)
	})
}

func TestSettingService_GetSettingByName_Unknown(t *testing.T) {
	svc, _ := newService(t, newFakeRepo(nil))
	_, err := svc.GetSettingByName(context.Background(), "keyNope")
	require.ErrorIs(t, err, setting.ErrUnknownSetting)
}

func TestSettingService_GetAll(t *testing.T) {
	svc, _ := newService(t, newFakeRepo(map[string]string{"keyUiLocale": "fr", "legacyKey": "x"}))
	all, err := svc.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"keyCalendar":      "iso8601",
		"keyDateFormat":    "yyyy-MM-dd",
		"keyCacheStrategy": "CACHE_6AM_TOMORROW",
		"keyUiLocale":      "fr",
	}, all)
}

func TestSettingService_SaveSetting(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(nil)
	svc, bus := newService(t, repo)

	var got []*setting.Changed
	bus.Subscribe(func(e *setting.Changed) {
		got = append(got, e)
	})

	_, err := svc.GetStringSetting(ctx, setting.KeyCalendar)
	require.NoError(t, err)

	require.NoError(t, svc.SaveSetting(ctx, "keyCalendar", "thai"))
	v, err := svc.GetStringSetting(ctx, setting.KeyCalendar)
	require.NoError(t, err)
	assert.Equal(t, "thai", v)

	require.Len(t, got, 1)
	assert.Equal(t, setting.KeyCalendar, got[0].Key)
	assert.Equal(t, "thai", got[0].Value)
	assert.False(t, got[0].Deleted)

	require.NoError(t, svc.DeleteSetting(ctx, "keyCalendar"))
	v, err = svc.GetStringSetting(ctx, setting.KeyCalendar)
	require.NoError(t, err)
	assert.Equal(t, "iso8601", v)
	require.Len(t, got, 2)
	assert.True(t, got[1].Deleted)
}

func TestSettingService_SaveSetting_Validator(t *testing.T) {
	repo := newFakeRepo(nil)
	svc, _ := newService(t, repo)
	svc.RegisterValidator(setting.KeyCalendar, func(v string) error {
		if v != "julian" {
			return errors.New("unsupported calendar")
		}
		return nil
	})

	err := svc.SaveSetting(context.Background(), "keyCalendar", "martian")
	require.ErrorContains(t, err, "unsupported calendar")
	assert.Empty(t, repo.values)

	require.NoError(t, svc.SaveSetting(context.Background(), "keyCalendar", "julian"))
	assert.Equal(t, "julian", repo.values["keyCalendar"])
}

func TestSettingService_SaveSetting_Unauthorized(t *testing.T) {
	denied := errors.New("forbidden")
	orig := authorizeSystemFn
	authorizeSystemFn = func(context.Context, string, string) error { return denied }
	t.Cleanup(func() { authorizeSystemFn = orig })

	repo := newFakeRepo(nil)
	svc, _ := newService(t, repo)
	require.ErrorIs(t, svc.SaveSetting(context.Background(), "keyUiLocale", "fr"), denied)
	require.ErrorIs(t, svc.DeleteSetting(context.Background(), "keyUiLocale"), denied)
	assert.Empty(t, repo.values)
}

func TestSettingService_SaveDuringLoad(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(map[string]string{"keyCalendar": "julian"})
	svc, _ := newService(t, repo)
	repo.afterGet = func() {
		require.NoError(t, svc.SaveSetting(ctx, "keyCalendar", "coptic"))
	}

	v, err := svc.GetStringSetting(ctx, setting.KeyCalendar)
	require.NoError(t, err)
	assert.Equal(t, "julian", v)
	assert.Zero(t, svc.Cache().Len())

	v, err = svc.GetStringSetting(ctx, setting.KeyCalendar)
	require.NoError(t, err)
	assert.Equal(t, "coptic", v)
	assert.Equal(t, 2, repo.gets)
}
