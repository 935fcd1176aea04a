package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmis-dev/hmis-sdk/pkg/logging"
)

type settingChanged struct {
	key string
}

type programsChanged struct{}

func bufferedLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.WarnLevel)
	return log, buf
}

func TestMatchSignature(t *testing.T) {
	assert.True(t, MatchSignature(func(e *settingChanged) {}, []any{&settingChanged{}}))
	assert.False(t, MatchSignature(func(e *settingChanged) {}, []any{&programsChanged{}}))
	assert.False(t, MatchSignature(func(e *settingChanged) {}, []any{}))
	assert.False(t, MatchSignature(func(e *settingChanged) {}, []any{&settingChanged{}, &settingChanged{}}))
	assert.True(t, MatchSignature(func(ctx context.Context) {}, []any{context.Background()}))
	assert.True(t, MatchSignature(func(e *settingChanged) {}, []any{nil}))
	assert.False(t, MatchSignature("not a func", nil))
}

func TestPublisher_Publish(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var got []string
	publisher.Subscribe(func(e *settingChanged) { got = append(got, e.key) })
	publisher.Subscribe(func(e *programsChanged) { t.Error("should not be called") })

	publisher.Publish(&settingChanged{key: "keyCalendar"})
	assert.Equal(t, []string{"keyCalendar"}, got)
}

func TestPublisher_NoSubscribers(t *testing.T) {
	log, buf := bufferedLogger()
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *settingChanged) { t.Error("should not be called") })

	publisher.Publish(&programsChanged{})
	assert.Contains(t, buf.String(), "eventbus.Publish: no matching subscribers")
	assert.ErrorIs(t, publisher.PublishE(&programsChanged{}), ErrNoSubscribers)
}

func TestPublisher_PanicRecovery(t *testing.T) {
	log, buf := bufferedLogger()
	publisher := NewEventPublisher(log)

	called := false
	publisher.Subscribe(func(e *settingChanged) { panic("intentional panic for testing") })
	publisher.Subscribe(func(e *settingChanged) { called = true })

	publisher.Publish(&settingChanged{key: "important-data"})

	assert.True(t, called, "panic must not stop other handlers")
	assert.Contains(t, buf.String(), "panicked")
	assert.Contains(t, buf.String(), "intentional panic for testing")
	assert.NotContains(t, buf.String(), "no matching subscribers")
}

func TestPublisher_AllHandlersPanic(t *testing.T) {
	log, buf := bufferedLogger()
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *settingChanged) { panic("always panics") })

	publisher.Publish(&settingChanged{})
	assert.Contains(t, buf.String(), "no matching subscribers")
}

func TestPublisher_PublishE(t *testing.T) {
	t.Run("joins handler errors", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		err1 := errors.New("err1")
		err2 := errors.New("err2")
		publisher.Subscribe(func(e *settingChanged) error { return err1 })
		publisher.Subscribe(func(e *settingChanged) error { return err2 })
		publisher.Subscribe(func(e *settingChanged) error { return nil })

		err := publisher.PublishE(&settingChanged{})
		require.Error(t, err)
		assert.ErrorIs(t, err, err1)
		assert.ErrorIs(t, err, err2)
	})

	t.Run("panic is surfaced as error", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		called := false
		publisher.Subscribe(func(e *settingChanged) error { panic("boom") })
		publisher.Subscribe(func(e *settingChanged) error { called = true; return nil })

		require.Error(t, publisher.PublishE(&settingChanged{}))
		assert.True(t, called)
	})

	t.Run("invalid handler return", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		publisher.Subscribe(func(e *settingChanged) int { return 1 })

		assert.ErrorIs(t, publisher.PublishE(&settingChanged{}), ErrInvalidHandlerReturn)
	})
}

func TestPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher(nil)
	first := func(e *settingChanged) {}
	second := func(e *programsChanged) {}
	publisher.Subscribe(first)
	publisher.Subscribe(second)
	require.Equal(t, 2, publisher.SubscribersCount())

	publisher.Unsubscribe(first)
	assert.Equal(t, 1, publisher.SubscribersCount())

	publisher.Clear()
	assert.Zero(t, publisher.SubscribersCount())
}
