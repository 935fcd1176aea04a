package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

// EventBus dispatches events to every subscribed handler whose parameter list
// accepts the published arguments.
type EventBus interface {
	Publish(args ...any)
	PublishE(args ...any) error
	Subscribe(handler any)
	Unsubscribe(handler any)
	Clear()
	SubscribersCount() int
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type publisher struct {
	log         *logrus.Logger
	mu          sync.RWMutex
	subscribers []reflect.Value
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisher{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			switch paramType.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice:
				continue
			default:
				return false
			}
		}
		if !reflect.TypeOf(arg).AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func argValues(handler reflect.Type, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(handler.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

// dispatch calls every matching handler. It returns how many handlers
// completed and the errors they returned or panicked with.
func (p *publisher) dispatch(args []any) (int, []error) {
	p.mu.RLock()
	subscribers := append([]reflect.Value(nil), p.subscribers...)
	p.mu.RUnlock()

	completed := 0
	var errs []error
	for _, h := range subscribers {
		if !MatchSignature(h.Interface(), args) {
			continue
		}
		ok, err := call(h, args)
		if ok {
			completed++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return completed, errs
}

func call(h reflect.Value, args []any) (completed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			completed = false
			err = fmt.Errorf("eventbus: handler %s panicked with args %v: %v", h.Type(), args, r)
		}
	}()
	out := h.Call(argValues(h.Type(), args))
	switch {
	case len(out) == 0:
		return true, nil
	case len(out) == 1 && out[0].Type() == errorType:
		if out[0].IsNil() {
			return true, nil
		}
		return true, out[0].Interface().(error)
	default:
		return false, fmt.Errorf("%w: handler %s", ErrInvalidHandlerReturn, h.Type())
	}
}

// Publish delivers args to the matching handlers. Handler errors and panics are logged.
func (p *publisher) Publish(args ...any) {
	completed, errs := p.dispatch(args)
	if p.log == nil {
		return
	}
	for _, err := range errs {
		p.log.WithError(err).Error("eventbus: handler failed")
	}
	if completed == 0 {
		p.log.Warnf("eventbus.Publish: no matching subscribers for event with args: %v", args)
	}
}

// PublishE delivers args to the matching handlers and returns their joined errors.
func (p *publisher) PublishE(args ...any) error {
	completed, errs := p.dispatch(args)
	if completed == 0 && len(errs) == 0 {
		return ErrNoSubscribers
	}
	return errors.Join(errs...)
}

func (p *publisher) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, v)
}

func (p *publisher) Unsubscribe(handler any) {
	target := reflect.ValueOf(handler).Pointer()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subscribers {
		if s.Pointer() == target {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *publisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = nil
}

func (p *publisher) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}
