package authz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/sirupsen/logrus"

	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
)

// Service evaluates requests against the casbin policy.
type Service struct {
	flags FlagProvider
	log   *logrus.Entry

	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	enf, err := casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
	if err != nil {
		return nil, fmt.Errorf("authz: load model %s: %w", cfg.ModelPath, err)
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: load policy %s: %w", cfg.PolicyPath, err)
	}

	return &Service{
		flags:    cfg.Flags,
		log:      logger.WithField("component", "authz"),
		enforcer: enf,
	}, nil
}

// Mode is the global enforcement mode.
func (s *Service) Mode() Mode {
	return s.flags.Mode()
}

// Authorize fails with ErrForbidden only when the request is denied and the
// object is enforced. Shadow denials are logged and let through.
func (s *Service) Authorize(ctx context.Context, req Request) error {
	mode := s.flags.ModeFor(req.Object)
	if mode == ModeDisabled {
		return nil
	}

	start := time.Now()
	allowed, err := s.Check(ctx, req)
	if err != nil {
		return err
	}
	observe(req, mode, allowed, time.Since(start))
	if allowed {
		return nil
	}

	entry := s.log.WithContext(ctx).WithFields(logrus.Fields{
		"subject": req.Subject,
		"roles":   req.Roles,
		"domain":  req.Domain,
		"object":  req.Object,
		"action":  req.Action,
		"mode":    mode,
	})
	if mode != ModeEnforce {
		entry.Warn("authz shadow deny")
		return nil
	}
	entry.Warn("authz denied request")
	return forbidden(req)
}

// Check reports whether the subject or any of its roles is allowed.
func (s *Service) Check(_ context.Context, req Request) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range req.subjects() {
		ok, err := s.enforcer.Enforce(sub, req.Domain, req.Object, req.Action, req.Attributes)
		if err != nil {
			return false, fmt.Errorf("authz: enforce %s %s: %w", req.Object, req.Action, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ReloadPolicy re-reads the policy file.
func (s *Service) ReloadPolicy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy: %w", err)
	}
	s.log.WithContext(ctx).Info("authz policy reloaded")
	return nil
}

var defaultService = sync.OnceValues(func() (*Service, error) {
	return NewService(ConfigFrom(configuration.Use()))
})

// Use returns the process-wide service and panics when the policy cannot load.
func Use() *Service {
	svc, err := defaultService()
	if err != nil {
		panic(err)
	}
	return svc
}
