package authz

import (
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeShadow   Mode = "shadow"
	ModeEnforce  Mode = "enforce"
)

// ParseMode maps unknown or empty values to shadow.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDisabled:
		return ModeDisabled
	case ModeEnforce:
		return ModeEnforce
	default:
		return ModeShadow
	}
}

// FlagProvider reports the enforcement mode, globally and per object.
// Objects without an override use the global mode.
type FlagProvider interface {
	Mode() Mode
	ModeFor(object string) Mode
}

type staticFlags Mode

func (s staticFlags) Mode() Mode            { return Mode(s) }
func (s staticFlags) ModeFor(_ string) Mode { return Mode(s) }

func StaticFlagProvider(mode Mode) FlagProvider {
	return staticFlags(ParseMode(string(mode)))
}

// flagFile is the YAML layout of the flag file:
//
//	mode: shadow
//	objects:
//	  event.events: enforce
type flagFile struct {
	Mode    string            `yaml:"mode"`
	Objects map[string]string `yaml:"objects"`
}

type flagState struct {
	mode    Mode
	objects map[string]Mode
}

// FileFlagProvider re-reads its file whenever the modification time changes,
// so modes can be rolled out per object without a restart.
type FileFlagProvider struct {
	path     string
	fallback Mode

	mu      sync.Mutex
	modTime time.Time
	state   *flagState
}

func NewFileFlagProvider(path string, fallback Mode) *FileFlagProvider {
	return &FileFlagProvider{path: path, fallback: ParseMode(string(fallback))}
}

func (p *FileFlagProvider) Mode() Mode {
	return p.current().mode
}

func (p *FileFlagProvider) ModeFor(object string) Mode {
	s := p.current()
	if m, ok := s.objects[strings.ToLower(object)]; ok {
		return m
	}
	return s.mode
}

func (p *FileFlagProvider) current() *flagState {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	if err != nil {
		if p.state == nil {
			return &flagState{mode: p.fallback}
		}
		return p.state
	}
	if p.state != nil && info.ModTime().Equal(p.modTime) {
		return p.state
	}

	s, err := readFlagFile(p.path)
	if err != nil {
		return &flagState{mode: p.fallback}
	}
	p.modTime, p.state = info.ModTime(), s
	return s
}

func readFlagFile(path string) (*flagState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f flagFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	s := &flagState{mode: ParseMode(f.Mode), objects: make(map[string]Mode, len(f.Objects))}
	for obj, m := range f.Objects {
		s.objects[strings.ToLower(strings.TrimSpace(obj))] = ParseMode(m)
	}
	return s, nil
}
