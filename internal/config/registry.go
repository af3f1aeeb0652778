package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"adpilot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ScoringSnapshot is an immutable view of the currently active scoring model.
type ScoringSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Scoring  ScoringConfig
}

// ScoringListener fires after the registry swaps in a reloaded model.
type ScoringListener func(ScoringSnapshot)

// ScoringRegistry serves the active ScoringConfig and, when a stages file is
// configured, watches it and hot-swaps validated updates without a restart.
// Invalid updates are logged and the previous snapshot stays active.
type ScoringRegistry struct {
	path string

	mu        sync.RWMutex
	snapshot  ScoringSnapshot
	listeners []ScoringListener
}

// NewScoringRegistry seeds the registry from base and, if base.StagesPath is
// set, overlays and watches that file.
func NewScoringRegistry(base ScoringConfig) (*ScoringRegistry, error) {
	r := &ScoringRegistry{
		path:     strings.TrimSpace(base.StagesPath),
		snapshot: ScoringSnapshot{Version: 1, LoadedAt: time.Now(), Scoring: base},
	}
	if r.path == "" {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading scoring stages file failed: %w", err)
	}
	if err := r.reload(v); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(v); err != nil {
			logger.Errorf("scoring reload rejected (%s): %v", evt.Name, err)
			return
		}
		r.notify()
	})
	v.WatchConfig()
	return r, nil
}

// Current returns the active scoring snapshot.
func (r *ScoringRegistry) Current() ScoringSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Subscribe registers a listener for future reloads.
func (r *ScoringRegistry) Subscribe(fn ScoringListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *ScoringRegistry) reload(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	// Deep copy: mapstructure decodes into existing maps and slices in place,
	// so unmarshalling over the active snapshot would mutate it before
	// validation and race against readers holding it.
	next := r.Current().Scoring.clone()
	if err := v.Unmarshal(&next, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return fmt.Errorf("parsing scoring stages failed: %w", err)
	}
	next.StagesPath = r.path
	next.applyDefaults()
	if err := ValidateScoring(next); err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = ScoringSnapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Scoring:  next,
	}
	snap := r.snapshot
	r.mu.Unlock()

	if dump, err := yaml.Marshal(snap.Scoring.Stages); err == nil {
		logger.Debugf("scoring stages v%d active:\n%s", snap.Version, string(dump))
	}
	logger.Infof("scoring model reloaded version=%d stages=%d", snap.Version, len(snap.Scoring.Stages))
	return nil
}

// clone returns a ScoringConfig sharing no maps or slices with s, so the copy
// can be decoded into and validated without touching the original.
func (s ScoringConfig) clone() ScoringConfig {
	out := s
	out.Baselines = maps.Clone(s.Baselines)
	out.Platforms = maps.Clone(s.Platforms)
	out.Stages = slices.Clone(s.Stages)
	for i := range out.Stages {
		out.Stages[i].Weights = maps.Clone(out.Stages[i].Weights)
	}
	return out
}

func (r *ScoringRegistry) notify() {
	r.mu.RLock()
	snap := r.snapshot
	listeners := append([]ScoringListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
