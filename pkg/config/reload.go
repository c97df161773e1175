package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Reloadable modules can take a changed section without a restart.
type Reloadable interface {
	Module
	CanReload() bool
	Reload(newConfig *Section) error
}

// ReloadResult is the outcome for one changed section.
type ReloadResult struct {
	Section     string
	Success     bool
	Error       error
	CanReload   bool
	WasReloaded bool
}

// ModelChanged reports whether any result touches a model section.
func ModelChanged(results []ReloadResult) bool {
	for _, r := range results {
		for _, prefix := range []string{PartPrefix, AnimationPrefix, ObjectPrefix} {
			if strings.HasPrefix(r.Section, prefix) {
				return true
			}
		}
	}
	return false
}

// ReloadManager re-reads the config file and hands changed sections to the
// modules that own them. Model sections are reported but not owned by any
// module; onComplete decides what to do with them.
type ReloadManager struct {
	mu sync.RWMutex

	registry      *Registry
	currentConfig *Config
	configPath    string

	debounceTime time.Duration
	lastReload   time.Time
	lastModified time.Time

	onReloadStart    func()
	onReloadComplete func(cfg *Config, results []ReloadResult)
}

// NewReloadManager creates a reload manager for cfg, loaded from path.
func NewReloadManager(registry *Registry, cfg *Config, path string) *ReloadManager {
	rm := &ReloadManager{
		registry:      registry,
		currentConfig: cfg,
		configPath:    path,
		debounceTime:  100 * time.Millisecond,
	}
	if info, err := os.Stat(path); err == nil {
		rm.lastModified = info.ModTime()
	}
	return rm
}

// SetDebounceTime sets the minimum gap between reloads.
func (rm *ReloadManager) SetDebounceTime(d time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.debounceTime = d
}

// SetCallbacks sets functions run around each reload. onComplete receives
// the new config.
func (rm *ReloadManager) SetCallbacks(onStart func(), onComplete func(*Config, []ReloadResult)) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.onReloadStart = onStart
	rm.onReloadComplete = onComplete
}

// DetectChanges lists sections added, removed or modified in newConfig.
func (rm *ReloadManager) DetectChanges(newConfig *Config) []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return diffSections(rm.currentConfig, newConfig)
}

func diffSections(oldConfig, newConfig *Config) []string {
	var changed []string
	for _, newSec := range newConfig.GetSections() {
		name := newSec.GetName()
		oldSec, ok := oldConfig.lookup(name)
		if !ok || !sectionsEqual(oldSec, newSec) {
			changed = append(changed, name)
		}
	}
	for _, name := range oldConfig.GetSectionNames() {
		if !newConfig.HasSection(name) {
			changed = append(changed, name)
		}
	}
	return changed
}

func sectionsEqual(a, b *Section) bool {
	aOpts := a.RawOptions()
	bOpts := b.RawOptions()
	if len(aOpts) != len(bOpts) {
		return false
	}
	for k, v := range aOpts {
		if w, ok := bOpts[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// ReloadFromFile reloads the file, subject to debouncing.
func (rm *ReloadManager) ReloadFromFile() ([]ReloadResult, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if time.Since(rm.lastReload) < rm.debounceTime {
		return nil, nil
	}
	newConfig, err := Load(rm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return rm.reloadLocked(newConfig)
}

// ReloadWithConfig reloads from an already parsed config.
func (rm *ReloadManager) ReloadWithConfig(newConfig *Config) ([]ReloadResult, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.reloadLocked(newConfig)
}

func (rm *ReloadManager) reloadLocked(newConfig *Config) ([]ReloadResult, error) {
	if rm.onReloadStart != nil {
		rm.onReloadStart()
	}

	changed := diffSections(rm.currentConfig, newConfig)
	results := make([]ReloadResult, 0, len(changed))
	for _, name := range changed {
		results = append(results, rm.reloadSection(newConfig, name))
	}

	rm.currentConfig = newConfig
	rm.lastReload = time.Now()
	if rm.onReloadComplete != nil && len(results) > 0 {
		rm.onReloadComplete(newConfig, results)
	}
	return results, nil
}

func (rm *ReloadManager) reloadSection(newConfig *Config, name string) ReloadResult {
	result := ReloadResult{Section: name}
	newSec, present := newConfig.lookup(name)

	module := rm.registry.GetModule(name)
	if module == nil {
		factory := rm.registry.GetFactory(name)
		if factory == nil || !present {
			return result
		}
		m, err := factory(newSec)
		if err != nil {
			result.Error = err
			return result
		}
		rm.registry.setModule(name, m)
		result.Success = true
		result.WasReloaded = true
		return result
	}

	reloadable, ok := module.(Reloadable)
	if !ok {
		return result
	}
	result.CanReload = reloadable.CanReload()
	if !result.CanReload {
		return result
	}
	if !present {
		result.Error = fmt.Errorf("section deleted")
		return result
	}
	if err := reloadable.Reload(newSec); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	result.WasReloaded = true
	return result
}

// Watch polls the file's modification time every interval and reloads when
// it moves forward, until ctx is done. Reload errors go to onError.
func (rm *ReloadManager) Watch(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rm.checkFile(); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

func (rm *ReloadManager) checkFile() error {
	info, err := os.Stat(rm.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	rm.mu.RLock()
	seen := rm.lastModified
	rm.mu.RUnlock()
	if !info.ModTime().After(seen) {
		return nil
	}
	rm.mu.Lock()
	rm.lastModified = info.ModTime()
	rm.lastReload = time.Time{}
	rm.mu.Unlock()
	_, err = rm.ReloadFromFile()
	return err
}

// GetCurrentConfig returns the current configuration.
func (rm *ReloadManager) GetCurrentConfig() *Config {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.currentConfig
}

// HasNonReloadableChanges returns the changed sections whose modules cannot
// take a new section in place.
func (rm *ReloadManager) HasNonReloadableChanges(changed []string) []string {
	var nonReloadable []string
	for _, name := range changed {
		module := rm.registry.GetModule(name)
		if module == nil {
			continue
		}
		reloadable, ok := module.(Reloadable)
		if !ok || !reloadable.CanReload() {
			nonReloadable = append(nonReloadable, name)
		}
	}
	return nonReloadable
}
