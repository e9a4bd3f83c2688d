package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// DefaultCacheSize bounds the parsed rule set cache when configuration does
// not say otherwise.
const DefaultCacheSize = 32

// Loader resolves validated rule sets by module id. Directory documents win
// over the built-in catalog, so a deployment can override the shipped
// guided care plan by dropping a JSON file in place. Parsed rule sets live
// in an LRU; an evicted module is re-read from disk on next use.
type Loader struct {
	dir     string
	files   map[string]string
	builtin map[string]*domain.RuleSet
	cache   *lru.Cache
	logger  *logrus.Logger
}

// NewLoader scans the configured directory and validates every rule
// document it finds. A structurally invalid document fails construction:
// rule definition problems are load-time errors, never scoring-time
// surprises.
func NewLoader(cfg domain.RulesConfig, logger *logrus.Logger) (*Loader, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating rule set cache: %w", err)
	}

	loader := &Loader{
		dir:     cfg.Directory,
		files:   make(map[string]string),
		builtin: builtinRuleSets(),
		cache:   cache,
		logger:  logger,
	}

	if cfg.Directory != "" {
		if err := loader.scan(); err != nil {
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"directory":    cfg.Directory,
		"file_modules": len(loader.files),
		"builtin":      len(loader.builtin),
		"cache_size":   size,
	}).Info("Initialized rule set loader")

	return loader, nil
}

// scan reads, parses and validates every .json document in the rules
// directory and records which module each file serves.
func (l *Loader) scan() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("reading rules directory %s: %w", l.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		ruleSet, err := l.loadFile(path)
		if err != nil {
			return err
		}
		if existing, dup := l.files[ruleSet.ModuleID]; dup {
			return domain.NewRuleSetError(ruleSet.ModuleID, ruleSet.Version,
				fmt.Sprintf("module declared by both %s and %s", existing, path))
		}
		l.files[ruleSet.ModuleID] = path
		l.cache.Add(ruleSet.ModuleID, ruleSet)

		l.logger.WithFields(logrus.Fields{
			"module_id":    ruleSet.ModuleID,
			"rule_version": ruleSet.Version,
			"path":         path,
		}).Info("Loaded rule set document")
	}
	return nil
}

func (l *Loader) loadFile(path string) (*domain.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule set %s: %w", path, err)
	}
	var ruleSet domain.RuleSet
	if err := json.Unmarshal(data, &ruleSet); err != nil {
		return nil, domain.NewRuleSetError("", "", fmt.Sprintf("rule set %s is not valid JSON: %v", path, err))
	}
	if err := ruleSet.Validate(); err != nil {
		return nil, err
	}
	return &ruleSet, nil
}

// RuleSet returns the validated rule set for a module. Directory documents
// shadow the built-in catalog; unknown modules are ErrNotFound.
func (l *Loader) RuleSet(moduleID string) (*domain.RuleSet, error) {
	if cached, ok := l.cache.Get(moduleID); ok {
		return cached.(*domain.RuleSet), nil
	}

	if path, ok := l.files[moduleID]; ok {
		ruleSet, err := l.loadFile(path)
		if err != nil {
			return nil, err
		}
		l.cache.Add(moduleID, ruleSet)
		return ruleSet, nil
	}

	if ruleSet, ok := l.builtin[moduleID]; ok {
		l.cache.Add(moduleID, ruleSet)
		return ruleSet, nil
	}

	return nil, fmt.Errorf("rule set for module %s: %w", moduleID, domain.ErrNotFound)
}

// Modules returns every known module id, sorted.
func (l *Loader) Modules() []string {
	seen := make(map[string]bool, len(l.builtin)+len(l.files))
	for id := range l.builtin {
		seen[id] = true
	}
	for id := range l.files {
		seen[id] = true
	}
	modules := make([]string, 0, len(seen))
	for id := range seen {
		modules = append(modules, id)
	}
	sort.Strings(modules)
	return modules
}
