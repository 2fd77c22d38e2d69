package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Check probes one dependency. A nil error means healthy; an error wrapped
// with Warning downgrades the item to warning instead of error.
type Check func(ctx context.Context) error

type warningError struct {
	msg string
}

func (w *warningError) Error() string { return w.msg }

// Warning builds an error that marks a check result as a warning.
func Warning(format string, args ...any) error {
	return &warningError{msg: fmt.Sprintf(format, args...)}
}

type checkKey struct {
	category HealthCategory
	id       string
}

// Service manages the health state of all tracked items.
// All state is in-memory and resets on restart.
type Service struct {
	items  map[HealthCategory]map[string]*HealthItem
	checks map[checkKey]Check
	order  []checkKey
	mu     sync.RWMutex
	clock  clockwork.Clock
	logger zerolog.Logger
}

// NewService creates a new health service. A nil clock uses the real one.
func NewService(clock clockwork.Clock, logger zerolog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Service{
		items:  make(map[HealthCategory]map[string]*HealthItem),
		checks: make(map[checkKey]Check),
		clock:  clock,
		logger: logger.With().Str("component", "health").Logger(),
	}
	for _, cat := range AllCategories() {
		s.items[cat] = make(map[string]*HealthItem)
	}
	return s
}

// RegisterItem adds a new item to health tracking with OK status.
func (s *Service) RegisterItem(category HealthCategory, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerLocked(category, id, name)
}

func (s *Service) registerLocked(category HealthCategory, id, name string) {
	if s.items[category] == nil {
		s.items[category] = make(map[string]*HealthItem)
	}
	s.items[category][id] = &HealthItem{
		ID:       id,
		Category: category,
		Name:     name,
		Status:   StatusOK,
	}

	s.logger.Debug().
		Str("category", string(category)).
		Str("id", id).
		Str("name", name).
		Msg("Registered health item")
}

// RegisterCheck registers an item together with the probe that Run uses to
// refresh it. Re-registering an id replaces its probe.
func (s *Service) RegisterCheck(category HealthCategory, id, name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registerLocked(category, id, name)
	key := checkKey{category: category, id: id}
	if _, exists := s.checks[key]; !exists {
		s.order = append(s.order, key)
	}
	s.checks[key] = check
}

// UnregisterItem removes an item and its probe from health tracking.
func (s *Service) UnregisterItem(category HealthCategory, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[category][id]; !exists {
		return
	}
	delete(s.items[category], id)

	key := checkKey{category: category, id: id}
	if _, ok := s.checks[key]; ok {
		delete(s.checks, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}

	s.logger.Debug().
		Str("category", string(category)).
		Str("id", id).
		Msg("Unregistered health item")
}

// Run executes every registered probe in registration order and records
// the outcome. It stops early only if ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	return s.run(ctx, "")
}

// RunCategory executes the probes of one category.
func (s *Service) RunCategory(ctx context.Context, category HealthCategory) error {
	return s.run(ctx, category)
}

func (s *Service) run(ctx context.Context, only HealthCategory) error {
	s.mu.RLock()
	keys := make([]checkKey, 0, len(s.order))
	checks := make([]Check, 0, len(s.order))
	for _, k := range s.order {
		if only != "" && k.category != only {
			continue
		}
		keys = append(keys, k)
		checks = append(checks, s.checks[k])
	}
	s.mu.RUnlock()

	for i, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.apply(k.category, k.id, checks[i](ctx))
	}
	return nil
}

func (s *Service) apply(category HealthCategory, id string, err error) {
	var warn *warningError
	switch {
	case err == nil:
		s.ClearStatus(category, id)
	case errors.As(err, &warn):
		s.SetWarning(category, id, warn.msg)
	default:
		s.SetError(category, id, err.Error())
	}
}

// SetError sets an item to Error status with a message.
func (s *Service) SetError(category HealthCategory, id, message string) {
	s.setStatus(category, id, StatusError, message)
}

// SetWarning sets an item to Warning status with a message.
func (s *Service) SetWarning(category HealthCategory, id, message string) {
	s.setStatus(category, id, StatusWarning, message)
}

// ClearStatus resets an item to OK status.
func (s *Service) ClearStatus(category HealthCategory, id string) {
	s.setStatus(category, id, StatusOK, "")
}

func (s *Service) setStatus(category HealthCategory, id string, status HealthStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[category][id]
	if !exists {
		s.logger.Warn().
			Str("category", string(category)).
			Str("id", id).
			Msg("Attempted to update status for unregistered item")
		return
	}

	if item.Status == status && item.Message == message {
		return
	}

	oldStatus := item.Status
	item.Status = status
	item.Message = message
	if status != StatusOK {
		now := s.clock.Now()
		item.Timestamp = &now
	} else {
		item.Timestamp = nil
	}

	level := zerolog.InfoLevel
	if status == StatusError {
		level = zerolog.WarnLevel
	}
	s.logger.WithLevel(level).
		Str("category", string(category)).
		Str("id", id).
		Str("name", item.Name).
		Str("oldStatus", string(oldStatus)).
		Str("newStatus", string(status)).
		Str("message", message).
		Msg("Health status changed")
}

// GetAll returns all health items grouped by category.
func (s *Service) GetAll() map[HealthCategory][]HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[HealthCategory][]HealthItem, len(s.items))
	for _, cat := range AllCategories() {
		all[cat] = s.itemsToSlice(cat)
	}
	return all
}

// GetByCategory returns all items in a specific category.
func (s *Service) GetByCategory(category HealthCategory) []HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemsToSlice(category)
}

// GetItem returns a single item by category and ID.
func (s *Service) GetItem(category HealthCategory, id string) *HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[category][id]; exists {
		cp := *item
		return &cp
	}
	return nil
}

// GetSummary returns counts per category.
func (s *Service) GetSummary() *HealthSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &HealthSummary{
		Categories: make([]CategorySummary, 0, len(AllCategories())),
	}

	for _, cat := range AllCategories() {
		catSummary := CategorySummary{Category: cat}
		for _, item := range s.items[cat] {
			switch item.Status {
			case StatusOK:
				catSummary.OK++
			case StatusWarning:
				catSummary.Warning++
			case StatusError:
				catSummary.Error++
			}
		}
		if catSummary.HasIssues() {
			summary.HasIssues = true
		}
		summary.Categories = append(summary.Categories, catSummary)
	}

	return summary
}

// IsHealthy returns true if the specified item is OK.
func (s *Service) IsHealthy(category HealthCategory, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[category][id]; exists {
		return item.Status == StatusOK
	}
	return false
}

// itemsToSlice returns the items of a category sorted by ID.
func (s *Service) itemsToSlice(category HealthCategory) []HealthItem {
	items := make([]HealthItem, 0, len(s.items[category]))
	for _, item := range s.items[category] {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}
