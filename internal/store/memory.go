package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hfujimori/materialmaster/internal/material"
)

// Memory is an in-process material store. It backs the test suites and
// lets the server run without a database for demos.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*material.Material
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*material.Material),
		now:     time.Now,
	}
}

func (s *Memory) Get(_ context.Context, materialID string) (*material.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.records[materialID]
	if !ok {
		return nil, material.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *Memory) Insert(_ context.Context, m *material.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := m.Clone()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.records[c.MaterialID] = c
	return nil
}

func (s *Memory) Update(_ context.Context, m *material.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[m.MaterialID]
	if !ok {
		return material.ErrNotFound
	}
	c := m.Clone()
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	s.records[c.MaterialID] = c
	return nil
}

func (s *Memory) Delete(_ context.Context, materialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, materialID)
	return nil
}

func (s *Memory) List(_ context.Context, opts material.ListOptions) (*material.ListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*material.Material
	q := strings.ToLower(strings.TrimSpace(opts.Search))
	for _, m := range s.records {
		if !opts.IncludeInactive && !m.IsActive {
			continue
		}
		if opts.Category != "" && m.MaterialCategory != opts.Category {
			continue
		}
		if q != "" && !matchesSearch(m, q) {
			continue
		}
		all = append(all, m.Clone())
	}

	sortKey := opts.SortKey
	if !validSortKey(sortKey) {
		sortKey = "material_id"
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if opts.Descending {
			a, b = b, a
		}
		switch sortKey {
		case "material_name":
			if a.MaterialName != b.MaterialName {
				return a.MaterialName < b.MaterialName
			}
		case "unit_price":
			if !a.UnitPrice.Equal(b.UnitPrice) {
				return a.UnitPrice.LessThan(b.UnitPrice)
			}
		case "manufacturer":
			if a.Manufacturer != b.Manufacturer {
				return a.Manufacturer < b.Manufacturer
			}
		}
		return a.MaterialID < b.MaterialID
	})

	perPage := opts.PerPage
	if !validPerPage(perPage) {
		perPage = material.DefaultPerPage
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	total := int64(len(all))
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}

	return &material.ListResult{
		Materials:  all[start:end],
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	}, nil
}

func (s *Memory) Stats(_ context.Context) (*material.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &material.Stats{Categories: map[string]int64{}}
	for _, m := range s.records {
		st.Total++
		if m.IsActive {
			st.Active++
		}
		st.Categories[m.MaterialCategory]++
	}
	return st, nil
}

func (s *Memory) SetActive(_ context.Context, materialIDs []string, active bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range materialIDs {
		if m, ok := s.records[id]; ok {
			m.IsActive = active
			m.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

func (s *Memory) ActivateAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.records {
		if !m.IsActive {
			m.IsActive = true
			m.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

// WithTx snapshots the record set and restores it when fn fails, giving
// the same all-or-nothing semantics as the Postgres store.
func (s *Memory) WithTx(_ context.Context, fn func(material.Store) error) error {
	s.mu.Lock()
	snapshot := make(map[string]*material.Material, len(s.records))
	for k, v := range s.records {
		snapshot[k] = v.Clone()
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.records = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func matchesSearch(m *material.Material, q string) bool {
	for _, v := range []string{m.MaterialID, m.MaterialName, m.Manufacturer, m.Supplier} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
