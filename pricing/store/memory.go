// Package store provides pricing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/foboh/pricing-engine/pricing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	profiles map[pricing.ProfileID]pricing.Profile
	items    map[pricing.ProfileID][]pricing.ProfileItem
	products map[pricing.UserID]map[pricing.ProductID]pricing.ProductRef
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[pricing.ProfileID]pricing.Profile),
		items:    make(map[pricing.ProfileID][]pricing.ProfileItem),
		products: make(map[pricing.UserID]map[pricing.ProductID]pricing.ProductRef),
	}
}

// =============================================================================
// SEED HELPERS - Not part of the pricing.Store interface
// =============================================================================

// PutProduct seeds a product for a user.
func (m *Memory) PutProduct(userID pricing.UserID, ref pricing.ProductRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.products[userID] == nil {
		m.products[userID] = make(map[pricing.ProductID]pricing.ProductRef)
	}
	m.products[userID][ref.ID] = ref
}

// PutProfile seeds a profile and its selections, replacing any existing
// selections for that profile.
func (m *Memory) PutProfile(profile pricing.Profile, items []pricing.ProfileItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.ID] = profile
	m.items[profile.ID] = append([]pricing.ProfileItem(nil), items...)
}

// =============================================================================
// pricing.ProfileStore
// =============================================================================

func (m *Memory) GetProfile(_ context.Context, userID pricing.UserID, profileID pricing.ProfileID) (*pricing.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[profileID]
	if !ok || profile.UserID != userID {
		return nil, nil
	}
	copied := profile
	return &copied, nil
}

func (m *Memory) GetItemAdjustments(_ context.Context, profileID pricing.ProfileID, productIDs []pricing.ProductID) (map[pricing.ProductID]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requested := make(map[pricing.ProductID]bool, len(productIDs))
	for _, id := range productIDs {
		requested[id] = true
	}

	result := make(map[pricing.ProductID]string)
	for _, item := range m.items[profileID] {
		if requested[item.ProductID] {
			result[item.ProductID] = item.Adjustment
		}
	}
	return result, nil
}

func (m *Memory) ListItems(_ context.Context, profileID pricing.ProfileID) ([]pricing.ProfileItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := append([]pricing.ProfileItem(nil), m.items[profileID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (m *Memory) CreateProfile(_ context.Context, profile pricing.Profile, items []pricing.ProfileItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.ID] = profile
	m.items[profile.ID] = append([]pricing.ProfileItem(nil), items...)
	return nil
}

func (m *Memory) SetProfileStatus(_ context.Context, userID pricing.UserID, profileID pricing.ProfileID, expected, next pricing.ProfileStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[profileID]
	if !ok || profile.UserID != userID || profile.Status != expected {
		return false, nil
	}
	profile.Status = next
	m.profiles[profileID] = profile
	return true, nil
}

// =============================================================================
// pricing.ProductReader
// =============================================================================

func (m *Memory) GetProductRefs(_ context.Context, userID pricing.UserID, productIDs []pricing.ProductID) (map[pricing.ProductID]pricing.ProductRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[pricing.ProductID]pricing.ProductRef, len(productIDs))
	for _, id := range productIDs {
		if ref, ok := m.products[userID][id]; ok {
			result[id] = ref
		}
	}
	return result, nil
}
