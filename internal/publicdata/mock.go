package publicdata

import (
	"context"
	"sync"

	"github.com/openinsight-kr/market-pulse/internal/model"
)

// MockFetcher is a test double for the SignalFetcher interface.
type MockFetcher struct {
	// StoreCounts maps "admCode/categoryCode" to the count to return.
	// Codes absent from the map return DefaultStoreCount.
	StoreCounts       map[string]int
	Population        map[string]model.PopulationRecord
	DefaultStoreCount int

	mu              sync.Mutex
	storeCountCalls []string
	populationCalls int
}

// FetchStoreCount returns the configured count for the pair.
func (m *MockFetcher) FetchStoreCount(_ context.Context, admCode, categoryCode string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := admCode + "/" + categoryCode
	m.storeCountCalls = append(m.storeCountCalls, key)

	if count, ok := m.StoreCounts[key]; ok {
		return count
	}
	return m.DefaultStoreCount
}

// FetchPopulationSnapshot returns the configured population map.
func (m *MockFetcher) FetchPopulationSnapshot(_ context.Context) map[string]model.PopulationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.populationCalls++
	if m.Population == nil {
		return map[string]model.PopulationRecord{}
	}
	return m.Population
}

// StoreCountCalls returns the pairs queried so far.
func (m *MockFetcher) StoreCountCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]string, len(m.storeCountCalls))
	copy(calls, m.storeCountCalls)
	return calls
}

// PopulationCalls returns how many times the bulk fetch ran.
func (m *MockFetcher) PopulationCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.populationCalls
}
