package provider

import (
	"context"
	"sync"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/logger"
)

// MockProvider serves fixture records from memory. It stands in for the
// government endpoint in tests and development deployments.
type MockProvider struct {
	mu      sync.Mutex
	records map[string]*IdentityRecord
	calls   int
}

func NewMockProvider() *MockProvider {
	logger.Warning("using mock identity provider")
	return &MockProvider{records: make(map[string]*IdentityRecord)}
}

// AddRecord registers a fixture served for its personal and document number
// pair. The lookup document number is the record series and number
// concatenated.
func (p *MockProvider) AddRecord(record *IdentityRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := mockKey(record.PersonalNumber, record.DocumentSeries+record.DocumentNumber)
	p.records[key] = record
}

// Calls reports how many lookups the mock has served.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockProvider) Lookup(_ context.Context, personalNumber, documentNumber string) (*IdentityRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	record, ok := p.records[mockKey(personalNumber, documentNumber)]
	if !ok {
		return nil, config.ErrIdentityNotFound
	}
	return record, nil
}

func mockKey(personalNumber, documentNumber string) string {
	return personalNumber + ":" + documentNumber
}
