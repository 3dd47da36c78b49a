package registry

import (
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the CredentialRegistry interface
type MockRegistry struct {
	mock.Mock
}

// Register mocks the Register method
func (m *MockRegistry) Register(entry interfaces.CredentialEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

// AddAttestation mocks the AddAttestation method
func (m *MockRegistry) AddAttestation(id interfaces.CredentialID, signatureCount, threshold int) error {
	args := m.Called(id, signatureCount, threshold)
	return args.Error(0)
}

// Revoke mocks the Revoke method
func (m *MockRegistry) Revoke(id interfaces.CredentialID, reason string) error {
	args := m.Called(id, reason)
	return args.Error(0)
}

// Entry mocks the Entry method
func (m *MockRegistry) Entry(id interfaces.CredentialID) (interfaces.CredentialEntry, error) {
	args := m.Called(id)
	return args.Get(0).(interfaces.CredentialEntry), args.Error(1)
}

// IsValid mocks the IsValid method
func (m *MockRegistry) IsValid(id interfaces.CredentialID) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}
