package event

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
)

type registration struct {
	factory func() shared.DomainEvent
	version int
}

// EventSerializer turns domain events into outbox payloads and back.
// Deserialize yields the concrete pointer type registered for the event type.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]registration
}

// NewEventSerializer creates a serializer that knows every event this service raises
func NewEventSerializer() *EventSerializer {
	s := &EventSerializer{registry: make(map[string]registration)}
	RegisterDomainEvents(s)
	return s
}

// RegisterDomainEvents registers the casework and identity events
func RegisterDomainEvents(s *EventSerializer) {
	s.Register(casework.EventTypeCaseCreated, func() shared.DomainEvent { return &casework.CaseCreatedEvent{} })
	s.Register(casework.EventTypeCaseTransitioned, func() shared.DomainEvent { return &casework.CaseTransitionedEvent{} })
	s.Register(casework.EventTypeRegistrationDetailsChanged, func() shared.DomainEvent { return &casework.RegistrationDetailsChangedEvent{} })

	s.Register(identity.EventTypeUserCreated, func() shared.DomainEvent { return &identity.UserCreatedEvent{} })
	s.Register(identity.EventTypeUserRoleChanged, func() shared.DomainEvent { return &identity.UserRoleChangedEvent{} })
	s.Register(identity.EventTypeUserActivationChanged, func() shared.DomainEvent { return &identity.UserActivationChangedEvent{} })
	s.Register(identity.EventTypeUserProfileUpdated, func() shared.DomainEvent { return &identity.UserProfileUpdatedEvent{} })
	s.Register(identity.EventTypeUserDeleted, func() shared.DomainEvent { return &identity.UserDeletedEvent{} })
}

// Register maps eventType to a factory for its concrete type at schema version 1
func (s *EventSerializer) Register(eventType string, factory func() shared.DomainEvent) {
	s.RegisterVersion(eventType, 1, factory)
}

// RegisterVersion maps eventType to a factory and the newest schema version it understands
func (s *EventSerializer) RegisterVersion(eventType string, version int, factory func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[eventType] = registration{factory: factory, version: version}
}

// Serialize encodes event as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes a payload into the registered type for eventType.
// Payloads written by a newer schema than the registered one are rejected.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	reg, ok := s.registry[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := reg.factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	if v, ok := event.(shared.VersionedEvent); ok && v.SchemaVersion() > reg.version {
		return nil, fmt.Errorf("%s schema version %d is newer than supported version %d", eventType, v.SchemaVersion(), reg.version)
	}
	return event, nil
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
