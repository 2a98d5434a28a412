package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
)

// PresenceStoreConfig holds configuration for the presence/event store
type PresenceStoreConfig struct {
	SessionTTL    time.Duration // sessions without a heartbeat for this long are dropped
	EventCapacity int           // most recent events kept for the dashboard
}

// DefaultPresenceStoreConfig returns default configuration
func DefaultPresenceStoreConfig() PresenceStoreConfig {
	return PresenceStoreConfig{
		SessionTTL:    5 * time.Minute,
		EventCapacity: 50,
	}
}

// Subscriber receives every emitted event. A returned error or panic is
// logged and does not affect other subscribers.
type Subscriber func(models.ActivityEvent) error

type subscription struct {
	id uint64
	fn Subscriber
}

// PresenceStore tracks anonymous viewers per room and fans out activity events.
// All state sits behind one mutex; subscribers are called outside it.
type PresenceStore struct {
	config PresenceStoreConfig
	logger *logrus.Logger
	now    func() time.Time

	mu          sync.Mutex
	sessions    map[string]*models.VisitorSession
	events      []models.ActivityEvent // ring buffer
	eventHead   int                    // index of the oldest event
	eventCount  int
	subscribers []subscription
	nextSubID   uint64
}

// NewPresenceStore creates a new presence store
func NewPresenceStore(config PresenceStoreConfig, logger *logrus.Logger) *PresenceStore {
	def := DefaultPresenceStoreConfig()
	if config.SessionTTL <= 0 {
		config.SessionTTL = def.SessionTTL
	}
	if config.EventCapacity <= 0 {
		config.EventCapacity = def.EventCapacity
	}

	return &PresenceStore{
		config:   config,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*models.VisitorSession),
		events:   make([]models.ActivityEvent, config.EventCapacity),
	}
}

// ============================================================================
// SESSIONS
// ============================================================================

// Join refreshes existingSessionID if it is live, moving it to roomSlug when
// one is given. Otherwise it starts a new session and emits visitor_joined.
func (s *PresenceStore) Join(roomSlug, roomName, existingSessionID string, mobile bool) models.VisitorSession {
	s.mu.Lock()
	now := s.now()
	s.sweepLocked(now)

	if existing, ok := s.sessions[existingSessionID]; ok && existingSessionID != "" {
		existing.LastSeen = now
		if roomSlug != "" {
			existing.RoomSlug = roomSlug
			existing.RoomName = roomName
		}
		session := *existing
		s.mu.Unlock()
		return session
	}

	session := &models.VisitorSession{
		ID:       uuid.NewString(),
		RoomSlug: roomSlug,
		RoomName: roomName,
		JoinedAt: now,
		LastSeen: now,
		Mobile:   mobile,
	}
	s.sessions[session.ID] = session
	joined := *session
	s.mu.Unlock()

	s.Emit(models.VisitorJoinedPayload{SessionID: joined.ID, RoomSlug: joined.RoomSlug, RoomName: joined.RoomName})
	return joined
}

// Heartbeat refreshes a live session. False means the caller should join again.
func (s *PresenceStore) Heartbeat(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	session.LastSeen = now
	return true
}

// Leave removes a session and emits visitor_left. Leaving twice is safe.
func (s *PresenceStore) Leave(sessionID string) bool {
	s.mu.Lock()
	s.sweepLocked(s.now())

	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, sessionID)
	left := *session
	s.mu.Unlock()

	s.Emit(models.VisitorLeftPayload{SessionID: left.ID, RoomSlug: left.RoomSlug, RoomName: left.RoomName})
	return true
}

// SweepExpired drops sessions idle for longer than the TTL and returns how many.
// Expiry is silent: no visitor_left events.
func (s *PresenceStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *PresenceStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, session := range s.sessions {
		if now.Sub(session.LastSeen) > s.config.SessionTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// CountsByRoom returns the number of live sessions per room slug
func (s *PresenceStore) CountsByRoom() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())
	counts := make(map[string]int)
	for _, session := range s.sessions {
		counts[session.RoomSlug]++
	}
	return counts
}

// TotalCount returns the number of live sessions
func (s *PresenceStore) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())
	return len(s.sessions)
}

// Snapshot returns total and per-room counts taken at the same instant
func (s *PresenceStore) Snapshot() models.PresenceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())
	rooms := make(map[string]int)
	for _, session := range s.sessions {
		rooms[session.RoomSlug]++
	}
	return models.PresenceSnapshot{Total: len(s.sessions), Rooms: rooms}
}

// ============================================================================
// EVENTS
// ============================================================================

// Emit records an event in the ring buffer and delivers it to every subscriber
// before returning.
func (s *PresenceStore) Emit(payload models.EventPayload) models.ActivityEvent {
	s.mu.Lock()
	now := s.now()
	s.sweepLocked(now)
	event := models.ActivityEvent{
		ID:        uuid.NewString(),
		Type:      payload.EventType(),
		Timestamp: now,
		Payload:   payload,
		Message:   payload.Message(),
	}

	capacity := len(s.events)
	if s.eventCount < capacity {
		s.events[(s.eventHead+s.eventCount)%capacity] = event
		s.eventCount++
	} else {
		// Full: overwrite the oldest
		s.events[s.eventHead] = event
		s.eventHead = (s.eventHead + 1) % capacity
	}

	subscribers := make([]subscription, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subscribers {
		s.deliver(sub, event)
	}
	return event
}

func (s *PresenceStore) deliver(sub subscription, event models.ActivityEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"subscriber": sub.id,
				"event_type": event.Type,
				"panic":      fmt.Sprint(r),
			}).Error("Activity subscriber panicked")
		}
	}()

	if err := sub.fn(event); err != nil {
		s.logger.WithFields(logrus.Fields{
			"subscriber": sub.id,
			"event_type": event.Type,
			"error":      err.Error(),
		}).Warn("Activity subscriber failed")
	}
}

// RecentEvents returns the buffered events, oldest first
func (s *PresenceStore) RecentEvents() []models.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())
	out := make([]models.ActivityEvent, 0, s.eventCount)
	for i := 0; i < s.eventCount; i++ {
		out = append(out, s.events[(s.eventHead+i)%len(s.events)])
	}
	return out
}

// Subscribe registers fn for live delivery. The returned function removes it
// and may be called any number of times.
func (s *PresenceStore) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// SubscriberCount returns the number of registered subscribers
func (s *PresenceStore) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
