package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered        uint64
	LoginsSucceeded        uint64
	LoginsFailed           uint64
	Logouts                uint64
	SessionsRejected       map[string]uint64
	AuthRateLimited        uint64
	TasksCreated           uint64
	TasksUpdated           uint64
	TasksDeleted           uint64
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	usersRegistered        atomic.Uint64
	loginsSucceeded        atomic.Uint64
	loginsFailed           atomic.Uint64
	logouts                atomic.Uint64
	rejectedMissing        atomic.Uint64
	rejectedInvalid        atomic.Uint64
	rejectedExpired        atomic.Uint64
	rejectedRevoked        atomic.Uint64
	authRateLimited        atomic.Uint64
	tasksCreated           atomic.Uint64
	tasksUpdated           atomic.Uint64
	tasksDeleted           atomic.Uint64
	requestDurationCount   atomic.Uint64
	requestDurationTotalNs atomic.Int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered: m.usersRegistered.Load(),
		LoginsSucceeded: m.loginsSucceeded.Load(),
		LoginsFailed:    m.loginsFailed.Load(),
		Logouts:         m.logouts.Load(),
		SessionsRejected: map[string]uint64{
			RejectMissing: m.rejectedMissing.Load(),
			RejectInvalid: m.rejectedInvalid.Load(),
			RejectExpired: m.rejectedExpired.Load(),
			RejectRevoked: m.rejectedRevoked.Load(),
		},
		AuthRateLimited:        m.authRateLimited.Load(),
		TasksCreated:           m.tasksCreated.Load(),
		TasksUpdated:           m.tasksUpdated.Load(),
		TasksDeleted:           m.tasksDeleted.Load(),
		RequestDurationCount:   m.requestDurationCount.Load(),
		RequestDurationTotalNs: m.requestDurationTotalNs.Load(),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	m.usersRegistered.Add(1)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == LoginSuccess {
		m.loginsSucceeded.Add(1)
		return
	}
	m.loginsFailed.Add(1)
}

// IncLogout increments the logout counter.
func (m *InMemoryRecorder) IncLogout() {
	m.logouts.Add(1)
}

// IncSessionRejected increments the rejection counter for reason.
// Unknown reasons count as invalid.
func (m *InMemoryRecorder) IncSessionRejected(reason string) {
	switch reason {
	case RejectMissing:
		m.rejectedMissing.Add(1)
	case RejectExpired:
		m.rejectedExpired.Add(1)
	case RejectRevoked:
		m.rejectedRevoked.Add(1)
	default:
		m.rejectedInvalid.Add(1)
	}
}

// IncAuthRateLimited increments the rate limited counter.
func (m *InMemoryRecorder) IncAuthRateLimited() {
	m.authRateLimited.Add(1)
}

// IncTaskCreated increments task created counter.
func (m *InMemoryRecorder) IncTaskCreated() {
	m.tasksCreated.Add(1)
}

// IncTaskUpdated increments task updated counter.
func (m *InMemoryRecorder) IncTaskUpdated() {
	m.tasksUpdated.Add(1)
}

// IncTaskDeleted increments task deleted counter.
func (m *InMemoryRecorder) IncTaskDeleted() {
	m.tasksDeleted.Add(1)
}

// ObserveRequestDuration records request duration.
func (m *InMemoryRecorder) ObserveRequestDuration(duration time.Duration) {
	m.requestDurationCount.Add(1)
	m.requestDurationTotalNs.Add(duration.Nanoseconds())
}
