package campaign

import (
	"sync"
	"time"
)

type State string

const (
	StateCreated         State = "created"
	StateGenerating      State = "generating"
	StateComplianceCheck State = "compliance_check"
	StateFinalized       State = "finalized"
	StateRolledBack      State = "rolled_back"
)

func (s State) Terminal() bool {
	return s == StateFinalized || s == StateRolledBack
}

type Status struct {
	CampaignID        string    `json:"campaign_id"`
	State             State     `json:"state"`
	Products          int       `json:"products"`
	CompletedProducts int       `json:"completed_products"`
	Directory         string    `json:"directory,omitempty"`
	Error             string    `json:"error,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type TrackerOptions struct {
	MaxCampaigns int
}

// Tracker keeps the position of recent campaigns in their lifecycle. Only
// the newest MaxCampaigns entries are retained.
type Tracker struct {
	mu        sync.Mutex
	campaigns map[string]*Status
	order     []string
	max       int
}

func NewTracker(opts TrackerOptions) *Tracker {
	limit := opts.MaxCampaigns
	if limit <= 0 {
		limit = 200
	}

	return &Tracker{
		campaigns: make(map[string]*Status),
		max:       limit,
	}
}

func (t *Tracker) Start(id, dir string, products int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.campaigns[id] = &Status{
		CampaignID: id,
		State:      StateCreated,
		Products:   products,
		Directory:  dir,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	t.order = append(t.order, id)

	if len(t.order) > t.max {
		for _, old := range t.order[:len(t.order)-t.max] {
			delete(t.campaigns, old)
		}
		t.order = append([]string(nil), t.order[len(t.order)-t.max:]...)
	}
}

func (t *Tracker) Advance(id string, state State) {
	t.update(id, func(s *Status) {
		if !s.State.Terminal() {
			s.State = state
		}
	})
}

func (t *Tracker) ProductDone(id string) {
	t.update(id, func(s *Status) { s.CompletedProducts++ })
}

func (t *Tracker) RolledBack(id string, err error) {
	t.update(id, func(s *Status) {
		s.State = StateRolledBack
		s.Directory = ""
		if err != nil {
			s.Error = err.Error()
		}
	})
}

func (t *Tracker) Get(id string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.campaigns[id]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// Recent returns up to n statuses, newest first.
func (t *Tracker) Recent(n int) []Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.order) {
		n = len(t.order)
	}
	out := make([]Status, 0, n)
	for i := len(t.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *t.campaigns[t.order[i]])
	}
	return out
}

func (t *Tracker) update(id string, fn func(*Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.campaigns[id]; ok {
		fn(s)
		s.UpdatedAt = time.Now()
	}
}
