package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tech-arch1tect/votegate/testutils"
)

type fakeRegistry struct {
	mu        sync.Mutex
	voters    map[uint]*Voter
	elections map[uint]*Election
	err       error
	voterHits int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		voters:    make(map[uint]*Voter),
		elections: make(map[uint]*Election),
	}
}

func (f *fakeRegistry) FindVoter(ctx context.Context, id uint) (*Voter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voterHits++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.voters[id]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (f *fakeRegistry) FindElection(ctx context.Context, id uint) (*Election, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.elections[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (f *fakeRegistry) addVoter(v Voter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voters[v.ID] = &v
}

func (f *fakeRegistry) addElection(e Election) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elections[e.ID] = &e
}

// seeded returns a registry with voter 1 (pending, unit 10) and election 5 (unit 10).
func seeded() *fakeRegistry {
	reg := newFakeRegistry()
	reg.addVoter(Voter{
		ID:             1,
		State:          "pending",
		UnitID:         10,
		UnitName:       "North Campus",
		DisplayName:    "Ana Torres",
		ContactAddress: "  ana.torres@example.edu ",
	})
	reg.addElection(Election{
		ID:             5,
		Name:           "Student Representative 2025",
		UnitID:         10,
		UnitName:       "North Campus",
		CandidateCount: 3,
	})
	return reg
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (s *sequenceCodes) Next(length int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.codes) {
		return "", errors.New("code sequence exhausted")
	}
	code := s.codes[s.next]
	s.next++
	return code, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	issues   []string
	verifies []string
	notify   []error
	swept    int64
}

func (o *recordingObserver) ObserveIssue(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issues = append(o.issues, outcome)
}

func (o *recordingObserver) ObserveVerify(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verifies = append(o.verifies, outcome)
}

func (o *recordingObserver) ObserveNotify(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notify = append(o.notify, err)
}

func (o *recordingObserver) ObserveSweep(deleted int64, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.swept += deleted
}

type harness struct {
	store    *GormStore
	registry *fakeRegistry
	clock    *testutils.Clock
	notifier *MockNotifier
	observer *recordingObserver
	issuer   *Issuer
	verifier *Verifier
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	development bool
	requirePair bool
	codes       CodeSource
	allowed     []string
}

func production() harnessOption {
	return func(c *harnessConfig) { c.development = false }
}

func scopedLookup() harnessOption {
	return func(c *harnessConfig) { c.requirePair = true }
}

func withCodes(codes ...string) harnessOption {
	return func(c *harnessConfig) { c.codes = &sequenceCodes{codes: codes} }
}

func withAllowed(states ...string) harnessOption {
	return func(c *harnessConfig) { c.allowed = states }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	hc := harnessConfig{
		development: true,
		allowed:     []string{"active", "in-training", "suspended", "pending", "conditional"},
	}
	for _, opt := range opts {
		opt(&hc)
	}

	db := testutils.SetupTestDB(t, &Record{})
	h := &harness{
		store:    NewGormStore(db),
		registry: seeded(),
		clock:    testutils.NewClock(testutils.FixedTime),
		notifier: &MockNotifier{},
		observer: &recordingObserver{},
	}

	checker := NewChecker(h.registry, h.registry, h.store, hc.allowed, nil, WithCheckerClock(h.clock))
	h.issuer = NewIssuer(checker, h.store, hc.codes, h.notifier, h.clock, IssuerConfig{
		Expiry:      5 * time.Minute,
		CodeLength:  6,
		Development: hc.development,
	}, h.observer, nil)
	h.verifier = NewVerifier(h.store, h.clock, VerifierConfig{
		Expiry:      5 * time.Minute,
		CodeLength:  6,
		RequirePair: hc.requirePair,
	}, h.observer, nil)

	return h
}

func (h *harness) notifyOK() {
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
}
