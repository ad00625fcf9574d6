package approval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"donorbridge/internal/session"
	"donorbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

// memoryStore backs every store interface with maps. The fn fields let a
// test replace a single method.
type memoryStore struct {
	mu sync.Mutex

	profiles     map[string]types.Profile
	donors       map[string]types.Donor
	schools      map[string]types.School
	donations    map[string]types.Donation
	applications map[string]types.ResourceApplication
	matches      map[string]types.Match

	seq int
	now time.Time

	updateProfileFn func(context.Context, string, *types.ProfileUpdate) error
	transitionFn    func(context.Context, string) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profiles:     map[string]types.Profile{},
		donors:       map[string]types.Donor{},
		schools:      map[string]types.School{},
		donations:    map[string]types.Donation{},
		applications: map[string]types.ResourceApplication{},
		matches:      map[string]types.Match{},
		now:          time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryStore) tick() time.Time {
	m.now = m.now.Add(time.Minute)
	return m.now
}

type snapshot struct {
	profiles     map[string]types.Profile
	donors       map[string]types.Donor
	schools      map[string]types.School
	donations    map[string]types.Donation
	applications map[string]types.ResourceApplication
	matches      map[string]types.Match
}

// InTx restores every map when fn fails.
func (m *memoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	snap := snapshot{
		profiles:     maps.Clone(m.profiles),
		donors:       maps.Clone(m.donors),
		schools:      maps.Clone(m.schools),
		donations:    maps.Clone(m.donations),
		applications: maps.Clone(m.applications),
		matches:      maps.Clone(m.matches),
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.profiles, m.donors, m.schools = snap.profiles, snap.donors, snap.schools
		m.donations, m.applications, m.matches = snap.donations, snap.applications, snap.matches
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryStore) Profile(_ context.Context, id string) (*types.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	return &p, nil
}

func (m *memoryStore) ProfilesByRole(_ context.Context, role types.Role) ([]*types.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Profile
	for _, id := range slices.Sorted(maps.Keys(m.profiles)) {
		if p := m.profiles[id]; p.Role == role {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateProfile(_ context.Context, profile *types.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile.CreatedAt = m.tick()
	profile.UpdatedAt = profile.CreatedAt
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *memoryStore) UpdateProfile(ctx context.Context, id string, u *types.ProfileUpdate) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, u)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return types.ErrProfileNotFound
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.IsVerified != nil {
		p.IsVerified = *u.IsVerified
	}
	if u.VerificationStatus != nil {
		p.VerificationStatus = u.VerificationStatus
	}
	if u.VerifiedBy != nil {
		p.VerifiedBy = u.VerifiedBy
	}
	if u.VerifiedAt != nil {
		p.VerifiedAt = u.VerifiedAt
	}
	p.UpdatedAt = m.tick()
	m.profiles[id] = p
	return nil
}

func (m *memoryStore) DriftedProfiles(_ context.Context, role types.Role) ([]*types.VerificationDrift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var drifts []*types.VerificationDrift
	for _, id := range slices.Sorted(maps.Keys(m.profiles)) {
		p := m.profiles[id]
		if p.Role != role {
			continue
		}

		drift := &types.VerificationDrift{
			ProfileID:       p.ID,
			Role:            p.Role,
			ProfileStatus:   p.VerificationStatus,
			ProfileVerified: p.IsVerified,
		}
		switch role {
		case types.RoleDonor:
			d, ok := m.donors[id]
			if !ok {
				continue
			}
			drift.RecordStatus, drift.RecordVerified = d.VerificationStatus, d.IsVerified
			drift.RecordVerifiedBy, drift.RecordVerifiedAt = d.VerifiedBy, d.VerifiedAt
		case types.RoleSchool:
			s, ok := m.schools[id]
			if !ok {
				continue
			}
			drift.RecordStatus, drift.RecordVerified = s.ApprovalStatus, s.IsVerified
			drift.RecordVerifiedBy, drift.RecordVerifiedAt = s.VerifiedBy, s.VerifiedAt
		}

		statusMatches := p.VerificationStatus != nil && *p.VerificationStatus == drift.RecordStatus
		activeMatches := p.IsActive == (drift.RecordStatus == types.VerificationApproved)
		if statusMatches && p.IsVerified == drift.RecordVerified && activeMatches {
			continue
		}
		drifts = append(drifts, drift)
	}
	return drifts, nil
}

func (m *memoryStore) Donor(_ context.Context, id string) (*types.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[id]
	if !ok {
		return nil, types.ErrDonorNotFound
	}
	return &d, nil
}

func (m *memoryStore) DonorsByStatus(_ context.Context, status types.VerificationStatus) ([]*types.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Donor
	for _, id := range slices.Sorted(maps.Keys(m.donors)) {
		if d := m.donors[id]; d.VerificationStatus == status {
			out = append(out, &d)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateDonor(_ context.Context, donor *types.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	donor.CreatedAt = m.tick()
	donor.UpdatedAt = donor.CreatedAt
	m.donors[donor.ID] = *donor
	return nil
}

func (m *memoryStore) UpdateDonor(_ context.Context, id string, u *types.DonorUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[id]
	if !ok {
		return types.ErrDonorNotFound
	}
	if u.IsVerified != nil {
		d.IsVerified = *u.IsVerified
	}
	if u.VerificationStatus != nil {
		d.VerificationStatus = *u.VerificationStatus
	}
	if u.VerifiedBy != nil {
		d.VerifiedBy = u.VerifiedBy
	}
	if u.VerifiedAt != nil {
		d.VerifiedAt = u.VerifiedAt
	}
	if u.RejectionReason != nil {
		d.RejectionReason = u.RejectionReason
	}
	if u.KYCDocumentKey != nil {
		d.KYCDocumentKey = u.KYCDocumentKey
	}
	d.UpdatedAt = m.tick()
	m.donors[id] = d
	return nil
}

func (m *memoryStore) School(_ context.Context, id string) (*types.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schools[id]
	if !ok {
		return nil, types.ErrSchoolNotFound
	}
	return &s, nil
}

func (m *memoryStore) SchoolsByStatus(_ context.Context, status types.VerificationStatus) ([]*types.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.School
	for _, id := range slices.Sorted(maps.Keys(m.schools)) {
		if s := m.schools[id]; s.ApprovalStatus == status {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateSchool(_ context.Context, school *types.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	school.CreatedAt = m.tick()
	school.UpdatedAt = school.CreatedAt
	m.schools[school.ID] = *school
	return nil
}

func (m *memoryStore) UpdateSchool(_ context.Context, id string, u *types.SchoolUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schools[id]
	if !ok {
		return types.ErrSchoolNotFound
	}
	if u.ApprovalStatus != nil {
		s.ApprovalStatus = *u.ApprovalStatus
	}
	if u.IsVerified != nil {
		s.IsVerified = *u.IsVerified
	}
	if u.VerifiedBy != nil {
		s.VerifiedBy = u.VerifiedBy
	}
	if u.VerifiedAt != nil {
		s.VerifiedAt = u.VerifiedAt
	}
	if u.RejectionReason != nil {
		s.RejectionReason = u.RejectionReason
	}
	if u.DocumentKey != nil {
		s.DocumentKey = u.DocumentKey
	}
	s.UpdatedAt = m.tick()
	m.schools[id] = s
	return nil
}

func (m *memoryStore) Donation(_ context.Context, id string) (*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, types.ErrDonationNotFound
	}
	return &d, nil
}

func (m *memoryStore) DonationWithDonor(ctx context.Context, id string) (*types.DonationWithDonor, error) {
	d, err := m.Donation(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profiles[d.DonorID]
	return &types.DonationWithDonor{Donation: *d, DonorEmail: p.Email, DonorName: p.FullName}, nil
}

func (m *memoryStore) DonationsByApprovalStatus(_ context.Context, status types.ApprovalStatus) ([]*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Donation
	for _, id := range slices.Sorted(maps.Keys(m.donations)) {
		if d := m.donations[id]; d.ApprovalStatus == status {
			out = append(out, &d)
		}
	}
	return out, nil
}

func (m *memoryStore) DonationsByDonor(_ context.Context, donorID string) ([]*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Donation
	for _, id := range slices.Sorted(maps.Keys(m.donations)) {
		if d := m.donations[id]; d.DonorID == donorID {
			out = append(out, &d)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateDonation(_ context.Context, donation *types.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	donation.ID = m.nextID("don")
	donation.CreatedAt = m.tick()
	donation.UpdatedAt = donation.CreatedAt
	m.donations[donation.ID] = *donation
	return nil
}

func applyDonation(d *types.Donation, u *types.DonationUpdate) {
	if u.Status != nil {
		d.Status = *u.Status
	}
	if u.ApprovalStatus != nil {
		d.ApprovalStatus = *u.ApprovalStatus
	}
	if u.RejectionReason != nil {
		d.RejectionReason = u.RejectionReason
	}
	if u.ReviewedBy != nil {
		d.ReviewedBy = u.ReviewedBy
	}
	if u.ReviewedAt != nil {
		d.ReviewedAt = u.ReviewedAt
	}
	if u.ApprovedBy != nil {
		d.ApprovedBy = u.ApprovedBy
	}
	if u.ApprovedAt != nil {
		d.ApprovedAt = u.ApprovedAt
	}
}

func (m *memoryStore) TransitionApproval(ctx context.Context, id string, from types.ApprovalStatus, u *types.DonationUpdate) error {
	if m.transitionFn != nil {
		if err := m.transitionFn(ctx, id); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok || d.ApprovalStatus != from {
		return types.ErrStaleTransition
	}
	applyDonation(&d, u)
	d.UpdatedAt = m.tick()
	m.donations[id] = d
	return nil
}

func (m *memoryStore) TransitionStatus(ctx context.Context, id string, from types.DonationStatus, u *types.DonationUpdate) error {
	if m.transitionFn != nil {
		if err := m.transitionFn(ctx, id); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok || d.Status != from {
		return types.ErrStaleTransition
	}
	applyDonation(&d, u)
	d.UpdatedAt = m.tick()
	m.donations[id] = d
	return nil
}

func (m *memoryStore) Application(_ context.Context, id string) (*types.ResourceApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return nil, types.ErrApplicationNotFound
	}
	return &a, nil
}

func (m *memoryStore) ApplicationsBySchool(_ context.Context, schoolID string) ([]*types.ResourceApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.ResourceApplication
	for _, id := range slices.Sorted(maps.Keys(m.applications)) {
		if a := m.applications[id]; a.SchoolID == schoolID {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateApplication(_ context.Context, application *types.ResourceApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	application.ID = m.nextID("app")
	application.CreatedAt = m.tick()
	application.UpdatedAt = application.CreatedAt
	m.applications[application.ID] = *application
	return nil
}

func (m *memoryStore) TransitionApplication(_ context.Context, id string, from []types.ApplicationStatus, u *types.ApplicationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok || !slices.Contains(from, a.Status) {
		return types.ErrStaleTransition
	}
	if u.ApplicationTitle != nil {
		a.ApplicationTitle = *u.ApplicationTitle
	}
	if u.Description != nil {
		a.Description = u.Description
	}
	if u.ItemsNeeded != nil {
		a.ItemsNeeded = *u.ItemsNeeded
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.RejectionReason != nil {
		a.RejectionReason = u.RejectionReason
	}
	if u.ReviewedBy != nil {
		a.ReviewedBy = u.ReviewedBy
	}
	if u.ReviewedAt != nil {
		a.ReviewedAt = u.ReviewedAt
	}
	if u.SubmittedAt != nil {
		a.SubmittedAt = u.SubmittedAt
	}
	a.UpdatedAt = m.tick()
	m.applications[id] = a
	return nil
}

func (m *memoryStore) Match(_ context.Context, id string) (*types.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[id]
	if !ok {
		return nil, types.ErrMatchNotFound
	}
	return &mt, nil
}

func (m *memoryStore) MatchesByDonation(_ context.Context, donationID string) ([]*types.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Match
	for _, id := range slices.Sorted(maps.Keys(m.matches)) {
		if mt := m.matches[id]; mt.DonationID == donationID {
			out = append(out, &mt)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateMatch(_ context.Context, match *types.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.matches {
		if existing.DonationID == match.DonationID && existing.ApplicationID == match.ApplicationID {
			return types.ErrMatchExists
		}
	}
	match.ID = m.nextID("match")
	match.CreatedAt = m.tick()
	match.UpdatedAt = match.CreatedAt
	m.matches[match.ID] = *match
	return nil
}

func (m *memoryStore) TransitionMatch(_ context.Context, id string, from types.MatchStatus, u *types.MatchUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[id]
	if !ok || mt.Status != from {
		return types.ErrStaleTransition
	}
	if u.Status != nil {
		mt.Status = *u.Status
	}
	if u.AdminNotes != nil {
		mt.AdminNotes = u.AdminNotes
	}
	if u.AllocatedBy != nil {
		mt.AllocatedBy = u.AllocatedBy
	}
	if u.AllocatedAt != nil {
		mt.AllocatedAt = u.AllocatedAt
	}
	if u.ReviewedBy != nil {
		mt.ReviewedBy = u.ReviewedBy
	}
	if u.ReviewedAt != nil {
		mt.ReviewedAt = u.ReviewedAt
	}
	if u.ApproverNotes != nil {
		mt.ApproverNotes = u.ApproverNotes
	}
	if u.RejectionReason != nil {
		mt.RejectionReason = u.RejectionReason
	}
	mt.UpdatedAt = m.tick()
	m.matches[id] = mt
	return nil
}

type registrarStub struct {
	signUpFn      func(context.Context, string, string, string) (string, error)
	createStaffFn func(context.Context, string, string) (string, error)
}

func (s *registrarStub) SignUp(ctx context.Context, email, password, fullName string) (string, error) {
	return s.signUpFn(ctx, email, password, fullName)
}

func (s *registrarStub) CreateStaff(ctx context.Context, email, fullName string) (string, error) {
	return s.createStaffFn(ctx, email, fullName)
}

type notifierStub struct {
	mu        sync.Mutex
	approvals []types.Notice
	rejects   []types.Notice
	err       error
}

func (n *notifierStub) SendApproval(_ context.Context, notice types.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvals = append(n.approvals, notice)
	return n.err
}

func (n *notifierStub) SendRejection(_ context.Context, notice types.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejects = append(n.rejects, notice)
	return n.err
}

var errBoom = errors.New("boom")

type harness struct {
	store    *memoryStore
	notifier *notifierStub
	reg      *registrarStub
	svc      *Service
}

func newHarness() *harness {
	store := newMemoryStore()
	notifier := &notifierStub{}
	reg := &registrarStub{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := New(Stores{
		Tx:           store,
		Profiles:     store,
		Donors:       store,
		Schools:      store,
		Donations:    store,
		Applications: store,
		Matches:      store,
	}, session.Provider{}, reg, notifier, logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	return &harness{store: store, notifier: notifier, reg: reg, svc: svc}
}

func as(id string) context.Context {
	return session.WithIdentity(context.Background(), types.Identity{ID: id, Email: id + "@example.org"})
}

func (h *harness) addProfile(id string, role types.Role, active bool) {
	status := types.VerificationApproved
	h.store.profiles[id] = types.Profile{
		ID:                 id,
		Email:              id + "@example.org",
		Role:               role,
		FullName:           "User " + id,
		IsActive:           active,
		IsVerified:         active,
		VerificationStatus: &status,
	}
}

func (h *harness) addDonor(id string, status types.VerificationStatus) {
	h.addProfile(id, types.RoleDonor, status == types.VerificationApproved)
	p := h.store.profiles[id]
	p.VerificationStatus = &status
	h.store.profiles[id] = p
	h.store.donors[id] = types.Donor{
		ID:                 id,
		FullName:           p.FullName,
		IsVerified:         status == types.VerificationApproved,
		VerificationStatus: status,
	}
}

func (h *harness) addSchool(id string, status types.VerificationStatus) {
	h.addProfile(id, types.RoleSchool, status == types.VerificationApproved)
	p := h.store.profiles[id]
	p.VerificationStatus = &status
	h.store.profiles[id] = p
	h.store.schools[id] = types.School{
		ID:             id,
		SchoolName:     "School " + id,
		ApprovalStatus: status,
		IsVerified:     status == types.VerificationApproved,
	}
}

func (h *harness) addDonation(id, donorID string, status types.DonationStatus, approval types.ApprovalStatus) {
	h.store.donations[id] = types.Donation{
		ID:             id,
		DonorID:        donorID,
		Title:          "Textbooks",
		Status:         status,
		ApprovalStatus: approval,
	}
}

// staff returns a harness with an active admin "adm" and approver "apv".
func staff() *harness {
	h := newHarness()
	h.addProfile("adm", types.RoleAdmin, true)
	h.addProfile("apv", types.RoleApprover, true)
	return h
}
