package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/clock"
	"github.com/cyphermed/record-access-api/internal/config"
	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/lock"
	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/notify"
)

// memStore is the shared in-memory backing for the fake DAOs. The services
// under test see the same behavior the SQL layer provides: lookups return
// (nil, nil) on miss and stored rows are copied on the way in and out.
type memStore struct {
	mu            sync.Mutex
	patients      map[string]*models.Patient
	guardians     map[string]*models.Guardian
	grants        map[string]*models.AccessGrant
	requests      map[string]*models.AccessRequest
	records       map[string]*models.Record
	births        map[string]*models.BirthRegistration
	audits        []models.AuditEvent
	notifications []models.Notification
}

func newMemStore() *memStore {
	return &memStore{
		patients:  make(map[string]*models.Patient),
		guardians: make(map[string]*models.Guardian),
		grants:    make(map[string]*models.AccessGrant),
		requests:  make(map[string]*models.AccessRequest),
		records:   make(map[string]*models.Record),
		births:    make(map[string]*models.BirthRegistration),
	}
}

// passthroughTx satisfies TxRunner without a real database. The fakes have
// no rollback; tests only assert committed outcomes.
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(*database.Transaction) error) error {
	return fn(nil)
}

type fakePatientDAO struct{ store *memStore }

func (f *fakePatientDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, patient *models.Patient) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *patient
	f.store.patients[patient.PatientID] = &cp
	return nil
}

func (f *fakePatientDAO) GetByID(ctx context.Context, patientID string) (*models.Patient, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	p, ok := f.store.patients[patientID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePatientDAO) GetByIdentity(ctx context.Context, identity string) (*models.Patient, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, p := range f.store.patients {
		if p.Identity == identity {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePatientDAO) List(ctx context.Context, limit, offset int) ([]models.Patient, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	all := make([]models.Patient, 0, len(f.store.patients))
	for _, p := range f.store.patients {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PatientID < all[j].PatientID })
	total := len(all)
	if offset >= total {
		return []models.Patient{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakePatientDAO) UpdateWithTx(ctx context.Context, tx *database.Transaction, patient *models.Patient) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *patient
	f.store.patients[patient.PatientID] = &cp
	return nil
}

type fakeGuardianDAO struct{ store *memStore }

func (f *fakeGuardianDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, guardian *models.Guardian) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *guardian
	f.store.guardians[guardian.GuardianID] = &cp
	return nil
}

func (f *fakeGuardianDAO) GetByID(ctx context.Context, guardianID string) (*models.Guardian, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g, ok := f.store.guardians[guardianID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGuardianDAO) ListByPatient(ctx context.Context, patientID string, activeOnly bool) ([]models.Guardian, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.Guardian
	for _, g := range f.store.guardians {
		if g.PatientID != patientID {
			continue
		}
		if activeOnly && !g.Active {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeGuardianDAO) ListByGuardianIdentity(ctx context.Context, identity string, activeOnly bool) ([]models.Guardian, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.Guardian
	for _, g := range f.store.guardians {
		if g.GuardianIdentity != identity {
			continue
		}
		if activeOnly && !g.Active {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeGuardianDAO) RevokeWithTx(ctx context.Context, tx *database.Transaction, guardianID, revokedBy string, revokedAt int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g := f.store.guardians[guardianID]
	g.Active = false
	g.RevokedAt = &revokedAt
	g.RevokedBy = &revokedBy
	return nil
}

func (f *fakeGuardianDAO) DeactivateAllForPatientWithTx(ctx context.Context, tx *database.Transaction, patientID string, revokedAt int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, g := range f.store.guardians {
		if g.PatientID == patientID && g.Active {
			g.Active = false
			g.RevokedAt = &revokedAt
		}
	}
	return nil
}

type fakeGrantDAO struct{ store *memStore }

func (f *fakeGrantDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, grant *models.AccessGrant) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *grant
	f.store.grants[grant.GrantID] = &cp
	return nil
}

func (f *fakeGrantDAO) GetByID(ctx context.Context, grantID string) (*models.AccessGrant, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g, ok := f.store.grants[grantID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGrantDAO) GetActivePair(ctx context.Context, patientID, providerIdentity string) (*models.AccessGrant, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, g := range f.store.grants {
		if g.PatientID == patientID && g.ProviderIdentity == providerIdentity && g.Active {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeGrantDAO) ListByPatient(ctx context.Context, patientID string, activeOnly bool, limit, offset int) ([]models.AccessGrant, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.AccessGrant
	for _, g := range f.store.grants {
		if g.PatientID != patientID {
			continue
		}
		if activeOnly && !g.Active {
			continue
		}
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (f *fakeGrantDAO) DeactivateWithTx(ctx context.Context, tx *database.Transaction, grantID, revokedBy string, revokedAt int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g := f.store.grants[grantID]
	g.Active = false
	g.RevokedAt = &revokedAt
	g.RevokedBy = &revokedBy
	return nil
}

func (f *fakeGrantDAO) DeactivateActivePairWithTx(ctx context.Context, tx *database.Transaction, patientID, providerIdentity, revokedBy string, revokedAt int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, g := range f.store.grants {
		if g.PatientID == patientID && g.ProviderIdentity == providerIdentity && g.Active {
			g.Active = false
			g.RevokedAt = &revokedAt
			g.RevokedBy = &revokedBy
		}
	}
	return nil
}

type fakeRequestDAO struct{ store *memStore }

func (f *fakeRequestDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, request *models.AccessRequest) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *request
	f.store.requests[request.RequestID] = &cp
	return nil
}

func (f *fakeRequestDAO) GetByID(ctx context.Context, requestID string) (*models.AccessRequest, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.requests[requestID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequestDAO) Search(ctx context.Context, filters models.RequestSearchFilters) ([]models.AccessRequest, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.AccessRequest
	for _, r := range f.store.requests {
		if filters.PatientID != "" && r.PatientID != filters.PatientID {
			continue
		}
		if filters.RequesterIdentity != "" && r.RequesterIdentity != filters.RequesterIdentity {
			continue
		}
		if filters.Status != "" && string(r.Status) != filters.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeRequestDAO) ResolveWithTx(ctx context.Context, tx *database.Transaction, requestID string, status models.RequestStatus, resolvedBy string, resolvedAt int64, denialReason *string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r := f.store.requests[requestID]
	r.Status = status
	r.ResolvedAt = &resolvedAt
	r.ResolvedBy = &resolvedBy
	r.DenialReason = denialReason
	return nil
}

type fakeRecordDAO struct{ store *memStore }

func (f *fakeRecordDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.Record) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *record
	f.store.records[record.RecordID] = &cp
	return nil
}

func (f *fakeRecordDAO) GetByID(ctx context.Context, recordID string) (*models.Record, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.records[recordID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecordDAO) ListByPatient(ctx context.Context, patientID string, includeDeleted bool, limit, offset int) ([]models.Record, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.Record
	for _, r := range f.store.records {
		if r.PatientID != patientID {
			continue
		}
		if !includeDeleted && !r.Active {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeRecordDAO) UpdateContentWithTx(ctx context.Context, tx *database.Transaction, recordID string, contentHash, metadata *string, modifiedAt int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r := f.store.records[recordID]
	if contentHash != nil {
		r.ContentHash = *contentHash
	}
	if metadata != nil {
		r.Metadata = metadata
	}
	r.ModifiedTime = modifiedAt
	return nil
}

func (f *fakeRecordDAO) SoftDeleteWithTx(ctx context.Context, tx *database.Transaction, recordID string, deletedAt int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r := f.store.records[recordID]
	r.Active = false
	r.ModifiedTime = deletedAt
	return nil
}

func (f *fakeRecordDAO) DeleteWithTx(ctx context.Context, tx *database.Transaction, recordID string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	delete(f.store.records, recordID)
	return nil
}

func (f *fakeRecordDAO) SetAccessSequenceWithTx(ctx context.Context, tx *database.Transaction, recordID string, sequence int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if r, ok := f.store.records[recordID]; ok {
		r.AccessSequence = sequence
	}
	return nil
}

type fakeAuditDAO struct{ store *memStore }

func (f *fakeAuditDAO) MaxSequenceWithTx(ctx context.Context, tx *database.Transaction, patientID string, recordID *string) (int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var max int64
	for _, e := range f.store.audits {
		if recordID != nil {
			if e.RecordID == nil || *e.RecordID != *recordID {
				continue
			}
		} else {
			if e.PatientID != patientID || e.RecordID != nil {
				continue
			}
		}
		if e.Sequence > max {
			max = e.Sequence
		}
	}
	return max, nil
}

func (f *fakeAuditDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, event *models.AuditEvent) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.audits = append(f.store.audits, *event)
	return nil
}

func (f *fakeAuditDAO) Search(ctx context.Context, filters models.AuditSearchFilters) ([]models.AuditEvent, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.AuditEvent
	for _, e := range f.store.audits {
		if filters.PatientID != "" && e.PatientID != filters.PatientID {
			continue
		}
		if filters.ActorIdentity != "" && e.ActorIdentity != filters.ActorIdentity {
			continue
		}
		if filters.Action != "" && e.Action != filters.Action {
			continue
		}
		if filters.RecordID != "" && (e.RecordID == nil || *e.RecordID != filters.RecordID) {
			continue
		}
		if filters.Success != nil && e.Success != *filters.Success {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeAuditDAO) Summary(ctx context.Context, filters models.AuditSearchFilters) (*models.ComplianceSummary, error) {
	events, total, _ := f.Search(ctx, filters)
	summary := &models.ComplianceSummary{TotalEvents: total}
	for _, e := range events {
		if e.Success {
			summary.SuccessfulCount++
		} else {
			summary.FailedCount++
		}
		if e.IsEmergency {
			summary.EmergencyCount++
		}
	}
	if total > 0 {
		summary.SuccessRate = float64(summary.SuccessfulCount) / float64(total)
	}
	return summary, nil
}

type fakeNotificationDAO struct{ store *memStore }

func (f *fakeNotificationDAO) Create(ctx context.Context, notification *models.Notification) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.notifications = append(f.store.notifications, *notification)
	return nil
}

func (f *fakeNotificationDAO) ListByTarget(ctx context.Context, targetIdentity string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.Notification
	for _, n := range f.store.notifications {
		if n.TargetIdentity != targetIdentity {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (f *fakeNotificationDAO) MarkRead(ctx context.Context, notificationID string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for i := range f.store.notifications {
		if f.store.notifications[i].NotificationID == notificationID {
			f.store.notifications[i].Read = true
		}
	}
	return nil
}

func (f *fakeNotificationDAO) MarkAllRead(ctx context.Context, targetIdentity string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for i := range f.store.notifications {
		if f.store.notifications[i].TargetIdentity == targetIdentity {
			f.store.notifications[i].Read = true
		}
	}
	return nil
}

func (f *fakeNotificationDAO) UnreadCount(ctx context.Context, targetIdentity string) (int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	count := 0
	for _, n := range f.store.notifications {
		if n.TargetIdentity == targetIdentity && !n.Read {
			count++
		}
	}
	return count, nil
}

type fakeBirthDAO struct{ store *memStore }

func (f *fakeBirthDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, registration *models.BirthRegistration) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *registration
	f.store.births[registration.RegistrationID] = &cp
	return nil
}

func (f *fakeBirthDAO) GetByPatientID(ctx context.Context, patientID string) (*models.BirthRegistration, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, b := range f.store.births {
		if b.PatientID == patientID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBirthDAO) GetByCertificateID(ctx context.Context, certificateID string) (*models.BirthRegistration, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, b := range f.store.births {
		if b.BirthCertificateID == certificateID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

// testEnv wires every service against the shared in-memory store.
type testEnv struct {
	store        *memStore
	clock        *clock.Fixed
	patients     *PatientService
	guardians    *GuardianService
	access       *AccessService
	records      *RecordService
	audit        *AuditService
	births       *BirthService
	notification *NotificationService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	clk := &clock.Fixed{Instant: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	locks := lock.NewKeyed()
	db := passthroughTx{}

	patientDAO := &fakePatientDAO{store: store}
	guardianDAO := &fakeGuardianDAO{store: store}
	grantDAO := &fakeGrantDAO{store: store}
	requestDAO := &fakeRequestDAO{store: store}
	recordDAO := &fakeRecordDAO{store: store}
	auditDAO := &fakeAuditDAO{store: store}
	notificationDAO := &fakeNotificationDAO{store: store}
	birthDAO := &fakeBirthDAO{store: store}

	notifier := notify.NewNotifier(notify.NewStoreSink(notificationDAO), clk, logger)
	cfg := config.AccessConfig{RequestTTLDays: 7, EmergencyCreateEnabled: true}

	audit := NewAuditService(db, auditDAO, recordDAO, locks, clk, logger)
	guardians := NewGuardianService(db, patientDAO, guardianDAO, audit, locks, clk, logger)
	access := NewAccessService(db, patientDAO, grantDAO, requestDAO, guardians, audit, notifier, locks, clk, cfg, logger)
	return &testEnv{
		store:        store,
		clock:        clk,
		audit:        audit,
		patients:     NewPatientService(db, patientDAO, guardianDAO, audit, locks, clk, logger),
		guardians:    guardians,
		access:       access,
		records:      NewRecordService(db, patientDAO, recordDAO, access, audit, notifier, locks, clk, logger),
		births:       NewBirthService(db, patientDAO, guardianDAO, recordDAO, birthDAO, audit, notifier, locks, clk, logger),
		notification: NewNotificationService(notificationDAO, logger),
	}
}

// registerAdult registers a patient born well before the age of majority.
func (env *testEnv) registerAdult(identity string) *models.Patient {
	patient, svcErr := env.patients.Register(context.Background(), &models.PatientRegisterAPIRequest{
		Identity:    identity,
		Name:        "Test Adult",
		DateOfBirth: "1990-06-15T00:00:00Z",
	})
	if svcErr != nil {
		panic(svcErr.ErrorDescription)
	}
	return patient
}

// registerMinor registers a patient who turns 18 on 2034-01-20.
func (env *testEnv) registerMinor(identity string) *models.Patient {
	patient, svcErr := env.patients.Register(context.Background(), &models.PatientRegisterAPIRequest{
		Identity:    identity,
		Name:        "Test Minor",
		DateOfBirth: "2016-01-20T00:00:00Z",
	})
	if svcErr != nil {
		panic(svcErr.ErrorDescription)
	}
	return patient
}

func (env *testEnv) auditEventsFor(patientID string) []models.AuditEvent {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	var out []models.AuditEvent
	for _, e := range env.store.audits {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out
}
