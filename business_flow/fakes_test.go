package businessflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
)

// fakeStore is the shared in-memory state behind every fake repository
type fakeStore struct {
	mu sync.Mutex

	nextID uint

	customers      map[uint]*models.Customer
	wallets        map[uint]*models.Wallet
	snapshots      []*models.BalanceSnapshot
	transactions   []*models.Transaction
	audits         []*models.AuditLog
	savedAudiences []*models.SavedAudience
	lists          map[uint]*models.RecipientList
	contacts       []*models.Contact
	campaigns      map[uint]*models.Campaign
	templates      map[uint]*models.DesignTemplate
	events         []*models.TrackingEvent
	performance    map[uint]*models.CampaignPerformance

	lockedWallets []uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers:   map[uint]*models.Customer{},
		wallets:     map[uint]*models.Wallet{},
		lists:       map[uint]*models.RecipientList{},
		campaigns:   map[uint]*models.Campaign{},
		templates:   map[uint]*models.DesignTemplate{},
		performance: map[uint]*models.CampaignPerformance{},
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

// addCustomer seeds an active customer with a wallet holding balanceCents
func (s *fakeStore) addCustomer(balanceCents uint64) *models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &models.Customer{ID: s.id(), UUID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", IsActive: utils.ToPtr(true)}
	s.customers[c.ID] = c
	w := &models.Wallet{ID: s.id(), UUID: uuid.New(), CustomerID: c.ID}
	s.wallets[w.ID] = w
	s.snapshots = append(s.snapshots, &models.BalanceSnapshot{
		ID: s.id(), WalletID: w.ID, CustomerID: c.ID, FreeBalance: balanceCents, TotalBalance: balanceCents,
		Reason: "initial_snapshot", CreatedAt: utils.UTCNow(),
	})
	return c
}

func (s *fakeStore) latestSnapshot(walletID uint) *models.BalanceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].WalletID == walletID {
			return s.snapshots[i]
		}
	}
	return nil
}

func (s *fakeStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audits))
	for _, a := range s.audits {
		out = append(out, a.Action)
	}
	return out
}

// fakeTransactor snapshots the store and restores it when fn fails
type fakeTransactor struct {
	store *fakeStore
	calls int
}

func (t *fakeTransactor) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	t.calls++
	t.store.mu.Lock()
	lists := len(t.store.lists)
	contacts := len(t.store.contacts)
	snapshots := len(t.store.snapshots)
	transactions := len(t.store.transactions)
	listCopy := map[uint]*models.RecipientList{}
	for k, v := range t.store.lists {
		listCopy[k] = v
	}
	t.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		if len(t.store.lists) != lists {
			t.store.lists = listCopy
		}
		t.store.contacts = t.store.contacts[:contacts]
		t.store.snapshots = t.store.snapshots[:snapshots]
		t.store.transactions = t.store.transactions[:transactions]
		return err
	}
	return nil
}

// --- customers

type fakeCustomerRepo struct {
	repository.CustomerRepository
	store *fakeStore
}

func (r *fakeCustomerRepo) ByID(_ context.Context, id uint) (*models.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.customers[id], nil
}

// --- wallets

type fakeWalletRepo struct {
	repository.WalletRepository
	store *fakeStore
}

func (r *fakeWalletRepo) ByCustomerID(_ context.Context, customerID uint) (*models.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.wallets {
		if w.CustomerID == customerID {
			return w, nil
		}
	}
	return nil, nil
}

func (r *fakeWalletRepo) LockForUpdate(_ context.Context, walletID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.lockedWallets = append(r.store.lockedWallets, walletID)
	return nil
}

func (r *fakeWalletRepo) SaveWithInitialSnapshot(_ context.Context, wallet *models.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wallet.ID = r.store.id()
	r.store.wallets[wallet.ID] = wallet
	r.store.snapshots = append(r.store.snapshots, &models.BalanceSnapshot{
		ID: r.store.id(), WalletID: wallet.ID, CustomerID: wallet.CustomerID, Reason: "initial_snapshot",
	})
	return nil
}

// --- balance snapshots

type fakeBalanceSnapshotRepo struct {
	repository.BalanceSnapshotRepository
	store *fakeStore
}

func (r *fakeBalanceSnapshotRepo) GetLatestByWalletID(_ context.Context, walletID uint) (*models.BalanceSnapshot, error) {
	return r.store.latestSnapshot(walletID), nil
}

func (r *fakeBalanceSnapshotRepo) Count(_ context.Context, filter models.BalanceSnapshotFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, snap := range r.store.snapshots {
		if filter.WalletID == nil || snap.WalletID == *filter.WalletID {
			n++
		}
	}
	return n, nil
}

// ByWalletID pages newest first; the store appends in creation order
func (r *fakeBalanceSnapshotRepo) ByWalletID(_ context.Context, walletID uint, limit, offset int) ([]*models.BalanceSnapshot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.BalanceSnapshot
	for i := len(r.store.snapshots) - 1; i >= 0; i-- {
		if r.store.snapshots[i].WalletID == walletID {
			out = append(out, r.store.snapshots[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (r *fakeBalanceSnapshotRepo) Save(_ context.Context, snapshot *models.BalanceSnapshot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	snapshot.ID = r.store.id()
	snapshot.CreatedAt = utils.UTCNow()
	r.store.snapshots = append(r.store.snapshots, snapshot)
	return nil
}

// --- transactions

type fakeTransactionRepo struct {
	repository.TransactionRepository
	store *fakeStore
}

func (r *fakeTransactionRepo) Save(_ context.Context, tx *models.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx.ID = r.store.id()
	if tx.UUID == uuid.Nil {
		tx.UUID = uuid.New()
	}
	r.store.transactions = append(r.store.transactions, tx)
	return nil
}

func (r *fakeTransactionRepo) ByCorrelationID(_ context.Context, correlationID uuid.UUID) ([]*models.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Transaction
	for _, tx := range r.store.transactions {
		if tx.CorrelationID == correlationID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// --- audit

type fakeAuditRepo struct {
	repository.AuditLogRepository
	store *fakeStore
}

func (r *fakeAuditRepo) Save(_ context.Context, a *models.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a.ID = r.store.id()
	r.store.audits = append(r.store.audits, a)
	return nil
}

// --- saved audiences

type fakeSavedAudienceRepo struct {
	repository.SavedAudienceRepository
	store *fakeStore
}

func (r *fakeSavedAudienceRepo) Save(_ context.Context, a *models.SavedAudience) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a.ID = r.store.id()
	a.UUID = uuid.New()
	a.CreatedAt = utils.UTCNow()
	r.store.savedAudiences = append(r.store.savedAudiences, a)
	return nil
}

func (r *fakeSavedAudienceRepo) Count(_ context.Context, f models.SavedAudienceFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, a := range r.store.savedAudiences {
		if f.CustomerID == nil || a.CustomerID == *f.CustomerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeSavedAudienceRepo) ListByCustomer(_ context.Context, customerID uint, limit, offset int) ([]*models.SavedAudience, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.SavedAudience
	for i := len(r.store.savedAudiences) - 1; i >= 0; i-- {
		if a := r.store.savedAudiences[i]; a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return page(out, limit, offset), nil
}

// --- recipient lists and contacts

type fakeRecipientListRepo struct {
	repository.RecipientListRepository
	store *fakeStore
}

func (r *fakeRecipientListRepo) Save(_ context.Context, l *models.RecipientList) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	l.ID = r.store.id()
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	l.CreatedAt = utils.UTCNow()
	r.store.lists[l.ID] = l
	return nil
}

func (r *fakeRecipientListRepo) ByID(_ context.Context, id uint) (*models.RecipientList, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.lists[id], nil
}

func (r *fakeRecipientListRepo) ByUUID(_ context.Context, id string) (*models.RecipientList, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.lists {
		if l.UUID.String() == id {
			return l, nil
		}
	}
	return nil, nil
}

type fakeContactRepo struct {
	store   *fakeStore
	saveErr error
}

func (r *fakeContactRepo) SaveBatch(_ context.Context, contacts []*models.Contact) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range contacts {
		c.ID = r.store.id()
		c.CreatedAt = utils.UTCNow()
		r.store.contacts = append(r.store.contacts, c)
	}
	return nil
}

func (r *fakeContactRepo) ByTrackingID(_ context.Context, trackingID string) (*models.Contact, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.contacts {
		if c.TrackingID == trackingID {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeContactRepo) ListByRecipientList(_ context.Context, listID uint, limit, offset int) ([]*models.Contact, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Contact
	for _, c := range r.store.contacts {
		if c.RecipientListID == listID {
			out = append(out, c)
		}
	}
	return page(out, limit, offset), nil
}

func (r *fakeContactRepo) CountByRecipientList(_ context.Context, listID uint) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, c := range r.store.contacts {
		if c.RecipientListID == listID {
			n++
		}
	}
	return n, nil
}

// --- campaigns and templates

type fakeCampaignRepo struct {
	repository.CampaignRepository
	store *fakeStore
}

func (r *fakeCampaignRepo) withRelations(c *models.Campaign) *models.Campaign {
	cp := *c
	cp.DesignTemplate = r.store.templates[c.DesignTemplateID]
	cp.RecipientList = r.store.lists[c.RecipientListID]
	return &cp
}

func (r *fakeCampaignRepo) Save(_ context.Context, c *models.Campaign) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c.ID = r.store.id()
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	c.CreatedAt = utils.UTCNow()
	cp := *c
	r.store.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) Update(_ context.Context, c *models.Campaign) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c.UpdatedAt = utils.UTCNowPtr()
	cp := *c
	cp.DesignTemplate, cp.RecipientList = nil, nil
	r.store.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) ByID(_ context.Context, id uint) (*models.Campaign, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.campaigns[id]
	if !ok {
		return nil, nil
	}
	return r.withRelations(c), nil
}

func (r *fakeCampaignRepo) ByUUID(_ context.Context, id string) (*models.Campaign, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.campaigns {
		if c.UUID.String() == id {
			return r.withRelations(c), nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByRecipientListID(_ context.Context, listID uint) ([]*models.Campaign, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.store.campaigns {
		if c.RecipientListID == listID {
			out = append(out, r.withRelations(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeCampaignRepo) matching(f models.CampaignFilter) []*models.Campaign {
	var out []*models.Campaign
	for _, c := range r.store.campaigns {
		if f.CustomerID != nil && c.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		out = append(out, r.withRelations(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeCampaignRepo) Count(_ context.Context, f models.CampaignFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.matching(f))), nil
}

func (r *fakeCampaignRepo) ByFilter(_ context.Context, f models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.matching(f)
	if orderBy == "created_at ASC" {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	return page(out, limit, offset), nil
}

type fakeDesignTemplateRepo struct {
	repository.DesignTemplateRepository
	store *fakeStore
}

func (r *fakeDesignTemplateRepo) Save(_ context.Context, t *models.DesignTemplate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t.ID = r.store.id()
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	t.CreatedAt = utils.UTCNow()
	r.store.templates[t.ID] = t
	return nil
}

func (r *fakeDesignTemplateRepo) Update(_ context.Context, t *models.DesignTemplate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t.UpdatedAt = utils.UTCNowPtr()
	r.store.templates[t.ID] = t
	return nil
}

func (r *fakeDesignTemplateRepo) ByUUID(_ context.Context, id string) (*models.DesignTemplate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.templates {
		if t.UUID.String() == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeDesignTemplateRepo) Count(_ context.Context, f models.DesignTemplateFilter) (int64, error) {
	rows, _ := r.ByFilter(context.Background(), f, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *fakeDesignTemplateRepo) ByFilter(_ context.Context, f models.DesignTemplateFilter, _ string, limit, offset int) ([]*models.DesignTemplate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.DesignTemplate
	for _, t := range r.store.templates {
		if f.CustomerID == nil || t.CustomerID == *f.CustomerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

// --- tracking

type fakeTrackingRepo struct {
	store *fakeStore
}

func (r *fakeTrackingRepo) Save(_ context.Context, e *models.TrackingEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e.ID = r.store.id()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.UTCNow()
	}
	r.store.events = append(r.store.events, e)
	return nil
}

func (r *fakeTrackingRepo) SaveBatch(ctx context.Context, events []*models.TrackingEvent) error {
	for _, e := range events {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeTrackingRepo) CountByFilter(_ context.Context, f models.TrackingEventFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, e := range r.store.events {
		if f.Type != nil && e.Type != *f.Type {
			continue
		}
		if f.TrackingID != nil && e.TrackingID != *f.TrackingID {
			continue
		}
		n++
	}
	return n, nil
}

func (r *fakeTrackingRepo) CampaignPerformance(_ context.Context, campaignID uint) (*models.CampaignPerformance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.performance[campaignID], nil
}

func (r *fakeTrackingRepo) AllCampaignPerformance(_ context.Context) ([]*models.CampaignPerformance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*models.CampaignPerformance, 0, len(r.store.performance))
	for _, p := range r.store.performance {
		out = append(out, p)
	}
	return out, nil
}

// --- cache and provider

type fakeCountCache struct {
	mu      sync.Mutex
	entries map[string]int64
	getErr  error
}

func newFakeCountCache() *fakeCountCache {
	return &fakeCountCache{entries: map[string]int64{}}
}

func (c *fakeCountCache) Get(_ context.Context, hash string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return 0, false, c.getErr
	}
	v, ok := c.entries[hash]
	return v, ok, nil
}

func (c *fakeCountCache) Set(_ context.Context, hash string, count int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = count
	return nil
}

type fakeProvider struct {
	mu         sync.Mutex
	count      int64
	countErr   error
	fetchErr   error
	isMock     bool
	countCalls int
	fetchLimit int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Count(_ context.Context, _ models.AudienceFilters) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.countCalls++
	return p.count, p.countErr
}

func (p *fakeProvider) FetchContacts(_ context.Context, f models.AudienceFilters, limit int) (*services.ContactBatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchLimit = limit
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	n := int(min(int64(limit), p.count))
	contacts := make([]services.ProviderContact, n)
	for i := range contacts {
		contacts[i] = services.ProviderContact{FirstName: "Pat", LastName: "Doe", AddressLine1: "1 Main St", City: "Fresno", State: "ca", Zip: "93650"}
	}
	return &services.ContactBatch{Contacts: contacts, IsMock: p.isMock}, nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
