package devserver

import (
	"strconv"
	"sync"
	"time"

	"github.com/taxbook/taxbook-go/api"
)

type account struct {
	ID           int64
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	TelegramID   *string
	DateJoined   time.Time
}

func subjectOf(a *account) string {
	return strconv.FormatInt(a.ID, 10)
}

func (a *account) profile() api.UserProfile {
	return api.UserProfile{
		ID:         a.ID,
		Email:      a.Email,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		TelegramID: a.TelegramID,
		DateJoined: a.DateJoined.Format(time.RFC3339),
	}
}

type orgState struct {
	OrgType            *api.OrgType
	TaxRegime          *api.TaxRegime
	Status             api.OnboardingStatus
	TaxPeriodType      *string
	TaxPeriodPreset    *string
	TaxPeriodCustomDay *int

	activities     map[int64]*api.OrganizationActivity
	nextActivityID int64
}

func (o *orgState) profile() api.OrganizationProfile {
	return api.OrganizationProfile{
		OrgType:            o.OrgType,
		TaxRegime:          o.TaxRegime,
		OnboardingStatus:   o.Status,
		TaxPeriodType:      o.TaxPeriodType,
		TaxPeriodPreset:    o.TaxPeriodPreset,
		TaxPeriodCustomDay: o.TaxPeriodCustomDay,
	}
}

type memoryStore struct {
	lock sync.RWMutex

	accounts map[int64]*account
	emails   map[string]int64
	nextID   int64

	revoked map[string]struct{} // refresh token jtis

	orgs         map[int64]*orgState
	categories   map[int64]map[int64]*api.Category
	nextCatID    int64
	transactions map[int64]map[int64]*api.Transaction
	nextTxID     int64

	activityCodes []api.ActivityCode
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:      make(map[int64]*account),
		emails:        make(map[string]int64),
		revoked:       make(map[string]struct{}),
		orgs:          make(map[int64]*orgState),
		categories:    make(map[int64]map[int64]*api.Category),
		transactions:  make(map[int64]map[int64]*api.Transaction),
		activityCodes: seedActivityCodes(),
	}
}

func (s *memoryStore) createAccount(email string, passwordHash []byte, firstName, lastName string) (*account, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.emails[email]; exists {
		return nil, false
	}

	s.nextID++
	a := &account{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		DateJoined:   time.Now().UTC(),
	}
	s.accounts[a.ID] = a
	s.emails[email] = a.ID

	s.orgs[a.ID] = &orgState{
		Status:     api.OnboardingNotStarted,
		activities: make(map[int64]*api.OrganizationActivity),
	}
	s.categories[a.ID] = seedCategories(&s.nextCatID)
	s.transactions[a.ID] = make(map[int64]*api.Transaction)
	return a, true
}

func (s *memoryStore) accountByEmail(email string) (*account, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, false
	}
	a, ok := s.accounts[id]
	return a, ok
}

func (s *memoryStore) accountByID(id int64) (*account, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	a, ok := s.accounts[id]
	return a, ok
}

func (s *memoryStore) accountBySubject(sub string) (*account, bool) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, false
	}
	return s.accountByID(id)
}

func (s *memoryStore) revoke(jti string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.revoked[jti] = struct{}{}
}

func (s *memoryStore) isRevoked(jti string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.revoked[jti]
	return ok
}

// orgFor returns the organization state of the user. The caller must treat
// the pointer as guarded by withLock.
func (s *memoryStore) withOrg(userID int64, fn func(*orgState)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	org, ok := s.orgs[userID]
	if !ok {
		org = &orgState{Status: api.OnboardingNotStarted, activities: make(map[int64]*api.OrganizationActivity)}
		s.orgs[userID] = org
	}
	fn(org)
}

func (s *memoryStore) withCategories(userID int64, fn func(map[int64]*api.Category, *int64)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	cats, ok := s.categories[userID]
	if !ok {
		cats = make(map[int64]*api.Category)
		s.categories[userID] = cats
	}
	fn(cats, &s.nextCatID)
}

func (s *memoryStore) withTransactions(userID int64, fn func(map[int64]*api.Transaction, *int64)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	txs, ok := s.transactions[userID]
	if !ok {
		txs = make(map[int64]*api.Transaction)
		s.transactions[userID] = txs
	}
	fn(txs, &s.nextTxID)
}

func (s *memoryStore) listActivityCodes() []api.ActivityCode {
	s.lock.RLock()
	defer s.lock.RUnlock()
	codes := make([]api.ActivityCode, len(s.activityCodes))
	copy(codes, s.activityCodes)
	return codes
}

func seedCategories(nextID *int64) map[int64]*api.Category {
	cats := make(map[int64]*api.Category)
	for _, seed := range []struct {
		name  string
		ctype string
	}{
		{"Продажи", "income"},
		{"Услуги", "income"},
		{"Аренда", "expense"},
		{"Закупки", "expense"},
	} {
		*nextID++
		cats[*nextID] = &api.Category{
			ID:           *nextID,
			Name:         seed.name,
			CategoryType: seed.ctype,
			IsSystem:     true,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		}
	}
	return cats
}

// seedActivityCodes is a small slice of the national classifier, enough
// for the onboarding picker to have something to search.
func seedActivityCodes() []api.ActivityCode {
	return []api.ActivityCode{
		{ID: 1, Code: "47.11", Section: "G", Name: "Розничная торговля в неспециализированных магазинах"},
		{ID: 2, Code: "56.10", Section: "I", Name: "Деятельность ресторанов и кафе"},
		{ID: 3, Code: "62.01", Section: "J", Name: "Разработка программного обеспечения"},
		{ID: 4, Code: "68.20", Section: "L", Name: "Аренда и управление недвижимостью"},
		{ID: 5, Code: "96.02", Section: "S", Name: "Парикмахерские и салоны красоты"},
	}
}
