package devserver

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/taxbook/taxbook-go/api"
)

func (s *Server) handleOrgStatus(w http.ResponseWriter, r *http.Request) {
	var status api.OrganizationStatus
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		status = api.OrganizationStatus{
			OnboardingStatus: org.Status,
			IsCompleted:      org.Status == api.OnboardingCompleted,
		}
	})
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleOrgProfile(w http.ResponseWriter, r *http.Request) {
	var profile api.OrganizationProfile
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		profile = org.profile()
	})
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleOrgProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var update api.OrganizationProfileUpdate
	if !readJSON(w, r, &update) {
		return
	}

	var profile api.OrganizationProfile
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		if update.OrgType != nil {
			org.OrgType = update.OrgType
			if org.Status == api.OnboardingNotStarted {
				org.Status = api.OnboardingOrgType
			}
		}
		if update.TaxRegime != nil {
			org.TaxRegime = update.TaxRegime
			if org.Status == api.OnboardingOrgType {
				org.Status = api.OnboardingTaxRegime
			}
		}
		if update.TaxPeriodType != nil {
			org.TaxPeriodType = update.TaxPeriodType
		}
		if update.TaxPeriodPreset != nil {
			org.TaxPeriodPreset = update.TaxPeriodPreset
		}
		if update.TaxPeriodCustomDay != nil {
			org.TaxPeriodCustomDay = update.TaxPeriodCustomDay
		}
		profile = org.profile()
	})
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleOrgActivitiesList(w http.ResponseWriter, r *http.Request) {
	var activities []api.OrganizationActivity
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		for _, a := range org.activities {
			activities = append(activities, *a)
		}
	})
	sort.Slice(activities, func(i, j int) bool { return activities[i].ID < activities[j].ID })
	if activities == nil {
		activities = []api.OrganizationActivity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleOrgActivityCreate(w http.ResponseWriter, r *http.Request) {
	var create api.OrganizationActivityCreate
	if !readJSON(w, r, &create) {
		return
	}

	var name string
	for _, code := range s.store.listActivityCodes() {
		if code.ID == create.Activity {
			name = code.Name
			break
		}
	}
	if name == "" {
		writeFieldErrors(w, map[string][]string{"activity": {"Вид деятельности не найден."}})
		return
	}

	var created api.OrganizationActivity
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		org.nextActivityID++
		created = api.OrganizationActivity{
			ID:             org.nextActivityID,
			Activity:       create.Activity,
			ActivityName:   name,
			CashTaxRate:    create.CashTaxRate,
			NonCashTaxRate: create.NonCashTaxRate,
			IsPrimary:      create.IsPrimary,
		}
		org.activities[created.ID] = &created
		if org.Status == api.OnboardingTaxRegime {
			org.Status = api.OnboardingActivities
		}
	})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleOrgActivityUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	var update api.OrganizationActivityUpdate
	if !readJSON(w, r, &update) {
		return
	}

	var updated *api.OrganizationActivity
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		activity, ok := org.activities[id]
		if !ok {
			return
		}
		if update.CashTaxRate != nil {
			activity.CashTaxRate = *update.CashTaxRate
		}
		if update.NonCashTaxRate != nil {
			activity.NonCashTaxRate = *update.NonCashTaxRate
		}
		if update.IsPrimary != nil {
			activity.IsPrimary = *update.IsPrimary
		}
		copied := *activity
		updated = &copied
	})

	if updated == nil {
		writeDetail(w, http.StatusNotFound, "Вид деятельности не найден")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleOrgActivityDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	found := false
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		if _, ok := org.activities[id]; ok {
			delete(org.activities, id)
			found = true
		}
	})

	if !found {
		writeDetail(w, http.StatusNotFound, "Вид деятельности не найден")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFinalize completes onboarding once every step has data.
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var profile api.OrganizationProfile
	var missing string
	s.store.withOrg(accountFrom(r).ID, func(org *orgState) {
		switch {
		case org.OrgType == nil:
			missing = "Не выбрана форма организации"
		case org.TaxRegime == nil:
			missing = "Не выбран налоговый режим"
		case len(org.activities) == 0:
			missing = "Не добавлен ни один вид деятельности"
		default:
			org.Status = api.OnboardingCompleted
		}
		profile = org.profile()
	})

	if missing != "" {
		writeDetail(w, http.StatusBadRequest, missing)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
