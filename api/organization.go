package api

import (
	"context"
	"fmt"
)

// OrgType is the legal form of the organization.
type OrgType string

const (
	OrgTypeIndividualEntrepreneur OrgType = "ie"
	OrgTypeLLC                    OrgType = "llc"
)

// TaxRegime selects how tax is computed for the organization.
type TaxRegime string

const (
	TaxRegimeSingle  TaxRegime = "single"
	TaxRegimeGeneral TaxRegime = "general"
)

// OnboardingStatus is the server-tracked setup progression. The backend
// owns it; clients cache the latest fetch and never assume it only moves
// forward.
type OnboardingStatus string

const (
	OnboardingNotStarted OnboardingStatus = "not_started"
	OnboardingOrgType    OnboardingStatus = "org_type"
	OnboardingTaxRegime  OnboardingStatus = "tax_regime"
	OnboardingActivities OnboardingStatus = "activities"
	OnboardingCompleted  OnboardingStatus = "completed"
)

// OrganizationStatus is the response of GET /api/organization/status/.
type OrganizationStatus struct {
	OnboardingStatus OnboardingStatus `json:"onboarding_status"`
	IsCompleted      bool             `json:"is_completed"`
}

// OrganizationProfile is the organization setup record.
type OrganizationProfile struct {
	OrgType            *OrgType         `json:"org_type"`
	TaxRegime          *TaxRegime       `json:"tax_regime"`
	OnboardingStatus   OnboardingStatus `json:"onboarding_status"`
	TaxPeriodType      *string          `json:"tax_period_type,omitempty"`
	TaxPeriodPreset    *string          `json:"tax_period_preset,omitempty"`
	TaxPeriodCustomDay *int             `json:"tax_period_custom_day,omitempty"`
}

// OrganizationProfileUpdate is the PATCH /api/organization/profile/ body.
type OrganizationProfileUpdate struct {
	OrgType            *OrgType   `json:"org_type,omitempty"`
	TaxRegime          *TaxRegime `json:"tax_regime,omitempty"`
	TaxPeriodType      *string    `json:"tax_period_type,omitempty"`
	TaxPeriodPreset    *string    `json:"tax_period_preset,omitempty"`
	TaxPeriodCustomDay *int       `json:"tax_period_custom_day,omitempty"`
}

// OrganizationActivity links the organization to a national activity code
// with its cash/non-cash tax rates. Rates are decimal strings.
type OrganizationActivity struct {
	ID             int64  `json:"id"`
	Activity       int64  `json:"activity"`
	ActivityName   string `json:"activity_name"`
	CashTaxRate    string `json:"cash_tax_rate"`
	NonCashTaxRate string `json:"non_cash_tax_rate"`
	IsPrimary      bool   `json:"is_primary"`
}

// OrganizationActivityCreate is the POST /api/organization/activities/ body.
type OrganizationActivityCreate struct {
	Activity       int64  `json:"activity"`
	CashTaxRate    string `json:"cash_tax_rate"`
	NonCashTaxRate string `json:"non_cash_tax_rate"`
	IsPrimary      bool   `json:"is_primary"`
}

// OrganizationActivityUpdate is the PATCH body for a single activity.
type OrganizationActivityUpdate struct {
	CashTaxRate    *string `json:"cash_tax_rate,omitempty"`
	NonCashTaxRate *string `json:"non_cash_tax_rate,omitempty"`
	IsPrimary      *bool   `json:"is_primary,omitempty"`
}

// OrganizationStatus fetches the onboarding progression snapshot.
func (c *Client) OrganizationStatus(ctx context.Context) (OrganizationStatus, error) {
	var status OrganizationStatus
	err := c.Get(ctx, "/organization/status/", &status)
	return status, err
}

func (c *Client) OrganizationProfile(ctx context.Context) (*OrganizationProfile, error) {
	var profile OrganizationProfile
	if err := c.Get(ctx, "/organization/profile/", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UpdateOrganizationProfile(ctx context.Context, update OrganizationProfileUpdate) (*OrganizationProfile, error) {
	var profile OrganizationProfile
	if err := c.Patch(ctx, "/organization/profile/", update, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) ListOrganizationActivities(ctx context.Context) ([]OrganizationActivity, error) {
	return getList[OrganizationActivity](ctx, c, "/organization/activities/")
}

func (c *Client) CreateOrganizationActivity(ctx context.Context, create OrganizationActivityCreate) (*OrganizationActivity, error) {
	var activity OrganizationActivity
	if err := c.Post(ctx, "/organization/activities/", create, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (c *Client) UpdateOrganizationActivity(ctx context.Context, id int64, update OrganizationActivityUpdate) (*OrganizationActivity, error) {
	var activity OrganizationActivity
	if err := c.Patch(ctx, fmt.Sprintf("/organization/activities/%d/", id), update, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (c *Client) DeleteOrganizationActivity(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/organization/activities/%d/", id))
}

// FinalizeOnboarding marks setup as done via PATCH /api/organization/finalize/.
func (c *Client) FinalizeOnboarding(ctx context.Context) (*OrganizationProfile, error) {
	var profile OrganizationProfile
	if err := c.Patch(ctx, "/organization/finalize/", struct{}{}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
