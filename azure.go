package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// HTTP client interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const managementBaseURL = "https://management.azure.com"

// errUnauthorized marks 401/403 responses so callers can distinguish
// visibility gaps from other transport failures when logging. Both degrade
// identically at row level.
var errUnauthorized = errors.New("caller is not authorized for this resource")

// Azure API structures
type Subscription struct {
	ID                  string `json:"subscriptionId"`
	DisplayName         string `json:"displayName"`
	TenantID            string `json:"tenantId"`
	State               string `json:"state"`
	AuthorizationSource string `json:"authorizationSource"`
	IsDefault           bool   `json:"isDefault"`
	SubscriptionPolicies struct {
		QuotaID       string `json:"quotaId"`
		SpendingLimit string `json:"spendingLimit"`
	} `json:"subscriptionPolicies"`
}

type SubscriptionsResponse struct {
	Value []Subscription `json:"value"`
}

type SubscriptionDetails struct {
	QuotaID             string
	SpendingLimit       string
	AuthorizationSource string
	OfferType           string
}

type ClassicAdministrator struct {
	Properties struct {
		EmailAddress string `json:"emailAddress"`
		Role         string `json:"role"`
	} `json:"properties"`
}

type classicAdministratorsResponse struct {
	Value []ClassicAdministrator `json:"value"`
}

type BillingAccount struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties struct {
		DisplayName   string `json:"displayName"`
		AgreementType string `json:"agreementType"`
	} `json:"properties"`
}

type billingAccountsResponse struct {
	Value []BillingAccount `json:"value"`
}

// BillingHierarchy locates a subscription inside a modern billing agreement.
// Each level is optional; the narrowest resolvable scope is preferred for
// role assignment queries.
type BillingHierarchy struct {
	AccountID        string
	ProfileID        string
	InvoiceSectionID string
}

// Scope returns the ARM billing scope string for the narrowest resolved
// level, or "" when not even the account is known.
func (h BillingHierarchy) Scope() string {
	if h.AccountID == "" {
		return ""
	}
	scope := "/providers/Microsoft.Billing/billingAccounts/" + h.AccountID
	if h.ProfileID != "" {
		scope += "/billingProfiles/" + h.ProfileID
		if h.InvoiceSectionID != "" {
			scope += "/invoiceSections/" + h.InvoiceSectionID
		}
	}
	return scope
}

type RoleAssignment struct {
	Properties struct {
		PrincipalName      string `json:"principalName"`
		PrincipalEmail     string `json:"userEmailAddress"`
		RoleDefinitionName string `json:"roleDefinitionName"`
	} `json:"properties"`
}

type roleAssignmentsResponse struct {
	Value []RoleAssignment `json:"value"`
}

// CLI configuration
type Config struct {
	AccessToken    string
	Columns        string
	OutDir         string
	WriteJSON      bool
	WriteXLSX      bool
	Porcelain      bool
	MaxConcurrency int
}

// Azure client struct
type AzureClient struct {
	Config     Config
	HTTPClient HTTPClient
}

func (ac *AzureClient) makeAzureRequest(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+ac.Config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ac.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close response body")
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("API request failed with status %d: %w", resp.StatusCode, errUnauthorized)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

// getJSON performs a GET against url and decodes the body into out.
func (ac *AzureClient) getJSON(url string, out interface{}) error {
	resp, err := ac.makeAzureRequest(url)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ListSubscriptions returns every subscription visible to the caller in the
// tenant. Visibility depends on the caller's roles; the list may be empty.
func (ac *AzureClient) ListSubscriptions() ([]Subscription, error) {
	url := fmt.Sprintf("%s/subscriptions?api-version=2020-01-01", managementBaseURL)

	var response SubscriptionsResponse
	if err := ac.getJSON(url, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	return response.Value, nil
}

// GetSubscriptionDetails fetches the per-subscription view, which carries the
// quota identifier and authorization source even when the list view omits
// them. Authorization failures are expected for partially visible tenants.
func (ac *AzureClient) GetSubscriptionDetails(subscriptionID string) (SubscriptionDetails, error) {
	url := fmt.Sprintf("%s/subscriptions/%s?api-version=2020-01-01", managementBaseURL, subscriptionID)

	var payload struct {
		AuthorizationSource string `json:"authorizationSource"`
		OfferType           string `json:"offerType"`
		SubscriptionPolicies struct {
			QuotaID       string `json:"quotaId"`
			SpendingLimit string `json:"spendingLimit"`
		} `json:"subscriptionPolicies"`
	}
	if err := ac.getJSON(url, &payload); err != nil {
		return SubscriptionDetails{}, fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}
	return SubscriptionDetails{
		QuotaID:             payload.SubscriptionPolicies.QuotaID,
		SpendingLimit:       payload.SubscriptionPolicies.SpendingLimit,
		AuthorizationSource: payload.AuthorizationSource,
		OfferType:           payload.OfferType,
	}, nil
}

// ListClassicAdministrators returns the legacy administrator designations of
// a subscription. Only classic (pre-RBAC) subscription types carry these.
func (ac *AzureClient) ListClassicAdministrators(subscriptionID string) ([]ClassicAdministrator, error) {
	url := fmt.Sprintf("%s/subscriptions/%s/providers/Microsoft.Authorization/classicAdministrators?api-version=2015-06-01",
		managementBaseURL, subscriptionID)

	var response classicAdministratorsResponse
	if err := ac.getJSON(url, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch classic administrators for %s: %w", subscriptionID, err)
	}
	return response.Value, nil
}

// ListBillingAccounts returns the billing accounts visible at tenant level.
// Most tenants expose at most one.
func (ac *AzureClient) ListBillingAccounts() ([]BillingAccount, error) {
	url := fmt.Sprintf("%s/providers/Microsoft.Billing/billingAccounts?api-version=2020-05-01", managementBaseURL)

	var response billingAccountsResponse
	if err := ac.getJSON(url, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch billing accounts: %w", err)
	}
	return response.Value, nil
}

// GetBillingHierarchy resolves account, profile and invoice section for a
// subscription by probing each visible billing account. The first account
// that knows the subscription wins.
func (ac *AzureClient) GetBillingHierarchy(subscriptionID string) (BillingHierarchy, error) {
	accounts, err := ac.ListBillingAccounts()
	if err != nil {
		return BillingHierarchy{}, err
	}

	for _, account := range accounts {
		name := account.Name
		if name == "" {
			name = lastSegment(account.ID)
		}
		if name == "" {
			continue
		}
		url := fmt.Sprintf("%s/providers/Microsoft.Billing/billingAccounts/%s/billingSubscriptions/%s?api-version=2020-05-01",
			managementBaseURL, name, subscriptionID)

		var payload struct {
			Properties struct {
				BillingProfileID string `json:"billingProfileId"`
				InvoiceSectionID string `json:"invoiceSectionId"`
			} `json:"properties"`
		}
		if err := ac.getJSON(url, &payload); err != nil {
			log.Debug().Err(err).Str("billingAccount", name).Str("subscription", subscriptionID).
				Msg("billing account does not resolve subscription")
			continue
		}
		return BillingHierarchy{
			AccountID:        name,
			ProfileID:        lastSegment(payload.Properties.BillingProfileID),
			InvoiceSectionID: lastSegment(payload.Properties.InvoiceSectionID),
		}, nil
	}
	return BillingHierarchy{}, fmt.Errorf("no billing account resolves subscription %s", subscriptionID)
}

// ListBillingRoleAssignments returns role assignments at a billing scope,
// filtered to role definition names containing roleFilter.
func (ac *AzureClient) ListBillingRoleAssignments(scope, roleFilter string) ([]RoleAssignment, error) {
	url := fmt.Sprintf("%s%s/billingRoleAssignments?api-version=2020-05-01", managementBaseURL, scope)

	var response roleAssignmentsResponse
	if err := ac.getJSON(url, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch role assignments at %s: %w", scope, err)
	}

	if roleFilter == "" {
		return response.Value, nil
	}
	var filtered []RoleAssignment
	for _, assignment := range response.Value {
		if strings.Contains(assignment.Properties.RoleDefinitionName, roleFilter) {
			filtered = append(filtered, assignment)
		}
	}
	return filtered, nil
}

// lastSegment extracts the trailing path segment of an ARM resource ID.
// Billing profile and invoice section IDs arrive fully qualified.
func lastSegment(resourceID string) string {
	if resourceID == "" {
		return ""
	}
	parts := strings.Split(strings.TrimRight(resourceID, "/"), "/")
	return parts[len(parts)-1]
}
