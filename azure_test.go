package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMakeAzureRequestSetsBearerToken(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"value": []}`)
	}))
	defer server.Close()

	client := &AzureClient{Config: Config{AccessToken: "secret-token"}, HTTPClient: server.Client()}
	resp, err := client.makeAzureRequest(server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if authHeader != "Bearer secret-token" {
		t.Errorf("expected bearer token header, got %q", authHeader)
	}
}

func TestMakeAzureRequestUnauthorizedSentinel(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			fmt.Fprint(w, `{"error": {"code": "AuthorizationFailed"}}`)
		}))

		client := &AzureClient{Config: Config{AccessToken: "token"}, HTTPClient: server.Client()}
		_, err := client.makeAzureRequest(server.URL)
		if err == nil {
			t.Fatalf("expected error for status %d", code)
		}
		if !errors.Is(err, errUnauthorized) {
			t.Errorf("status %d: expected errUnauthorized in chain, got %v", code, err)
		}
		server.Close()
	}
}

func TestMakeAzureRequestServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"code": "InternalServerError"}}`)
	}))
	defer server.Close()

	client := &AzureClient{Config: Config{AccessToken: "token"}, HTTPClient: server.Client()}
	_, err := client.makeAzureRequest(server.URL)
	if err == nil {
		t.Fatal("expected error for status 500")
	}
	if errors.Is(err, errUnauthorized) {
		t.Errorf("500 must not map to errUnauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "InternalServerError") {
		t.Errorf("expected response body in error, got %v", err)
	}
}

func TestListSubscriptionsParsesPolicies(t *testing.T) {
	client := testClient(&MockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/subscriptions" {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{
				"value": [
					{
						"subscriptionId": "sub-1",
						"displayName": "production",
						"tenantId": "tenant-1",
						"state": "Enabled",
						"authorizationSource": "RoleBased",
						"isDefault": true,
						"subscriptionPolicies": {"quotaId": "MS-AZR-0017P", "spendingLimit": "Off"}
					},
					{
						"subscriptionId": "sub-2",
						"displayName": "sandbox",
						"tenantId": "tenant-1",
						"state": "Warned"
					}
				]
			}`), nil
		},
	})

	subs, err := client.ListSubscriptions()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subs))
	}
	if subs[0].SubscriptionPolicies.QuotaID != "MS-AZR-0017P" {
		t.Errorf("expected quota from policies, got %q", subs[0].SubscriptionPolicies.QuotaID)
	}
	if !subs[0].IsDefault {
		t.Error("expected first subscription to be default")
	}
	// Unrecognized lifecycle states pass through untouched.
	if subs[1].State != "Warned" {
		t.Errorf("expected Warned state passthrough, got %q", subs[1].State)
	}
}

func TestGetSubscriptionDetails(t *testing.T) {
	client := testClient(&MockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{
				"authorizationSource": "Legacy",
				"offerType": "Pay-As-You-Go",
				"subscriptionPolicies": {"quotaId": "PayAsYouGo_2014-09-01", "spendingLimit": "On"}
			}`), nil
		},
	})

	details, err := client.GetSubscriptionDetails("sub-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if details.QuotaID != "PayAsYouGo_2014-09-01" {
		t.Errorf("unexpected quota: %q", details.QuotaID)
	}
	if details.OfferType != "Pay-As-You-Go" {
		t.Errorf("unexpected offer type: %q", details.OfferType)
	}
	if details.SpendingLimit != "On" {
		t.Errorf("unexpected spending limit: %q", details.SpendingLimit)
	}
}

func TestGetBillingHierarchyFirstResolvingAccountWins(t *testing.T) {
	client := testClient(&MockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			switch {
			case strings.Contains(req.URL.Path, "/billingAccounts/ba1/billingSubscriptions/"):
				return jsonResponse(http.StatusNotFound, `{"error": {"code": "NotFound"}}`), nil
			case strings.Contains(req.URL.Path, "/billingAccounts/ba2/billingSubscriptions/"):
				return jsonResponse(http.StatusOK, `{
					"properties": {"billingProfileId": "/providers/Microsoft.Billing/billingAccounts/ba2/billingProfiles/p2"}
				}`), nil
			case strings.Contains(req.URL.Path, "billingAccounts"):
				return jsonResponse(http.StatusOK, `{
					"value": [
						{"name": "ba1", "properties": {"agreementType": "MicrosoftCustomerAgreement"}},
						{"name": "ba2", "properties": {"agreementType": "MicrosoftCustomerAgreement"}}
					]
				}`), nil
			}
			return emptyListResponse(), nil
		},
	})

	hierarchy, err := client.GetBillingHierarchy("sub-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hierarchy.AccountID != "ba2" {
		t.Errorf("expected ba2, got %q", hierarchy.AccountID)
	}
	if hierarchy.ProfileID != "p2" {
		t.Errorf("expected p2, got %q", hierarchy.ProfileID)
	}
	if hierarchy.InvoiceSectionID != "" {
		t.Errorf("expected empty invoice section, got %q", hierarchy.InvoiceSectionID)
	}
}

func TestBillingHierarchyScope(t *testing.T) {
	testCases := []struct {
		name      string
		hierarchy BillingHierarchy
		expected  string
	}{
		{
			name:      "unresolved",
			hierarchy: BillingHierarchy{},
			expected:  "",
		},
		{
			name:      "account only",
			hierarchy: BillingHierarchy{AccountID: "ba1"},
			expected:  "/providers/Microsoft.Billing/billingAccounts/ba1",
		},
		{
			name:      "account and profile",
			hierarchy: BillingHierarchy{AccountID: "ba1", ProfileID: "p1"},
			expected:  "/providers/Microsoft.Billing/billingAccounts/ba1/billingProfiles/p1",
		},
		{
			name:      "full hierarchy",
			hierarchy: BillingHierarchy{AccountID: "ba1", ProfileID: "p1", InvoiceSectionID: "s1"},
			expected:  "/providers/Microsoft.Billing/billingAccounts/ba1/billingProfiles/p1/invoiceSections/s1",
		},
		{
			name:      "invoice section without profile is ignored",
			hierarchy: BillingHierarchy{AccountID: "ba1", InvoiceSectionID: "s1"},
			expected:  "/providers/Microsoft.Billing/billingAccounts/ba1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if scope := tc.hierarchy.Scope(); scope != tc.expected {
				t.Errorf("Scope() = %q, want %q", scope, tc.expected)
			}
		})
	}
}

func TestListBillingRoleAssignmentsFilters(t *testing.T) {
	client := testClient(&MockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{
				"value": [
					{"properties": {"principalName": "bob@example.com", "roleDefinitionName": "Owner"}},
					{"properties": {"principalName": "eve@example.com", "roleDefinitionName": "Contributor"}},
					{"properties": {"principalName": "ann@example.com", "roleDefinitionName": "Billing account Owner"}}
				]
			}`), nil
		},
	})

	assignments, err := client.ListBillingRoleAssignments("/providers/Microsoft.Billing/billingAccounts/ba1", "Owner")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected 2 Owner assignments, got %d", len(assignments))
	}
	if assignments[0].Properties.PrincipalName != "bob@example.com" {
		t.Errorf("unexpected first assignment: %q", assignments[0].Properties.PrincipalName)
	}
}

func TestLastSegment(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"p1", "p1"},
		{"/providers/Microsoft.Billing/billingAccounts/ba1/billingProfiles/p1", "p1"},
		{"/providers/Microsoft.Billing/billingAccounts/ba1/", "ba1"},
	}
	for _, tc := range testCases {
		if result := lastSegment(tc.input); result != tc.expected {
			t.Errorf("lastSegment(%q) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}
