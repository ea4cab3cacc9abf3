package main

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Guidance strings shown when no identity can be resolved. These are part of
// the report contract and render verbatim.
const (
	guidanceClassicPortal = "Check in Portal – classic subscription"
	guidanceEAPortal      = "Check in EA portal – Account Owner"
	guidanceMCABilling    = "Check in Billing (MCA)"
	guidanceCSPPartner    = "Managed by partner – CSP"
	guidanceNotAvailable  = "Not available"
)

// OwnershipRecord is either a resolved identity (email or principal name) or
// fixed guidance text telling the operator where to look instead. Exactly one
// of the two is set; String never renders blank.
type OwnershipRecord struct {
	Identity string
	Guidance string
}

func (o OwnershipRecord) Resolved() bool {
	return o.Identity != ""
}

func (o OwnershipRecord) String() string {
	if o.Identity != "" {
		return o.Identity
	}
	return o.Guidance
}

// ResolveOwner attempts the plan-specific ownership lookups for a
// subscription and degrades to guidance text when they come back empty or
// unauthorized. It never returns an error and never retries: each tier is a
// single bounded request, and any failure simply falls through to the next
// tier.
func (ac *AzureClient) ResolveOwner(subscriptionID string, plan PlanLabel) OwnershipRecord {
	record, _ := ac.resolveOwnerCandidates(subscriptionID, plan)
	return record
}

// resolveOwnerCandidates additionally returns every candidate identity seen
// during resolution, for the extended report's owners column.
func (ac *AzureClient) resolveOwnerCandidates(subscriptionID string, plan PlanLabel) (OwnershipRecord, []string) {
	switch plan {
	case PlanMSDN, PlanPayAsYouGo:
		emails := ac.classicAdministratorEmails(subscriptionID)
		if len(emails) > 0 {
			return OwnershipRecord{Identity: emails[0]}, emails
		}
		return OwnershipRecord{Guidance: guidanceClassicPortal}, nil

	case PlanEA, PlanEADevTest:
		emails := ac.classicAdministratorEmails(subscriptionID)
		if len(emails) > 0 {
			return OwnershipRecord{Identity: emails[0]}, emails
		}
		return OwnershipRecord{Guidance: guidanceEAPortal}, nil

	case PlanMCAOnline, PlanMCAEnterprise:
		owners := ac.billingOwnerPrincipals(subscriptionID)
		if len(owners) > 0 {
			return OwnershipRecord{Identity: owners[0]}, owners
		}
		return OwnershipRecord{Guidance: guidanceMCABilling}, nil

	case PlanCSP:
		// Partner-managed subscriptions never expose classic or billing
		// owner data to the tenant caller, so no lookup is attempted.
		return OwnershipRecord{Guidance: guidanceCSPPartner}, nil

	default:
		return OwnershipRecord{Guidance: guidanceNotAvailable}, nil
	}
}

// classicAdministratorEmails returns the emails of classic administrators
// holding an administrator role, in provider order. Lookup failures are
// logged and reported as no candidates.
func (ac *AzureClient) classicAdministratorEmails(subscriptionID string) []string {
	admins, err := ac.ListClassicAdministrators(subscriptionID)
	if err != nil {
		log.Warn().Err(err).Str("subscription", subscriptionID).
			Msg("classic administrator lookup unavailable")
		return nil
	}

	var emails []string
	for _, admin := range admins {
		if admin.Properties.EmailAddress == "" {
			continue
		}
		if !strings.Contains(admin.Properties.Role, "Administrator") {
			continue
		}
		emails = append(emails, admin.Properties.EmailAddress)
	}
	return emails
}

// billingOwnerPrincipals resolves the subscription's billing hierarchy and
// returns Owner-role principals at the narrowest resolvable scope.
func (ac *AzureClient) billingOwnerPrincipals(subscriptionID string) []string {
	hierarchy, err := ac.GetBillingHierarchy(subscriptionID)
	if err != nil {
		log.Warn().Err(err).Str("subscription", subscriptionID).
			Msg("billing hierarchy unavailable")
		return nil
	}

	scope := hierarchy.Scope()
	if scope == "" {
		return nil
	}

	assignments, err := ac.ListBillingRoleAssignments(scope, "Owner")
	if err != nil {
		log.Warn().Err(err).Str("subscription", subscriptionID).Str("scope", scope).
			Msg("billing role assignment lookup unavailable")
		return nil
	}

	var owners []string
	for _, assignment := range assignments {
		if assignment.Properties.PrincipalEmail != "" {
			owners = append(owners, assignment.Properties.PrincipalEmail)
		} else if assignment.Properties.PrincipalName != "" {
			owners = append(owners, assignment.Properties.PrincipalName)
		}
	}
	return owners
}
