package main

import "strings"

// PlanLabel is the commercial plan classification of a subscription.
type PlanLabel string

const (
	PlanMSDN               PlanLabel = "MSDN"
	PlanPayAsYouGo         PlanLabel = "PayAsYouGo"
	PlanEA                 PlanLabel = "EA"
	PlanEADevTest          PlanLabel = "EADevTest"
	PlanSponsoredConcierge PlanLabel = "SponsoredConcierge"
	PlanMCAOnline          PlanLabel = "MCAOnline"
	PlanMCAEnterprise      PlanLabel = "MCAEnterprise"
	PlanCSP                PlanLabel = "CSP"
	PlanOther              PlanLabel = "Other"
	PlanUnavailable        PlanLabel = "Unavailable"
)

// BillingHint is the tenant-level agreement signal derived from the
// billing accounts visible to the caller.
type BillingHint string

const (
	BillingHintNone      BillingHint = ""
	BillingHintMCA       BillingHint = "MicrosoftCustomerAgreement"
	BillingHintEA        BillingHint = "EnterpriseAgreement"
	BillingHintMOSP      BillingHint = "MicrosoftOnlineServicesProgram"
	BillingHintAmbiguous BillingHint = "Ambiguous"
)

// authorizationByPartner marks partner-delegated (CSP) subscriptions.
const authorizationByPartner = "ByPartner"

// Quota identifier codes carry suffixes in the wild (e.g.
// "MSDN_2014-09-01_2015-02-01"), so all code matching is case-sensitive
// substring matching rather than equality.
var (
	sponsoredQuotaMarkers = []string{
		"Sponsored",
		"MS-AZR-0036P",
		"MS-AZR-0143P",
	}
	msdnQuotaCodes = []string{
		"MSDN_2014-09-01",
		"MS-AZR-0029P",
		"MS-AZR-0059P",
		"MS-AZR-0060P",
		"MS-AZR-0062P",
		"MS-AZR-0063P",
		"MS-AZR-0064P",
	}
	paygLegacyQuotaCodes = []string{
		"MS-AZR-0003P",
		"MS-AZR-0023P",
	}
	eaDevTestQuotaCodes = []string{
		"MSDNDevTest_2014-09-01",
		"MS-AZR-0148P",
		"MS-AZR-0149P",
	}
	eaQuotaCodes = []string{
		"EnterpriseAgreement_2014-09-01",
		"MS-AZR-0017P",
		"MS-AZR-0034P",
	}
)

const paygCanonicalQuotaID = "PayAsYouGo_2014-09-01"

// classifyPlan maps a subscription's quota identifier, offer type and
// authorization source to exactly one PlanLabel. It is total: every input,
// including empty strings, yields a label and never an error. Rule order
// matters because several code sets overlap textually; partner delegation
// is checked last and overrides any quota-derived match.
func classifyPlan(quotaID, offerType, authorizationSource string, hint BillingHint) PlanLabel {
	label := quotaPlan(quotaID, offerType, hint)
	if authorizationSource == authorizationByPartner {
		return PlanCSP
	}
	return label
}

func quotaPlan(quotaID, offerType string, hint BillingHint) PlanLabel {
	switch {
	case containsAny(quotaID, sponsoredQuotaMarkers):
		return PlanSponsoredConcierge
	case containsAny(quotaID, msdnQuotaCodes):
		return PlanMSDN
	case quotaID == paygCanonicalQuotaID || containsAny(quotaID, paygLegacyQuotaCodes):
		return PlanPayAsYouGo
	case strings.Contains(offerType, "Pay-As-You-Go"):
		return PlanPayAsYouGo
	case containsAny(quotaID, eaDevTestQuotaCodes):
		return PlanEADevTest
	case containsAny(quotaID, eaQuotaCodes):
		return PlanEA
	case quotaID == "" && offerType == "":
		if hint == BillingHintMCA {
			return PlanMCAOnline
		}
		return PlanUnavailable
	default:
		return PlanOther
	}
}

func containsAny(s string, codes []string) bool {
	if s == "" {
		return false
	}
	for _, code := range codes {
		if strings.Contains(s, code) {
			return true
		}
	}
	return false
}

// deriveBillingHint reduces the tenant's billing account list to a single
// agreement hint. Only a lone account gives a usable signal; several
// accounts make the tenant-level hint ambiguous even when their agreement
// types coincide, since the hint can no longer be tied to one agreement.
func deriveBillingHint(accounts []BillingAccount) BillingHint {
	if len(accounts) == 0 {
		return BillingHintNone
	}
	if len(accounts) > 1 {
		return BillingHintAmbiguous
	}
	switch accounts[0].Properties.AgreementType {
	case "MicrosoftCustomerAgreement":
		return BillingHintMCA
	case "EnterpriseAgreement":
		return BillingHintEA
	case "MicrosoftOnlineServicesProgram":
		return BillingHintMOSP
	default:
		return BillingHintNone
	}
}
