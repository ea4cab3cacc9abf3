package main

// TransferDecision reports whether a subscription's billing can be moved
// into an Enterprise Agreement.
type TransferDecision string

const (
	TransferYes TransferDecision = "Yes"
	TransferNo  TransferDecision = "No"
)

// transferableToEA reproduces the provider's published EA transfer
// eligibility matrix. This is a policy constant: changes to provider policy
// mean editing this table, not deriving new logic.
func transferableToEA(plan PlanLabel) TransferDecision {
	switch plan {
	case PlanEA, PlanEADevTest, PlanPayAsYouGo:
		return TransferYes
	case PlanMSDN, PlanMCAOnline, PlanMCAEnterprise, PlanCSP,
		PlanSponsoredConcierge, PlanOther, PlanUnavailable:
		return TransferNo
	default:
		return TransferNo
	}
}
