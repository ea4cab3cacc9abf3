package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
)

// Report column sets
const (
	columnsFocused  = "focused"
	columnsExtended = "extended"
)

// ReportRow is one subscription's line in the report. Rows are immutable
// once built and independent of each other.
type ReportRow struct {
	SubscriptionID      string
	SubscriptionName    string
	TenantID            string
	State               string
	OfferType           string
	QuotaID             string
	SpendingLimit       string
	AuthorizationSource string
	IsDefault           bool
	BillingAgreement    BillingHint
	Plan                PlanLabel
	Owner               OwnershipRecord
	OwnerCandidates     []string
	Transferable        TransferDecision
}

// BuildReport produces one row per subscription, in input order. Rows are
// resolved on a bounded worker pool; each worker writes only its own index,
// so ordering is preserved without post-sorting. A failure in one
// subscription's lookups degrades that row only.
func (ac *AzureClient) BuildReport(subs []Subscription, hint BillingHint) []ReportRow {
	rows := make([]ReportRow, len(subs))
	workers := validateConcurrency(ac.Config.MaxConcurrency)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sub Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			rows[i] = ac.buildRow(sub, hint)
		}(i, sub)
	}
	wg.Wait()
	return rows
}

// buildRow classifies one subscription and resolves its owner. The list view
// sometimes omits quota and authorization source, so the per-subscription
// details call fills them in when the caller is allowed to make it.
func (ac *AzureClient) buildRow(sub Subscription, hint BillingHint) ReportRow {
	quotaID := sub.SubscriptionPolicies.QuotaID
	spendingLimit := sub.SubscriptionPolicies.SpendingLimit
	authorizationSource := sub.AuthorizationSource
	offerType := ""

	details, err := ac.GetSubscriptionDetails(sub.ID)
	if err != nil {
		if errors.Is(err, errUnauthorized) {
			log.Debug().Err(err).Str("subscription", sub.ID).Msg("subscription details not visible")
		} else {
			log.Warn().Err(err).Str("subscription", sub.ID).Msg("subscription details unavailable")
		}
	} else {
		if details.QuotaID != "" {
			quotaID = details.QuotaID
		}
		if details.SpendingLimit != "" {
			spendingLimit = details.SpendingLimit
		}
		if details.AuthorizationSource != "" {
			authorizationSource = details.AuthorizationSource
		}
		offerType = details.OfferType
	}

	plan := classifyPlan(quotaID, offerType, authorizationSource, hint)
	owner, candidates := ac.resolveOwnerCandidates(sub.ID, plan)

	return ReportRow{
		SubscriptionID:      sub.ID,
		SubscriptionName:    sub.DisplayName,
		TenantID:            sub.TenantID,
		State:               sub.State,
		OfferType:           offerType,
		QuotaID:             quotaID,
		SpendingLimit:       spendingLimit,
		AuthorizationSource: authorizationSource,
		IsDefault:           sub.IsDefault,
		BillingAgreement:    hint,
		Plan:                plan,
		Owner:               owner,
		OwnerCandidates:     candidates,
		Transferable:        transferableToEA(plan),
	}
}

func validateConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > 20 {
		return 20
	}
	return n
}

func focusedHeader() []string {
	return []string{"Subscription ID", "Sub. Type", "Sub. Owner", "Transferable (Internal)"}
}

func extendedHeader() []string {
	return []string{
		"Subscription ID", "Subscription Name", "Tenant ID", "State",
		"Offer Type", "Quota ID", "Spending Limit", "Billing Agreement",
		"Default", "Sub. Type", "Sub. Owner", "Owners", "Transferable (Internal)",
	}
}

func (r ReportRow) focusedFields() []string {
	return []string{r.SubscriptionID, string(r.Plan), r.Owner.String(), string(r.Transferable)}
}

func (r ReportRow) extendedFields() []string {
	return []string{
		r.SubscriptionID, r.SubscriptionName, r.TenantID, r.State,
		r.OfferType, r.QuotaID, r.SpendingLimit, string(r.BillingAgreement),
		fmt.Sprintf("%t", r.IsDefault), string(r.Plan), r.Owner.String(),
		strings.Join(r.OwnerCandidates, "; "), string(r.Transferable),
	}
}

func rowFields(r ReportRow, columns string) []string {
	if columns == columnsExtended {
		return r.extendedFields()
	}
	return r.focusedFields()
}

func headerFields(columns string) []string {
	if columns == columnsExtended {
		return extendedHeader()
	}
	return focusedHeader()
}

// writeCSV writes the report as a delimited table. encoding/csv quotes any
// field carrying the delimiter, so embedded commas in display names or
// guidance text are safe.
func writeCSV(w io.Writer, rows []ReportRow, columns string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headerFields(columns)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(rowFields(row, columns)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", row.SubscriptionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderTable prints the report as a human-readable table.
func renderTable(w io.Writer, rows []ReportRow, columns string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := table.Row{}
	for _, name := range headerFields(columns) {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for _, row := range rows {
		tr := table.Row{}
		for _, field := range rowFields(row, columns) {
			tr = append(tr, field)
		}
		t.AppendRow(tr)
	}
	t.Render()
}

// renderPorcelain prints tab-separated rows without a header, for piping
// into other tools.
func renderPorcelain(w io.Writer, rows []ReportRow, columns string) {
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(rowFields(row, columns), "\t"))
	}
}

// reportFileName builds a timestamp-suffixed name so repeated runs never
// overwrite each other.
func reportFileName(prefix, extension string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, now.Format("20060102-150405"), extension)
}
