package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ReportDocument is the structured variant of the report: the same rows as
// typed records plus run metadata.
type ReportDocument struct {
	RunID             string           `json:"runId"`
	GeneratedAt       time.Time        `json:"generatedAt"`
	Host              string           `json:"host"`
	TenantBillingHint BillingHint      `json:"tenantBillingHint"`
	BillingAccounts   []BillingAccount `json:"billingAccounts"`
	Subscriptions     []DocumentRow    `json:"subscriptions"`
}

type DocumentRow struct {
	SubscriptionID      string           `json:"subscriptionId"`
	SubscriptionName    string           `json:"subscriptionName,omitempty"`
	TenantID            string           `json:"tenantId,omitempty"`
	State               string           `json:"state,omitempty"`
	OfferType           string           `json:"offerType,omitempty"`
	QuotaID             string           `json:"quotaId,omitempty"`
	SpendingLimit       string           `json:"spendingLimit,omitempty"`
	AuthorizationSource string           `json:"authorizationSource,omitempty"`
	IsDefault           bool             `json:"isDefault"`
	Plan                PlanLabel        `json:"plan"`
	Owner               string           `json:"owner"`
	OwnerResolved       bool             `json:"ownerResolved"`
	OwnerCandidates     []string         `json:"ownerCandidates,omitempty"`
	Transferable        TransferDecision `json:"transferableToEA"`
}

// BuildDocument assembles the structured report from already-computed rows.
func BuildDocument(rows []ReportRow, hint BillingHint, accounts []BillingAccount, now time.Time) ReportDocument {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	doc := ReportDocument{
		RunID:             uuid.NewString(),
		GeneratedAt:       now,
		Host:              host,
		TenantBillingHint: hint,
		BillingAccounts:   accounts,
		Subscriptions:     make([]DocumentRow, 0, len(rows)),
	}
	for _, row := range rows {
		doc.Subscriptions = append(doc.Subscriptions, DocumentRow{
			SubscriptionID:      row.SubscriptionID,
			SubscriptionName:    row.SubscriptionName,
			TenantID:            row.TenantID,
			State:               row.State,
			OfferType:           row.OfferType,
			QuotaID:             row.QuotaID,
			SpendingLimit:       row.SpendingLimit,
			AuthorizationSource: row.AuthorizationSource,
			IsDefault:           row.IsDefault,
			Plan:                row.Plan,
			Owner:               row.Owner.String(),
			OwnerResolved:       row.Owner.Resolved(),
			OwnerCandidates:     row.OwnerCandidates,
			Transferable:        row.Transferable,
		})
	}
	return doc
}

func writeJSON(w io.Writer, doc ReportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report document: %w", err)
	}
	return nil
}

// writeXLSX writes the report as a single-sheet workbook.
func writeXLSX(w io.Writer, rows []ReportRow, columns string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := make([]interface{}, 0)
	for _, name := range headerFields(columns) {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write workbook header: %w", err)
	}

	for i, row := range rows {
		values := make([]interface{}, 0)
		for _, field := range rowFields(row, columns) {
			values = append(values, field)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute workbook cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write workbook row for %s: %w", row.SubscriptionID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
