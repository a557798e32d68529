package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/practicehub/ledger/internal/billing"
	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/ingestion"
)

const orgID = "org-demo"

func main() {
	anchorFlag := flag.String("anchor", "", "anchor date (YYYY-MM-DD); defaults to today UTC")
	flag.Parse()

	anchor := time.Now().UTC().Truncate(24 * time.Hour)
	if *anchorFlag != "" {
		t, err := time.Parse("2006-01-02", *anchorFlag)
		if err != nil {
			panic(err)
		}
		anchor = t
	}

	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()
	start := anchor.AddDate(0, 0, -60)

	f := &ingestion.Fixture{
		Organizations: []domain.Organization{{ID: orgID, Name: "Hale & Ortiz LLP", CreatedAt: start}},
	}

	clientNames := []string{"Northwind Traders", "Contoso Health", "Fabrikam Homes", "Tailspin Air", "Adventure Works"}
	for i, name := range clientNames {
		f.Clients = append(f.Clients, domain.Client{
			ID:             fmt.Sprintf("cl-%02d", i+1),
			OrganizationID: orgID,
			Name:           name,
			Email:          fmt.Sprintf("legal@client%02d.example", i+1),
			CreatedAt:      start,
		})
	}

	type matterSeed struct {
		title   string
		area    string
		status  domain.MatterStatus
		billing domain.BillingType
		rate    string
		fee     string
	}
	seeds := []matterSeed{
		{"Lease renewal", "real_estate", domain.MatterOpen, domain.BillingHourly, "275", ""},
		{"Data breach response", "privacy", domain.MatterOpen, domain.BillingHourly, "350", ""},
		{"Trademark filing", "intellectual_property", domain.MatterClosed, domain.BillingFlatFee, "", "1800"},
		{"Wrongful termination", "employment", domain.MatterPending, domain.BillingContingency, "", ""},
		{"Estate plan", "", domain.MatterOpen, domain.BillingFlatFee, "", "2500"},
		{"Supplier dispute", "litigation", domain.MatterOpen, domain.BillingRetainer, "0", ""},
	}
	for i, s := range seeds {
		m := domain.Matter{
			ID:             fmt.Sprintf("m-%02d", i+1),
			OrganizationID: orgID,
			ClientID:       f.Clients[i%len(f.Clients)].ID,
			Title:          s.title,
			PracticeArea:   s.area,
			Status:         s.status,
			BillingType:    s.billing,
			OpenedAt:       start.AddDate(0, 0, i),
		}
		if s.rate != "" {
			m.HourlyRate = decimal.NewNullDecimal(decimal.RequireFromString(s.rate))
		}
		if s.fee != "" {
			m.FlatFeeAmount = decimal.NewNullDecimal(decimal.RequireFromString(s.fee))
		}
		f.Matters = append(f.Matters, m)
	}

	// Billing entries: mostly time, some expenses, one flat fee per flat-fee matter.
	for i := 1; i <= 40; i++ {
		m := &f.Matters[rng.Intn(len(f.Matters))]
		entryType := domain.EntryTime
		switch {
		case m.BillingType == domain.BillingFlatFee:
			entryType = domain.EntryFlatFee
		case rng.Float64() < 0.2:
			entryType = domain.EntryExpense
		}

		quantity := decimal.New(int64(rng.Intn(16)+1)*25, -2) // 0.25h to 4h
		rate := decimal.New(int64(rng.Intn(300)+150), 0)
		if entryType == domain.EntryExpense {
			quantity = decimal.NewFromInt(1)
			rate = decimal.New(int64(rng.Intn(40000)+500), -2)
		}

		amount, quantity, err := billing.ComputeAmount(m, entryType, &quantity, &rate)
		if err != nil {
			panic(err)
		}
		at := start.AddDate(0, 0, rng.Intn(60)).Add(time.Duration(rng.Intn(9)+9) * time.Hour)
		billed := at.Before(anchor.AddDate(0, 0, -30)) && rng.Float64() < 0.8

		f.BillingEntries = append(f.BillingEntries, domain.BillingEntry{
			ID:             fmt.Sprintf("be-%03d", i),
			OrganizationID: orgID,
			MatterID:       m.ID,
			EntryType:      entryType,
			Description:    fmt.Sprintf("%s work on %s", entryType, m.Title),
			Quantity:       quantity,
			Rate:           rate,
			Amount:         amount,
			Billable:       rng.Float64() < 0.9,
			Billed:         billed,
			EntryDate:      at,
			CreatedAt:      at,
		})
	}

	// Trust accounts: ta-01 balances, ta-02 is off by a transposition, ta-03 is closed.
	accounts := []struct {
		name   string
		status domain.TrustAccountStatus
		skew   string
	}{
		{"IOLTA Operating Trust", domain.TrustAccountActive, "0"},
		{"Contoso Settlement Trust", domain.TrustAccountActive, "-9.00"},
		{"Legacy Escrow", domain.TrustAccountClosed, "0"},
	}
	txnSeq := 0
	for i, a := range accounts {
		baseline := decimal.New(int64(rng.Intn(20000)+5000), 0)
		current := baseline
		accountID := fmt.Sprintf("ta-%02d", i+1)

		n := 6
		if a.status == domain.TrustAccountClosed {
			n = 0
		}
		for j := 0; j < n; j++ {
			txnSeq++
			types := []domain.TrustTransactionType{domain.TrustDeposit, domain.TrustInterest, domain.TrustDisbursement, domain.TrustWithdrawal}
			tt := types[rng.Intn(len(types))]
			amount := decimal.New(int64(rng.Intn(200000)+100), -2)
			if tt == domain.TrustInterest {
				amount = decimal.New(int64(rng.Intn(2000)+1), -2)
			}
			txn := domain.TrustTransaction{
				ID:              fmt.Sprintf("tt-%03d", txnSeq),
				TrustAccountID:  accountID,
				TransactionType: tt,
				Amount:          amount,
				Description:     fmt.Sprintf("%s %d", tt, j+1),
				TransactionDate: anchor.AddDate(0, 0, -rng.Intn(20)),
				CreatedAt:       anchor,
			}
			current = current.Add(txn.Signed())
			f.TrustTransactions = append(f.TrustTransactions, txn)
		}

		f.TrustAccounts = append(f.TrustAccounts, domain.TrustAccount{
			ID:                accountID,
			OrganizationID:    orgID,
			ClientID:          f.Clients[i].ID,
			AccountName:       a.name,
			BankName:          "First Fiduciary Bank",
			CurrentBalance:    current.Add(decimal.RequireFromString(a.skew)),
			ReconciledBalance: baseline,
			Status:            a.status,
		})
	}

	// Compliance events spread across the last 45 days.
	frameworks := []string{domain.FrameworkGeneral, domain.FrameworkSOC2, domain.FrameworkHIPAA, domain.FrameworkGDPR, domain.FrameworkCCPA}
	actions := []string{"document_access", "matter_export", "permission_change", "failed_login", "trust_disbursement"}
	for i := 1; i <= 30; i++ {
		sev := domain.SeverityInfo
		switch r := rng.Float64(); {
		case r < 0.05:
			sev = domain.SeverityCritical
		case r < 0.25:
			sev = domain.SeverityWarning
		}
		f.ComplianceLogs = append(f.ComplianceLogs, domain.ComplianceLogEntry{
			ID:                  fmt.Sprintf("log-%03d", i),
			OrganizationID:      orgID,
			UserID:              "seed",
			Action:              actions[rng.Intn(len(actions))],
			ResourceType:        "matter",
			ResourceID:          f.Matters[rng.Intn(len(f.Matters))].ID,
			ComplianceFramework: frameworks[rng.Intn(len(frameworks))],
			Severity:            sev,
			CreatedAt:           anchor.Add(-time.Duration(rng.Intn(45*24)) * time.Hour),
		})
	}

	if err := f.Validate(); err != nil {
		panic(err)
	}

	writeJSONFile(filepath.Join(baseDir, "seed.json"), f)
	fmt.Printf("Generated seed for %s: %d matters, %d billing entries, %d trust transactions, %d compliance events -> seed.json\n",
		orgID, len(f.Matters), len(f.BillingEntries), len(f.TrustTransactions), len(f.ComplianceLogs))
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	// Look for the testdata directory relative to common locations.
	candidates := []string{
		"testdata",
		"./testdata",
		"../../testdata",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	// Fallback.
	return "testdata"
}
