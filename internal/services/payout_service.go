package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"annotation-service/internal/metrics"
	"annotation-service/internal/repository"
)

// paystackBankCodes resolves the bank names collected on worker profiles to
// the codes the Paystack bulk-transfer template expects.
var paystackBankCodes = map[string]string{
	"access bank":   "044",
	"gtbank":        "058",
	"zenith bank":   "057",
	"first bank":    "011",
	"uba":           "033",
	"fidelity bank": "070",
	"union bank":    "032",
	"sterling bank": "232",
	"stanbic ibtc":  "221",
	"wema bank":     "035",
	"polaris bank":  "076",
	"ecobank":       "050",
	"fcmb":          "214",
	"keystone bank": "082",
	"kuda":          "50211",
	"opay":          "999992",
	"palmpay":       "999991",
	"moniepoint":    "50515",
}

var paystackHeader = []string{
	"Transfer Amount", "Transfer Note (Optional)", "Transfer Reference (Optional)",
	"Recipient Code", "Bank Code or Slug", "Account Number",
	"Account Name (Optional)", "Email Address (Optional)",
}

var mpesaHeader = []string{
	"Transfer Amount(USD)", "Transfer Note (Optional)", "Transfer Reference (Optional)",
	"MPESA Account Number", "Account Name", "Email Address",
}

// PayoutSummary reports one CSV export run: per-record validation failures
// are collected in Errors and never abort the export.
type PayoutSummary struct {
	TotalInvoices     int             `json:"totalInvoices"`
	ProcessedInvoices int             `json:"processedInvoices"`
	TotalAmountUSD    decimal.Decimal `json:"totalAmountUSD"`
	TotalAmountNGN    decimal.Decimal `json:"totalAmountNGN,omitempty"`
	Errors            []string        `json:"errors"`
}

// PayoutService generates bulk-payout CSV files for the Paystack and MPESA
// rails from unpaid invoices.
type PayoutService struct {
	Invoices repository.InvoiceRepository
	Workers  repository.WorkerRepository
	Exchange *ExchangeService
	Metrics  *metrics.Metrics
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(invoices repository.InvoiceRepository, workers repository.WorkerRepository, exchange *ExchangeService, m *metrics.Metrics) *PayoutService {
	return &PayoutService{
		Invoices: invoices,
		Workers:  workers,
		Exchange: exchange,
		Metrics:  m,
	}
}

// GeneratePaystackCSV exports unpaid invoices (optionally restricted to the
// given ids) as a Paystack bulk-transfer CSV, converting each USD amount to
// NGN. Invoices with unusable bank details are skipped and reported; a rate
// lookup failure aborts the whole export because payout amounts must never
// be guessed.
func (s *PayoutService) GeneratePaystackCSV(ctx context.Context, ids []uuid.UUID) (string, *PayoutSummary, error) {
	start := time.Now()
	invoices, err := s.Invoices.ListUnpaid(ids)
	if err != nil {
		return "", nil, err
	}

	// One rate for the whole run keeps every row consistent.
	rate, err := s.Exchange.USDToNGNRate(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("aborting Paystack export: %w", err)
	}

	summary := &PayoutSummary{
		TotalInvoices:  len(invoices),
		TotalAmountUSD: decimal.Zero,
		TotalAmountNGN: decimal.Zero,
		Errors:         []string{},
	}

	var sb strings.Builder
	writeCSVRow(&sb, paystackHeader)

	for _, invoice := range invoices {
		worker, err := s.Workers.GetByID(invoice.WorkerID)
		if err != nil {
			s.skip(summary, "paystack", fmt.Sprintf("invoice %s: worker lookup failed", invoice.InvoiceNumber))
			continue
		}

		bankCode, ok := paystackBankCodes[strings.ToLower(strings.TrimSpace(worker.BankName))]
		if !ok {
			s.skip(summary, "paystack", fmt.Sprintf("invoice %s: unknown bank %q", invoice.InvoiceNumber, worker.BankName))
			continue
		}
		if worker.AccountNumber == "" || worker.AccountName == "" {
			s.skip(summary, "paystack", fmt.Sprintf("invoice %s: missing account details", invoice.InvoiceNumber))
			continue
		}

		amountNGN := invoice.Amount.Mul(rate).Round(2)
		writeCSVRow(&sb, []string{
			amountNGN.StringFixed(2),
			fmt.Sprintf("Annotation work payout %s", invoice.InvoiceNumber),
			invoice.InvoiceNumber,
			"",
			bankCode,
			worker.AccountNumber,
			worker.AccountName,
			worker.Email,
		})

		summary.ProcessedInvoices++
		summary.TotalAmountUSD = summary.TotalAmountUSD.Add(invoice.Amount)
		summary.TotalAmountNGN = summary.TotalAmountNGN.Add(amountNGN)
		s.Metrics.RecordPayoutRow("paystack", "exported")
	}

	s.Metrics.RecordPayoutDuration(time.Since(start).Milliseconds())
	log.Printf("Paystack export: %d/%d invoices, %s USD, %d errors",
		summary.ProcessedInvoices, summary.TotalInvoices,
		summary.TotalAmountUSD.StringFixed(2), len(summary.Errors))
	return sb.String(), summary, nil
}

// GenerateMPESACSV exports unpaid invoices as an MPESA bulk-transfer CSV.
// Amounts stay in USD; no conversion is applied on this rail.
func (s *PayoutService) GenerateMPESACSV(ctx context.Context, ids []uuid.UUID) (string, *PayoutSummary, error) {
	start := time.Now()
	invoices, err := s.Invoices.ListUnpaid(ids)
	if err != nil {
		return "", nil, err
	}

	summary := &PayoutSummary{
		TotalInvoices:  len(invoices),
		TotalAmountUSD: decimal.Zero,
		Errors:         []string{},
	}

	var sb strings.Builder
	writeCSVRow(&sb, mpesaHeader)

	for _, invoice := range invoices {
		worker, err := s.Workers.GetByID(invoice.WorkerID)
		if err != nil {
			s.skip(summary, "mpesa", fmt.Sprintf("invoice %s: worker lookup failed", invoice.InvoiceNumber))
			continue
		}
		if worker.MpesaNumber == "" {
			s.skip(summary, "mpesa", fmt.Sprintf("invoice %s: missing MPESA number", invoice.InvoiceNumber))
			continue
		}
		if worker.AccountName == "" && worker.Name == "" {
			s.skip(summary, "mpesa", fmt.Sprintf("invoice %s: missing account name", invoice.InvoiceNumber))
			continue
		}

		accountName := worker.AccountName
		if accountName == "" {
			accountName = worker.Name
		}

		writeCSVRow(&sb, []string{
			invoice.Amount.StringFixed(2),
			fmt.Sprintf("Annotation work payout %s", invoice.InvoiceNumber),
			invoice.InvoiceNumber,
			worker.MpesaNumber,
			accountName,
			worker.Email,
		})

		summary.ProcessedInvoices++
		summary.TotalAmountUSD = summary.TotalAmountUSD.Add(invoice.Amount)
		s.Metrics.RecordPayoutRow("mpesa", "exported")
	}

	s.Metrics.RecordPayoutDuration(time.Since(start).Milliseconds())
	log.Printf("MPESA export: %d/%d invoices, %s USD, %d errors",
		summary.ProcessedInvoices, summary.TotalInvoices,
		summary.TotalAmountUSD.StringFixed(2), len(summary.Errors))
	return sb.String(), summary, nil
}

func (s *PayoutService) skip(summary *PayoutSummary, rail, reason string) {
	summary.Errors = append(summary.Errors, reason)
	s.Metrics.RecordPayoutRow(rail, "skipped")
}

// writeCSVRow appends one row with every field quoted and embedded quotes
// doubled, the format the payout rails' import templates expect.
func writeCSVRow(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteString("\r\n")
}
