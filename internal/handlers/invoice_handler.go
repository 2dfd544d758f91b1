package handlers

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"annotation-service/internal/services"
)

// InvoiceHandler defines handlers for invoices and payout exports.
type InvoiceHandler struct {
	Service *services.InvoiceService
	Payouts *services.PayoutService
}

// NewInvoiceHandler creates a new InvoiceHandler with the given services.
func NewInvoiceHandler(service *services.InvoiceService, payouts *services.PayoutService) *InvoiceHandler {
	return &InvoiceHandler{Service: service, Payouts: payouts}
}

// CreateInvoice handles POST /invoices.
// @Summary Create an invoice
// @Description Raises an invoice for a worker holding an approved application on the project
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoice body services.CreateInvoiceInput true "Invoice fields"
// @Success 201 {object} map[string]interface{} "Created invoice"
// @Failure 400 {object} map[string]interface{} "Worker has no approved application"
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *fiber.Ctx) error {
	adminID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var input services.CreateInvoiceInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}

	invoice, err := h.Service.Create(c.Context(), input, adminID)
	if err != nil {
		log.Printf("Invoice creation failed: %v", err)
		return respondError(c, err)
	}
	log.Printf("Invoice created: Number=%s Worker=%s Amount=%s", invoice.InvoiceNumber, invoice.WorkerID, invoice.Amount)
	return respond(c, fiber.StatusCreated, "invoice created", invoice)
}

// ListInvoices handles GET /invoices.
// @Summary List invoices
// @Tags invoices
// @Produce json
// @Success 200 {object} map[string]interface{} "All invoices"
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *fiber.Ctx) error {
	invoices, err := h.Service.List()
	if err != nil {
		log.Printf("Error listing invoices: %v", err)
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "invoices retrieved", invoices)
}

// GetInvoice handles GET /invoices/:id.
// @Summary Get an invoice by ID
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} map[string]interface{} "Invoice found"
// @Failure 404 {object} map[string]interface{} "Invoice not found"
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *fiber.Ctx) error {
	invoiceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	invoice, err := h.Service.Get(invoiceID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "invoice retrieved", invoice)
}

// UpdatePaymentStatus handles PATCH /invoices/:id/status.
// @Summary Update an invoice's payment status
// @Description Only the transition to paid is accepted; paid invoices are immutable
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param update body services.UpdatePaymentInput true "New payment state"
// @Success 200 {object} map[string]interface{} "Updated invoice and email outcome"
// @Failure 400 {object} map[string]interface{} "Invoice is not unpaid"
// @Router /invoices/{id}/status [patch]
func (h *InvoiceHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	invoiceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}

	var input services.UpdatePaymentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}

	result, err := h.Service.UpdatePaymentStatus(c.Context(), invoiceID, input)
	if err != nil {
		log.Printf("Payment update refused: ID=%s Error=%v", invoiceID, err)
		return respondError(c, err)
	}
	log.Printf("Invoice paid: ID=%s EmailSent=%t", invoiceID, result.EmailNotificationSent)
	return respond(c, fiber.StatusOK, "payment status updated", result)
}

// DeleteInvoice handles DELETE /invoices/:id.
// @Summary Delete an invoice
// @Description Only unpaid invoices younger than 24 hours can be deleted
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} map[string]interface{} "Invoice deleted"
// @Failure 400 {object} map[string]interface{} "Invoice is paid or outside the correction window"
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *fiber.Ctx) error {
	invoiceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	if err := h.Service.Delete(invoiceID); err != nil {
		log.Printf("Invoice delete refused: ID=%s Error=%v", invoiceID, err)
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "invoice deleted", nil)
}

// BulkAuthorizePayment handles POST /invoices/bulk-authorize, marking every
// unpaid invoice paid in one pass.
// @Summary Authorize payment for all unpaid invoices
// @Tags invoices
// @Produce json
// @Success 200 {object} map[string]interface{} "Batch outcome with per-invoice errors"
// @Router /invoices/bulk-authorize [post]
func (h *InvoiceHandler) BulkAuthorizePayment(c *fiber.Ctx) error {
	result, err := h.Service.BulkAuthorizePayment(c.Context(), callerEmail(c))
	if err != nil {
		log.Printf("Bulk authorization failed: %v", err)
		return respondError(c, err)
	}
	log.Printf("Bulk authorization: Processed=%d Total=%s Errors=%d",
		result.ProcessedInvoices, result.TotalAmount, len(result.Errors))
	return respond(c, fiber.StatusOK, "payments authorized", result)
}

// ExportPaystackCSV handles GET /invoices/export/paystack. The optional ids
// query parameter restricts the export to a comma-separated invoice set.
// @Summary Export unpaid invoices as a Paystack bulk-transfer CSV
// @Description Amounts are converted from USD to NGN at the current rate
// @Tags invoices
// @Produce text/csv
// @Param ids query string false "Comma-separated invoice IDs"
// @Success 200 {string} string "CSV payload"
// @Failure 502 {object} map[string]interface{} "Exchange rate unavailable"
// @Router /invoices/export/paystack [get]
func (h *InvoiceHandler) ExportPaystackCSV(c *fiber.Ctx) error {
	ids, err := parseIDsQuery(c.Query("ids"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}

	csvData, summary, err := h.Payouts.GeneratePaystackCSV(c.Context(), ids)
	if err != nil {
		log.Printf("Paystack export failed: %v", err)
		return respondError(c, err)
	}
	log.Printf("Paystack export: Processed=%d/%d Errors=%d",
		summary.ProcessedInvoices, summary.TotalInvoices, len(summary.Errors))
	return sendCSV(c, "paystack", csvData, summary)
}

// ExportMPESACSV handles GET /invoices/export/mpesa. Amounts stay in USD.
// @Summary Export unpaid invoices as an MPESA bulk-transfer CSV
// @Tags invoices
// @Produce text/csv
// @Param ids query string false "Comma-separated invoice IDs"
// @Success 200 {string} string "CSV payload"
// @Router /invoices/export/mpesa [get]
func (h *InvoiceHandler) ExportMPESACSV(c *fiber.Ctx) error {
	ids, err := parseIDsQuery(c.Query("ids"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}

	csvData, summary, err := h.Payouts.GenerateMPESACSV(c.Context(), ids)
	if err != nil {
		log.Printf("MPESA export failed: %v", err)
		return respondError(c, err)
	}
	log.Printf("MPESA export: Processed=%d/%d Errors=%d",
		summary.ProcessedInvoices, summary.TotalInvoices, len(summary.Errors))
	return sendCSV(c, "mpesa", csvData, summary)
}

func parseIDsQuery(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sendCSV writes the payout file as an attachment with the run summary in
// response headers, so download tooling sees the outcome without parsing
// the body.
func sendCSV(c *fiber.Ctx, rail, csvData string, summary *services.PayoutSummary) error {
	filename := fmt.Sprintf("%s-payout-%s.csv", rail, time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Set("X-Export-Total-Invoices", strconv.Itoa(summary.TotalInvoices))
	c.Set("X-Export-Processed-Invoices", strconv.Itoa(summary.ProcessedInvoices))
	c.Set("X-Export-Errors", strconv.Itoa(len(summary.Errors)))
	return c.Status(fiber.StatusOK).SendString(csvData)
}
