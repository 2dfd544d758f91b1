package notification

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalEmail tells a worker their application was approved.
func ApprovalEmail(to, workerName, projectName string) Email {
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Your application to %q was approved", projectName),
		Body: fmt.Sprintf("Hi %s,\n\nYour application to the project %q has been approved. "+
			"You can start annotating right away; the project guidelines are available in your dashboard.\n\n"+
			"The Annotation Team", workerName, projectName),
	}
}

// RejectionEmail tells a worker their application was rejected.
func RejectionEmail(to, workerName, projectName, reason string) Email {
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Update on your application to %q", projectName),
		Body: fmt.Sprintf("Hi %s,\n\nThank you for applying to %q. "+
			"Unfortunately your application was not selected (reason: %s). "+
			"You are welcome to apply to other open projects.\n\n"+
			"The Annotation Team", workerName, projectName, reason),
	}
}

// RemovalWorkerEmail tells a worker they were removed from a project.
func RemovalWorkerEmail(to, workerName, projectName, reason string) Email {
	return Email{
		To:      to,
		Subject: fmt.Sprintf("You have been removed from %q", projectName),
		Body: fmt.Sprintf("Hi %s,\n\nYou have been removed from the project %q (reason: %s). "+
			"Completed work will still be invoiced as usual.\n\n"+
			"The Annotation Team", workerName, projectName, reason),
	}
}

// RemovalAdminEmail confirms a removal to the acting admin.
func RemovalAdminEmail(to, workerName, projectName string) Email {
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Removal confirmed: %s from %q", workerName, projectName),
		Body: fmt.Sprintf("The annotator %s has been removed from %q. "+
			"The project's approved-annotator count was decremented.", workerName, projectName),
	}
}

// DeletionOTPEmail carries the one-time deletion code to the Projects
// Officer mailbox, independent of the requesting admin.
func DeletionOTPEmail(officerEmail, projectName, code, reason, requestedBy string, expiresAt time.Time) Email {
	return Email{
		To:      officerEmail,
		Subject: fmt.Sprintf("Deletion approval requested for project %q", projectName),
		Body: fmt.Sprintf("A force deletion of project %q with live applications was requested by %s.\n\n"+
			"Reason: %s\n\n"+
			"One-time approval code: %s\n"+
			"The code expires at %s and can be used once.\n\n"+
			"If this deletion was not expected, do not share the code.",
			projectName, requestedBy, reason, code, expiresAt.UTC().Format(time.RFC3339)),
	}
}

// DeletionConfirmationEmail reports the manifest of a completed force delete.
// The admin's confirmation message, when given, is quoted for the audit trail.
func DeletionConfirmationEmail(to, projectName string, deletedApplications int64, confirmation string) Email {
	body := fmt.Sprintf("The project %q has been permanently deleted.\n\n"+
		"Removed records:\n"+
		"  applications: %d\n\n"+
		"This action was authorized by a one-time deletion code.", projectName, deletedApplications)
	if confirmation != "" {
		body += fmt.Sprintf("\nAdmin confirmation: %q", confirmation)
	}
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Project %q deleted", projectName),
		Body:    body,
	}
}

// InvoiceIssuedEmail tells a worker an invoice was raised for their work.
func InvoiceIssuedEmail(to, workerName, projectName, invoiceNumber string, amount decimal.Decimal, currency string, dueDate time.Time) Email {
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Invoice %s issued", invoiceNumber),
		Body: fmt.Sprintf("Hi %s,\n\nInvoice %s for your work on %q has been issued.\n\n"+
			"Amount: %s %s\nDue date: %s\n\n"+
			"The Annotation Team", workerName, invoiceNumber, projectName,
			amount.StringFixed(2), currency, dueDate.Format("2006-01-02")),
	}
}

// PaymentConfirmationEmail tells a worker an invoice was paid.
func PaymentConfirmationEmail(to, workerName, invoiceNumber string, paidAmount decimal.Decimal, currency, reference string) Email {
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Payment confirmed for invoice %s", invoiceNumber),
		Body: fmt.Sprintf("Hi %s,\n\nYour invoice %s has been paid.\n\n"+
			"Amount: %s %s\nReference: %s\n\n"+
			"The Annotation Team", workerName, invoiceNumber,
			paidAmount.StringFixed(2), currency, reference),
	}
}
