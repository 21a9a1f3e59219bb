package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"dinetrack-ops-service/internal/billing"
	"dinetrack-ops-service/internal/branches"
	"dinetrack-ops-service/pkg/response"

	"github.com/phpdave11/gofpdf"
)

type receiptLine struct {
	Name     string
	Quantity int
	Unit     string
	Subtotal string
	Addon    bool
}

type receiptData struct {
	BranchName  string
	BranchCode  string
	Currency    string
	BillID      string
	TableNumber int
	Status      string
	CreatedAt   string
	OrderCount  int
	Lines       []receiptLine
	TotalAmount string
}

// BillReceiptPDF renders a printable receipt for a confirmed bill.
func (h *Handler) BillReceiptPDF(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	id := readPathString(r, "id")
	bill, found := h.Billing.Get(id)
	if !found || bill.BranchID != branchID {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Bill not found")
		return
	}

	branch, found := h.Branches.Get(branchID)
	if !found {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load branch")
		return
	}

	buf, err := renderBillReceiptPDF(buildReceiptData(bill, branch))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate receipt")
		return
	}

	filename := fmt.Sprintf("receipt_%s_%s.pdf", sanitizeFilename(branch.ShortCode), sanitizeFilename(bill.ID))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func buildReceiptData(bill billing.Bill, branch branches.Branch) receiptData {
	currency := branch.Currency
	if currency == "" {
		currency = "USD"
	}

	lines := make([]receiptLine, 0, len(bill.Items))
	for _, item := range bill.Items {
		name := item.Name
		addon := strings.HasPrefix(name, "  + ")
		if addon {
			name = strings.TrimPrefix(name, "  ")
		}
		lines = append(lines, receiptLine{
			Name:     name,
			Quantity: item.Quantity,
			Unit:     formatCurrency(item.Price, currency),
			Subtotal: formatCurrency(item.TotalPrice, currency),
			Addon:    addon,
		})
	}

	return receiptData{
		BranchName:  branch.Name,
		BranchCode:  branch.ShortCode,
		Currency:    currency,
		BillID:      bill.ID,
		TableNumber: bill.TableNumber,
		Status:      string(bill.Status),
		CreatedAt:   bill.CreatedAt.Format("2006-01-02 15:04"),
		OrderCount:  len(bill.OrderIDs),
		Lines:       lines,
		TotalAmount: formatCurrency(bill.TotalAmount, currency),
	}
}

func formatCurrency(amount float64, currency string) string {
	if strings.EqualFold(currency, "IDR") {
		return fmt.Sprintf("Rp%.0f", amount)
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}

func sanitizeFilename(value string) string {
	re := regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	clean := re.ReplaceAllString(value, "_")
	return strings.Trim(clean, "_")
}

func renderBillReceiptPDF(data receiptData) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.BranchName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	if data.BranchCode != "" {
		pdf.CellFormat(0, 5, data.BranchCode, "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Bill %s", data.BillID), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Table %d", data.TableNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Orders: %d", data.OrderCount), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Issued: %s", data.CreatedAt), "", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, line := range data.Lines {
		label := fmt.Sprintf("%dx %s", line.Quantity, line.Name)
		if line.Addon {
			label = "  " + label
		}
		pdf.CellFormat(120, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, line.Subtotal, "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(120, 6, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, data.TotalAmount, "T", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Status: %s", data.Status), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
