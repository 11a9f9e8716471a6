package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
	"paydesk/internal/utils"
)

// ReceiptService renders the settlement receipt PDF for a reservation.
type ReceiptService struct {
	Manager   *CheckoutManager
	RequestID string
	Loader    func(code string) (receiptData, error)
}

type receiptData struct {
	Code       string
	Passengers map[int64]string
	Lines      []receiptLine
}

type receiptLine struct {
	PassengerID int64
	Item        domain.ItemType
	Total       float64
	Paid        float64
	Remaining   float64
	Instruments []string
}

func (s ReceiptService) GenerateReceipt(code string) ([]byte, string, error) {
	data, err := s.loadReceiptData(code)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "receipt", "generate", "code="+data.Code)
	return buildReceiptPDF(data)
}

func (s ReceiptService) loadReceiptData(code string) (receiptData, error) {
	if s.Loader != nil {
		return s.Loader(code)
	}

	session, err := s.Manager.Session(code)
	if err != nil {
		return receiptData{}, err
	}
	res, err := s.Manager.Store.GetByCode(code)
	if err != nil {
		return receiptData{}, err
	}

	out := receiptData{Code: res.Code, Passengers: map[int64]string{}}
	for _, p := range res.Passengers {
		out.Passengers[p.ID] = p.FullName
	}
	for _, view := range session.Summary() {
		if !view.Selected && len(view.Slots) == 0 {
			continue
		}
		line := receiptLine{
			PassengerID: view.Ref.PassengerID,
			Item:        view.Ref.Type,
			Total:       view.Breakdown.Total,
			Paid:        view.Breakdown.Paid,
			Remaining:   view.Breakdown.Remaining,
		}
		for _, slot := range view.Slots {
			line.Instruments = append(line.Instruments, describeSlot(slot))
		}
		out.Lines = append(out.Lines, line)
	}
	return out, nil
}

func describeSlot(slot *models.InstrumentSlot) string {
	switch slot.Kind {
	case models.KindCredit:
		label := "card"
		if slot.Credit != nil {
			label = utils.CardNetwork(slot.Credit.CardNumber) + " " + maskTail(slot.Credit.CardNumber)
		}
		return fmt.Sprintf("Credit %s: $%s", label, utils.FormatAmount(slot.Amount))
	case models.KindVoucher:
		label := ""
		if slot.Voucher != nil {
			label = maskTail(slot.Voucher.Number)
		}
		return fmt.Sprintf("Voucher %s: $%s", label, utils.FormatAmount(slot.Amount))
	case models.KindPoints:
		pts := int64(0)
		if slot.Points != nil {
			pts = slot.Points.PointsToUse
		}
		return fmt.Sprintf("Points (%d pts): $%s", pts, utils.FormatAmount(slot.Amount))
	default:
		return fmt.Sprintf("$%s", utils.FormatAmount(slot.Amount))
	}
}

func maskTail(number string) string {
	digits := utils.DigitsOnly(number)
	if len(digits) < 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}

func buildReceiptPDF(d receiptData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Reservation : "+safe(d.Code, "-"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Generated   : "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(10)

	var grandPaid float64
	for _, line := range d.Lines {
		name := d.Passengers[line.PassengerID]
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, fmt.Sprintf("%s - %s", safe(name, fmt.Sprintf("Passenger %d", line.PassengerID)), line.Item))
		pdf.Ln(7)

		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 6, fmt.Sprintf("  Price $%s  Paid $%s  Remaining $%s",
			utils.FormatAmount(line.Total),
			utils.FormatAmount(line.Paid),
			utils.FormatAmount(line.Remaining)))
		pdf.Ln(6)
		for _, ins := range line.Instruments {
			pdf.Cell(0, 6, "  "+ins)
			pdf.Ln(6)
		}
		pdf.Ln(2)
		grandPaid += line.Paid
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Total paid: $"+utils.FormatAmount(grandPaid))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(d.Code))
	return buf.Bytes(), filename, nil
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
