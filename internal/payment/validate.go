package payment

import (
	"strings"

	"paydesk/internal/domain/models"
	"paydesk/internal/utils"
)

// IsCardNumberValid strips non-digits, rejects lengths outside 13-19 and
// applies the mod-10 checksum (right-to-left, double every second digit,
// subtract 9 above 9).
func IsCardNumberValid(number string) bool {
	digits := utils.DigitsOnly(number)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsVoucherNumberValid checks the voucher number shape: 13-19 digits,
// tolerating spaces and dashes as separators.
func IsVoucherNumberValid(number string) bool {
	raw := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(number))
	digits := utils.DigitsOnly(raw)
	if digits != raw {
		return false
	}
	return len(digits) >= 13 && len(digits) <= 19
}

// IsComplete reports whether a slot has every required field filled and a
// positive amount. Pure; no side effects.
func IsComplete(slot *models.InstrumentSlot) bool {
	if slot == nil || slot.Amount <= 0 {
		return false
	}
	switch slot.Kind {
	case models.KindCredit:
		c := slot.Credit
		if c == nil {
			return false
		}
		return IsCardNumberValid(c.CardNumber) &&
			strings.TrimSpace(c.HolderName) != "" &&
			strings.TrimSpace(c.Expiry) != "" &&
			strings.TrimSpace(c.CVV) != "" &&
			strings.TrimSpace(c.IDNumber) != ""
	case models.KindVoucher:
		v := slot.Voucher
		if v == nil {
			return false
		}
		return IsVoucherNumberValid(v.Number) && strings.TrimSpace(v.Expiry) != ""
	case models.KindPoints:
		p := slot.Points
		if p == nil {
			return false
		}
		return strings.TrimSpace(p.MemberNumber) != "" && strings.TrimSpace(p.AwardReference) != ""
	default:
		return false
	}
}
