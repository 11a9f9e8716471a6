package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydesk/internal/domain"
	"paydesk/internal/domain/models"
)

// Scenario: a configured credit card fans out and each target stores its own
// remaining, not the source amount.
func TestCopyCreditUsesTargetRemaining(t *testing.T) {
	source := ticketRef(1)
	target := ticketRef(2)
	quotes := stubQuotes{
		source: {Price: 500, Status: domain.StatusUnpaid},
		target: {Price: 200, Status: domain.StatusUnpaid},
	}
	ed := newTestEditor(quotes, stubBalances{})
	prop := Propagator{Editor: ed, Selection: stubSelection{source, target}}

	credit, _ := ed.Add(source, models.KindCredit)
	require.NoError(t, ed.EditField(source, credit.ID, "cardNumber", "4242424242424242"))
	require.NoError(t, ed.EditField(source, credit.ID, "holderName", "A Traveller"))
	require.NoError(t, ed.EditAmount(source, credit.ID, "500"))
	_, err := ed.Commit(source, credit.ID)
	require.NoError(t, err)

	// target already partially covered by a voucher
	voucher, _ := ed.Add(target, models.KindVoucher)
	require.NoError(t, ed.EditAmount(target, voucher.ID, "50"))
	_, err = ed.Commit(target, voucher.ID)
	require.NoError(t, err)

	copied := prop.Copy(source, models.KindCredit, nil)
	assert.Equal(t, 1, copied)

	slots := ed.Ledger.Allocation(target).SlotsOfKind(models.KindCredit)
	require.Len(t, slots, 1)
	got := slots[0]
	assert.Equal(t, 150.0, got.Amount, "target stores its own remaining")
	assert.True(t, got.Committed)
	require.NotNil(t, got.Credit)
	assert.Equal(t, "4242424242424242", got.Credit.CardNumber)
	assert.Equal(t, "A Traveller", got.Credit.HolderName)
	assert.NotEqual(t, credit.ID, got.ID, "clone gets its own id")

	assert.Equal(t, 500.0, credit.Amount, "source untouched")
}

func TestCopySkipsSourceFullyPaidAndUnselected(t *testing.T) {
	source := ticketRef(1)
	paid := ticketRef(2)
	unselected := ticketRef(3)
	open := bagRef(2)
	quotes := stubQuotes{
		source:     {Price: 500, Status: domain.StatusUnpaid},
		paid:       {Price: 100, Status: domain.StatusPaid},
		unselected: {Price: 100, Status: domain.StatusUnpaid},
		open:       {Price: 60, Status: domain.StatusUnpaid},
	}
	ed := newTestEditor(quotes, stubBalances{})
	prop := Propagator{Editor: ed, Selection: stubSelection{source, paid, open}}

	credit, _ := ed.Add(source, models.KindCredit)
	_, err := ed.Commit(source, credit.ID)
	require.NoError(t, err)

	copied := prop.Copy(source, models.KindCredit, nil)
	assert.Equal(t, 1, copied, "only the open selected item receives a copy")

	assert.Nil(t, ed.Ledger.Allocation(paid))
	assert.Nil(t, ed.Ledger.Allocation(unselected))
	require.NotNil(t, ed.Ledger.Allocation(open))
	assert.Len(t, ed.Ledger.Allocation(open).SlotsOfKind(models.KindCredit), 1)
	assert.Len(t, ed.Ledger.Allocation(source).Slots, 1, "source keeps exactly its original slot")
}

func TestCopyHonorsExplicitTargets(t *testing.T) {
	source := ticketRef(1)
	wanted := ticketRef(2)
	other := ticketRef(3)
	quotes := stubQuotes{
		source: {Price: 500, Status: domain.StatusUnpaid},
		wanted: {Price: 100, Status: domain.StatusUnpaid},
		other:  {Price: 100, Status: domain.StatusUnpaid},
	}
	ed := newTestEditor(quotes, stubBalances{})
	prop := Propagator{Editor: ed, Selection: stubSelection{source, wanted, other}}

	credit, _ := ed.Add(source, models.KindCredit)
	_, err := ed.Commit(source, credit.ID)
	require.NoError(t, err)

	copied := prop.Copy(source, models.KindCredit, []domain.ItemRef{wanted})
	assert.Equal(t, 1, copied)
	assert.NotNil(t, ed.Ledger.Allocation(wanted))
	assert.Nil(t, ed.Ledger.Allocation(other))
}

func TestCopySkipsTargetsAtLimit(t *testing.T) {
	source := ticketRef(1)
	target := ticketRef(2)
	quotes := stubQuotes{
		source: {Price: 500, Status: domain.StatusUnpaid},
		target: {Price: 500, Status: domain.StatusUnpaid},
	}
	ed := newTestEditor(quotes, stubBalances{})
	prop := Propagator{Editor: ed, Selection: stubSelection{source, target}}

	srcCredit, _ := ed.Add(source, models.KindCredit)
	_, err := ed.Commit(source, srcCredit.ID)
	require.NoError(t, err)

	// target already carries a credit covering part of the price
	tgtCredit, _ := ed.Add(target, models.KindCredit)
	require.NoError(t, ed.EditAmount(target, tgtCredit.ID, "100"))
	_, err = ed.Commit(target, tgtCredit.ID)
	require.NoError(t, err)

	copied := prop.Copy(source, models.KindCredit, nil)
	assert.Equal(t, 0, copied, "a target at the credit limit is silently skipped")
	assert.Len(t, ed.Ledger.Allocation(target).Slots, 1)
}

func TestCopyVoucherExtraSlotsZero(t *testing.T) {
	source := ticketRef(1)
	target := ticketRef(2)
	quotes := stubQuotes{
		source: {Price: 300, Status: domain.StatusUnpaid},
		target: {Price: 120, Status: domain.StatusUnpaid},
	}
	ed := newTestEditor(quotes, stubBalances{})
	prop := Propagator{Editor: ed, Selection: stubSelection{source, target}}

	first, _ := ed.Add(source, models.KindVoucher)
	require.NoError(t, ed.EditField(source, first.ID, "number", "11141234567890123"))
	require.NoError(t, ed.EditAmount(source, first.ID, "200"))
	_, err := ed.Commit(source, first.ID)
	require.NoError(t, err)

	second, _ := ed.Add(source, models.KindVoucher)
	require.NoError(t, ed.EditField(source, second.ID, "number", "11149876543210987"))
	require.NoError(t, ed.EditAmount(source, second.ID, "100"))
	_, err = ed.Commit(source, second.ID)
	require.NoError(t, err)

	copied := prop.Copy(source, models.KindVoucher, nil)
	assert.Equal(t, 1, copied)

	slots := ed.Ledger.Allocation(target).SlotsOfKind(models.KindVoucher)
	require.Len(t, slots, 2)
	assert.Equal(t, 120.0, slots[0].Amount, "first voucher takes the target remaining")
	assert.Equal(t, "11141234567890123", slots[0].Voucher.Number)
	assert.Equal(t, 0.0, slots[1].Amount, "extra vouchers land as placeholders")
	assert.True(t, slots[1].Committed)
	assert.Equal(t, "11149876543210987", slots[1].Voucher.Number)
}

func TestCopyPointsResetsDerivedFields(t *testing.T) {
	source := ticketRef(1)
	target := ticketRef(2)
	quotes := stubQuotes{
		source: {Price: 100, Status: domain.StatusUnpaid},
		target: {Price: 40, Status: domain.StatusUnpaid},
	}
	ed := newTestEditor(quotes, stubBalances{})
	prop := Propagator{Editor: ed, Selection: stubSelection{source, target}}

	pts, _ := ed.Add(source, models.KindPoints)
	require.NoError(t, ed.EditField(source, pts.ID, "memberNumber", "MM123"))
	_, err := ed.Commit(source, pts.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5000), pts.Points.PointsToUse)

	copied := prop.Copy(source, models.KindPoints, nil)
	require.Equal(t, 1, copied)

	got := ed.Ledger.Allocation(target).SlotsOfKind(models.KindPoints)[0]
	assert.Equal(t, 40.0, got.Amount)
	assert.Equal(t, "MM123", got.Points.MemberNumber)
	assert.Equal(t, int64(2000), got.Points.PointsToUse, "points derive from the target amount")
}

func TestEligibleTargets(t *testing.T) {
	source := ticketRef(1)
	paid := ticketRef(2)
	open := bagRef(1)
	quotes := stubQuotes{
		source: {Price: 500, Status: domain.StatusUnpaid},
		paid:   {Price: 100, Status: domain.StatusPaid},
		open:   {Price: 60, Status: domain.StatusUnpaid},
	}
	ed := newTestEditor(quotes, stubBalances{})
	prop := Propagator{Editor: ed, Selection: stubSelection{source, paid, open}}

	assert.Equal(t, []domain.ItemRef{open}, prop.EligibleTargets(source))
}
