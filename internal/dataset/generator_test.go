package dataset

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var reference = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func TestGeneratorIsDeterministic(t *testing.T) {
	first := NewGenerator(42, reference)
	second := NewGenerator(42, reference)

	if !reflect.DeepEqual(first.PurchaseOrders(25), second.PurchaseOrders(25)) {
		t.Fatal("purchase orders differ for the same seed")
	}
	if !reflect.DeepEqual(first.Tenders(25), second.Tenders(25)) {
		t.Fatal("tenders differ for the same seed")
	}
}

func TestPurchaseOrdersAreConsistent(t *testing.T) {
	orders := NewGenerator(7, reference).PurchaseOrders(200)
	if len(orders) != 200 {
		t.Fatalf("order count = %d, want 200", len(orders))
	}

	seen := map[string]bool{}
	for _, order := range orders {
		if seen[order.PONo] {
			t.Fatalf("duplicate PONO %q", order.PONo)
		}
		seen[order.PONo] = true

		if order.ReceivedQty+order.PipelineQty != order.POQty {
			t.Fatalf("quantities do not add up: %#v", order)
		}
		switch order.Status {
		case "Supplied":
			if order.PipelineQty != 0 {
				t.Fatalf("supplied order has pipeline: %#v", order)
			}
		case "Non Supplied":
			if order.ReceivedQty != 0 {
				t.Fatalf("non supplied order has receipts: %#v", order)
			}
		case "Partial Supplied":
		default:
			t.Fatalf("unexpected status %q", order.Status)
		}
		if order.PODate.After(reference) {
			t.Fatalf("PODATE %v after reference", order.PODate)
		}
		if !order.POLastDay.Equal(order.PODate.AddDate(0, 0, int(order.POTimeline))) {
			t.Fatalf("PO_LAST_DAY = %v for %v", order.POLastDay, order.PODate)
		}
		if !strings.HasSuffix(order.TenderNo, order.POFinYear) {
			t.Fatalf("TENDER_NO %q does not end with %q", order.TenderNo, order.POFinYear)
		}
	}
}

func TestTendersAreConsistent(t *testing.T) {
	for _, tender := range NewGenerator(7, reference).Tenders(200) {
		if tender.BidsCoverB > tender.BidsCoverA || tender.BidsCoverC > tender.BidsCoverB || tender.BidsCoverC < 0 {
			t.Fatalf("bid funnel out of order: %#v", tender)
		}
		if tender.ItemRCStatus == "RC Expired" && tender.ItemRCDaysRemaining >= 0 {
			t.Fatalf("expired rate contract with days remaining: %#v", tender)
		}
		if _, err := time.Parse(tenderDateLayout, tender.SubmissionLastDate); err != nil {
			t.Fatalf("SUBMISSIONLASTDATE %q: %v", tender.SubmissionLastDate, err)
		}
	}
}

func TestFinYear(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{date: time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), want: "24-25"},
		{date: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), want: "25-26"},
		{date: time.Date(1999, time.December, 1, 0, 0, 0, 0, time.UTC), want: "99-00"},
	}
	for _, tc := range tests {
		if got := finYear(tc.date); got != tc.want {
			t.Fatalf("finYear(%v) = %q, want %q", tc.date, got, tc.want)
		}
	}
}
