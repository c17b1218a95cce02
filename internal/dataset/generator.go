// Package dataset builds deterministic procurement datasets (PO_DATA and
// TENDER_DATA) for local development against the DuckDB query backend.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	POTable     = "PO_DATA"
	TenderTable = "TENDER_DATA"

	tenderDateLayout = "02-01-2006"
)

// PORecord is one purchase order line.
type PORecord struct {
	MCID               int32     `parquet:"MCID"`
	Category           string    `parquet:"CATEGORY"`
	SupplierName       string    `parquet:"SUPPLIERNAME"`
	PONo               string    `parquet:"PONO"`
	ItemTypeName       string    `parquet:"ITEMTYPENAME"`
	ItemCode           string    `parquet:"ITEMCODE"`
	ItemName           string    `parquet:"ITEMNAME"`
	Strength           string    `parquet:"STRENGTH1"`
	VED                string    `parquet:"VED"`
	Unit               string    `parquet:"UNIT"`
	PODate             time.Time `parquet:"PODATE,timestamp"`
	POQty              int64     `parquet:"POQTY"`
	ReceivedQty        int64     `parquet:"RECEIVEDQTY"`
	PipelineQty        int64     `parquet:"PIPELINE_QTY"`
	POTimeline         int32     `parquet:"PO_TIMELINE"`
	POLastDay          time.Time `parquet:"PO_LAST_DAY,timestamp"`
	TimelySupplied     string    `parquet:"TIMLY_SUPPLIED"`
	Status             string    `parquet:"STATUS"`
	POFinYear          string    `parquet:"PO_FIN_YEAR"`
	TenderNo           string    `parquet:"TENDER_NO"`
	TotalPOValue       float64   `parquet:"TOTAL_PO_VALUE"`
	TotalReceivedValue float64   `parquet:"TOTAL_RECEEVED_VALUE"`
	TotalPipelineValue float64   `parquet:"TOTAL_PIPELINE_VALUE"`
	BaseRateInRs       float64   `parquet:"BASERATEINRS"`
}

// TenderRecord is one tendered item.
type TenderRecord struct {
	Category            string `parquet:"CATEGORY"`
	ItemCode            string `parquet:"ITEMCODE"`
	ItemName            string `parquet:"ITEMNAME"`
	Strength            string `parquet:"STRENGTH"`
	Unit                string `parquet:"UNIT"`
	TenderID            int32  `parquet:"TENDERID"`
	TenderCode          string `parquet:"TENDERCODE"`
	TenderStartDate     string `parquet:"TENDERSTARTDATE"`
	SubmissionLastDate  string `parquet:"SUBMISSIONLASTDATE"`
	NoOfExtensions      int32  `parquet:"NO_OF_EXTENSIONS"`
	BidsCoverA          int32  `parquet:"BID_FOUND_IN_COVER_A"`
	BidsCoverB          int32  `parquet:"BID_FOUND_IN_COVER_B"`
	BidsCoverC          int32  `parquet:"BID_FOUND_IN_COVER_C"`
	TenderStatus        string `parquet:"TENDER_STATUS"`
	ItemRCStatus        string `parquet:"ITEM_RC_STATUS"`
	ItemRCDaysRemaining int32  `parquet:"ITEM_RC_DAYS_REMAINING"`
	IsEDL2025           string `parquet:"ISEDL2025"`
	IsActive            string `parquet:"IS_ACTIVE"`
}

type item struct {
	code     string
	name     string
	itemType string
	strength string
	unit     string
	category string
	mcid     int32
	rate     float64
}

var catalog = []item{
	{code: "D393R", name: "Oxytocin Injection IP", itemType: "INJECTION", strength: "10 IU/ml", unit: "1 ml Amp", category: "Drugs", mcid: 1, rate: 4.12},
	{code: "D728", name: "Insulin Lispro Injection", itemType: "INJECTION", strength: "100 IU/ml", unit: "10 ml Vial", category: "Drugs", mcid: 1, rate: 212.5},
	{code: "D101", name: "Paracetamol Tablets IP", itemType: "TABLET", strength: "500 mg", unit: "10x10 Tablets", category: "Drugs", mcid: 1, rate: 0.31},
	{code: "D214", name: "Amoxicillin Capsules IP", itemType: "CAPSULE", strength: "250 mg", unit: "10x10 Capsules", category: "Drugs", mcid: 1, rate: 0.94},
	{code: "D322", name: "Ceftriaxone Injection IP", itemType: "INJECTION", strength: "1 g", unit: "1 Vial", category: "Drugs", mcid: 1, rate: 18.4},
	{code: "D455", name: "Metformin Tablets IP", itemType: "TABLET", strength: "500 mg", unit: "10x10 Tablets", category: "Drugs", mcid: 1, rate: 0.22},
	{code: "D517", name: "Ringer Lactate Solution", itemType: "IV FLUID", strength: "500 ml", unit: "500 ml Bottle", category: "Drugs", mcid: 1, rate: 11.9},
	{code: "D640", name: "Betamethasone Cream", itemType: "OINTMENT/CREAM", strength: "0.1%", unit: "15 g Tube", category: "Drugs", mcid: 1, rate: 6.75},
	{code: "A011", name: "Ashwagandha Churna", itemType: "POWDER", strength: "100 g", unit: "100 g Jar", category: "AYUSH Drugs", mcid: 4, rate: 48.0},
	{code: "A027", name: "Triphala Tablets", itemType: "TABLET", strength: "500 mg", unit: "60 Tablets", category: "AYUSH Drugs", mcid: 4, rate: 1.05},
}

var (
	suppliers      = []string{"Acme Pharmaceuticals", "Zenith Lifesciences", "Sunrise Remedies", "Narmada Drugs", "Vedic Herbals"}
	tenderCodes    = []string{"161(R)", "164", "173(R)", "180"}
	tenderStatuses = []string{"Price Opened", "Live", "Cover-A Opened", "Cover-B Opened", "Tender Cancelled"}
	rcStatuses     = []string{"RC Valid", "RC Not Valid", "RC Expired"}
	vedClasses     = []string{"V", "E", "D"}
)

// Generator produces the same rows for the same seed and reference date.
type Generator struct {
	rnd       *rand.Rand
	reference time.Time
	sequence  int64
}

func NewGenerator(seed int64, reference time.Time) *Generator {
	return &Generator{
		rnd:       rand.New(rand.NewSource(seed)),
		reference: dateOnly(reference),
	}
}

func (g *Generator) PurchaseOrders(count int) []PORecord {
	records := make([]PORecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, g.nextPurchaseOrder())
	}
	return records
}

func (g *Generator) Tenders(count int) []TenderRecord {
	records := make([]TenderRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, g.nextTender())
	}
	return records
}

func (g *Generator) nextPurchaseOrder() PORecord {
	g.sequence++
	product := catalog[g.rnd.Intn(len(catalog))]
	poDate := g.reference.AddDate(0, 0, -g.rnd.Intn(540))
	poQty := int64(100 * (1 + g.rnd.Intn(200)))
	received, status := g.pickSupply(poQty)
	pipeline := poQty - received
	rate := round2(product.rate * (0.9 + g.rnd.Float64()*0.2))
	const timeline = 60

	timely := "N"
	if status == "Supplied" && g.rnd.Intn(3) > 0 {
		timely = "Y"
	}

	return PORecord{
		MCID:               product.mcid,
		Category:           product.category,
		SupplierName:       pickOne(g.rnd, suppliers),
		PONo:               fmt.Sprintf("Drug Cell/%s/%09d", finYear(poDate), 102000000+g.sequence),
		ItemTypeName:       product.itemType,
		ItemCode:           product.code,
		ItemName:           product.name,
		Strength:           product.strength,
		VED:                pickOne(g.rnd, vedClasses),
		Unit:               product.unit,
		PODate:             poDate,
		POQty:              poQty,
		ReceivedQty:        received,
		PipelineQty:        pipeline,
		POTimeline:         timeline,
		POLastDay:          poDate.AddDate(0, 0, timeline),
		TimelySupplied:     timely,
		Status:             status,
		POFinYear:          finYear(poDate),
		TenderNo:           fmt.Sprintf("%s/CGMSCL/Drug Medicine/%s", pickOne(g.rnd, tenderCodes), finYear(poDate)),
		TotalPOValue:       lakhs(float64(poQty) * rate),
		TotalReceivedValue: lakhs(float64(received) * rate),
		TotalPipelineValue: lakhs(float64(pipeline) * rate),
		BaseRateInRs:       rate,
	}
}

func (g *Generator) nextTender() TenderRecord {
	product := catalog[g.rnd.Intn(len(catalog))]
	tenderIndex := g.rnd.Intn(len(tenderCodes))
	start := g.reference.AddDate(0, 0, -30-g.rnd.Intn(300))
	extensions := int32(g.rnd.Intn(3))
	coverA := int32(g.rnd.Intn(6))
	coverB := coverA - int32(g.rnd.Intn(int(coverA)+1))
	coverC := coverB - int32(g.rnd.Intn(int(coverB)+1))
	rcStatus := pickOne(g.rnd, rcStatuses)

	daysRemaining := int32(g.rnd.Intn(365))
	if rcStatus == "RC Expired" {
		daysRemaining = -int32(1 + g.rnd.Intn(180))
	}

	active := "Y"
	if g.rnd.Intn(10) == 0 {
		active = "N"
	}

	return TenderRecord{
		Category:            product.category,
		ItemCode:            product.code,
		ItemName:            product.name,
		Strength:            product.strength,
		Unit:                product.unit,
		TenderID:            int32(1000 + tenderIndex),
		TenderCode:          tenderCodes[tenderIndex],
		TenderStartDate:     start.Format(tenderDateLayout),
		SubmissionLastDate:  start.AddDate(0, 0, 21+7*int(extensions)).Format(tenderDateLayout),
		NoOfExtensions:      extensions,
		BidsCoverA:          coverA,
		BidsCoverB:          coverB,
		BidsCoverC:          coverC,
		TenderStatus:        pickOne(g.rnd, tenderStatuses),
		ItemRCStatus:        rcStatus,
		ItemRCDaysRemaining: daysRemaining,
		IsEDL2025:           pickOne(g.rnd, []string{"Y", "N"}),
		IsActive:            active,
	}
}

func (g *Generator) pickSupply(poQty int64) (int64, string) {
	p := g.rnd.Intn(100)
	switch {
	case p < 60:
		return poQty, "Supplied"
	case p < 85:
		return poQty * int64(10+g.rnd.Intn(80)) / 100, "Partial Supplied"
	default:
		return 0, "Non Supplied"
	}
}

// finYear returns the April-March financial year of t as "24-25".
func finYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%02d-%02d", start%100, (start+1)%100)
}

func lakhs(rupees float64) float64 {
	return math.Round(rupees/100000*10000) / 10000
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
