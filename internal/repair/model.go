package repair

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Surname   string     `json:"surname"`
	TaxID     string     `json:"taxId"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Address   string     `json:"address"`
	Kind      ClientKind `json:"kind"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (c Client) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.Surname)
}

type Case struct {
	ID            int64      `json:"id"`
	EntryNumber   string     `json:"entryNumber"`
	ClientID      int64      `json:"clientId"`
	Status        Status     `json:"status"`
	Notes         string     `json:"notes"`
	Receptionist  string     `json:"receptionist,omitempty"`
	InvoiceNumber string     `json:"invoiceNumber,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	DeliveredAt   *time.Time `json:"deliveredAt,omitempty"`
	InvoicedAt    *time.Time `json:"invoicedAt,omitempty"`
}

type Equipment struct {
	ID       int64  `json:"id"`
	CaseID   int64  `json:"caseId"`
	Type     string `json:"type"`
	Brand    string `json:"brand"`
	Serial   string `json:"serial"`
	Quantity int    `json:"quantity"`
	Power    string `json:"power"`
	Voltage  string `json:"voltage"`
	RPM      string `json:"rpm"`
}

// Budget is a quote. Only the row with SupersededAt == nil is active.
type Budget struct {
	ID              int64               `json:"id"`
	CaseID          int64               `json:"caseId"`
	Diagnosis       string              `json:"diagnosis"`
	Process         string              `json:"process"`
	Parts           string              `json:"parts"`
	Total           decimal.NullDecimal `json:"total"`
	DiagnosticFee   decimal.Decimal     `json:"diagnosticFee"`
	Deposit         decimal.Decimal     `json:"deposit"`
	DiagnosticPaid  bool                `json:"diagnosticPaid"`
	DepositPaid     bool                `json:"depositPaid"`
	Rejected        bool                `json:"rejected"`
	InvoiceRequired bool                `json:"invoiceRequired"`
	CreatedAt       time.Time           `json:"createdAt"`
	SupersededAt    *time.Time          `json:"supersededAt,omitempty"`
}

// Complete reports whether the quote can be presented to the client.
func (b *Budget) Complete() bool {
	if b == nil {
		return false
	}
	return strings.TrimSpace(b.Diagnosis) != "" &&
		strings.TrimSpace(b.Process) != "" &&
		b.Total.Valid
}

type WorkAssignment struct {
	CaseID    int64      `json:"caseId"`
	Lead      string     `json:"lead"`
	Assembler string     `json:"assembler"`
	Notes     string     `json:"notes"`
	Status    WorkStatus `json:"status"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type Delivery struct {
	CaseID        int64          `json:"caseId"`
	Cashier       string         `json:"cashier"`
	PickupDate    *time.Time     `json:"pickupDate"`
	PickupName    string         `json:"pickupName"`
	PickupSurname string         `json:"pickupSurname"`
	PickupID      string         `json:"pickupId"`
	Status        DeliveryStatus `json:"status"`
	Reason        DeliveryReason `json:"reason,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Bundle is a case with everything hanging off it.
type Bundle struct {
	Case      Case            `json:"case"`
	Client    *Client         `json:"client"`
	Equipment []Equipment     `json:"equipment"`
	Budget    *Budget         `json:"budget"`
	Work      *WorkAssignment `json:"work"`
	Delivery  *Delivery       `json:"delivery"`
}
