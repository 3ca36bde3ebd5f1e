package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDescription fills the description of transactions created without one.
const DefaultDescription = "no description"

type (
	Date struct {
		time.Time
	}

	// Account is a real-world money store. Exactly one account carries
	// IsChecking and acts as the default for balance lookups.
	Account struct {
		ID          int64
		Name        string
		Description string
		IsChecking  bool
		IBANTail    string // last four digits of the IBAN, empty when not set
	}

	// Category is an envelope bucket. AssignedAmount tracks allocatable
	// funds; it may go negative only on the stage category.
	Category struct {
		ID             int64
		Title          string
		Description    string
		AssignedAmount decimal.Decimal
		IsStage        bool
	}

	// Transaction is a single financial event. Amount is signed: positive
	// for inflows, negative for outflows.
	Transaction struct {
		ID          int64
		Payee       string
		CreatedAt   time.Time
		UpdatedAt   time.Time
		Date        Date
		Description string
		Amount      decimal.Decimal
		IsTransfer  bool
		CategoryID  *int64
		AccountID   int64
	}

	// BalanceEntry is one immutable snapshot in an account's running balance
	// history. AmountRecord keeps the applied delta even after the source
	// transaction is gone.
	BalanceEntry struct {
		ID            int64
		AccountID     int64
		EntryTime     time.Time
		AmountRecord  decimal.Decimal
		RunningTotal  decimal.Decimal
		IsCurrent     bool
		TransactionID *int64
	}
)

var ibanTailPattern = regexp.MustCompile(`^[0-9]{4}$`)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidInput, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrEmptyDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AfterDay reports whether d falls on a later calendar day than other.
func (d Date) AfterDay(other Date) bool {
	return d.Year() > other.Year() ||
		(d.Year() == other.Year() && d.YearDay() > other.YearDay())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (a Account) Validate() error {
	name := strings.TrimSpace(a.Name)
	if len(name) < 2 || len(name) > 30 {
		return ErrNameLength
	}
	if len(a.Description) > 100 {
		return ErrDescriptionLength
	}
	if a.IBANTail != "" && !ibanTailPattern.MatchString(a.IBANTail) {
		return ErrIBANTail
	}
	return nil
}

func (c Category) Validate() error {
	title := strings.TrimSpace(c.Title)
	if len(title) < 2 || len(title) > 40 {
		return ErrTitleLength
	}
	if len(c.Description) > 100 {
		return ErrDescriptionLength
	}
	return nil
}

// Validate checks the shape of a transaction; whether its date lies in the
// future depends on a clock and timezone, which the ledger owns.
func (t Transaction) Validate() error {
	payee := strings.TrimSpace(t.Payee)
	if len(payee) < 2 || len(payee) > 100 {
		return ErrPayeeLength
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLength
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return ValidateAmount(t.Amount)
}
