package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   Kind = "income"
	Outgoing Kind = "outgoing"
)

// Persisted collection keys.
const (
	KeyTransactions = "transactions"
	KeyTargets      = "targets"
)

const maxNoteLength = 200

type (
	// Kind tells whether an entered amount is money in or money out.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger record. Amount is signed: positive is
	// income (or a loan extended by the user), negative is outgoing (or a
	// loan taken by the user).
	Transaction struct {
		ID             string
		Timestamp      time.Time
		// LegacyDatetime holds a browser "datetime" that could not be
		// parsed, so it survives a re-export.
		LegacyDatetime string
		Note           string
		Amount         Money
		IsLoan         bool
		DueDate        Date // only set for loans
		PaidAmount     Money
	}

	// NewTransaction is what a user enters. Amount is the unsigned magnitude,
	// Kind decides the sign.
	NewTransaction struct {
		Kind    Kind
		Note    string
		Amount  Money
		IsLoan  bool
		DueDate Date
	}

	// Target is a savings goal measured against the running total.
	Target struct {
		ID     int64
		Name   string
		Amount Money
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrEmptyNote       = errors.New("empty note")
	ErrNoteTooLong     = errors.New("note too long (max 200 characters)")
	ErrMissingDueDate  = errors.New("loan requires a due date")
	ErrEmptyName       = errors.New("empty target name")
	ErrNotFound        = errors.New("not found")
	ErrNotLoan         = errors.New("transaction is not a loan")
	ErrNotConfirmed    = errors.New("operation not confirmed")
	ErrInvalidDocument = errors.New("invalid document")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (k Kind) Validate() error {
	switch k {
	case Income, Outgoing:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (n NewTransaction) Validate() error {
	if err := n.Kind.Validate(); err != nil {
		return err
	}
	note := strings.TrimSpace(n.Note)
	if note == "" {
		return ErrEmptyNote
	}
	if len(note) > maxNoteLength {
		return ErrNoteTooLong
	}
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	if n.IsLoan {
		if n.DueDate.IsZero() {
			return ErrMissingDueDate
		}
		if err := n.DueDate.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Build turns the user input into a ledger record. The amount sign follows
// Kind and the due date is dropped for non-loans.
func (n NewTransaction) Build(id string, now time.Time) Transaction {
	amount := n.Amount.Abs()
	if n.Kind == Outgoing {
		amount = amount.Neg()
	}
	tx := Transaction{
		ID:        id,
		Timestamp: now.UTC(),
		Note:      strings.TrimSpace(n.Note),
		Amount:    amount,
		IsLoan:    n.IsLoan,
	}
	if n.IsLoan {
		tx.DueDate = n.DueDate
	}
	return tx
}

func (t Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	return t.Amount.Validate()
}
