package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for the legacy "datetime" field written by the browser
// version of the tracker (Date.prototype.toLocaleString).
var legacyDatetimeLayouts = []string{
	time.RFC3339Nano,
	"1/2/2006, 3:04:05 PM",
	"2/1/2006, 15:04:05",
	"02/01/2006, 15:04:05",
	"2006-01-02 15:04:05",
	"2.1.2006, 15:04:05",
	"2006/1/2 15:04:05",
}

// Browsers put a narrow no-break space (ICU 72+) or a no-break space between
// the time and the day period.
var datetimeSpaces = strings.NewReplacer("\u202f", " ", "\u00a0", " ")

type transactionJSON struct {
	ID         string    `json:"id"`
	Timestamp  string    `json:"timestamp,omitempty"`
	Datetime   string    `json:"datetime,omitempty"`
	Note       string    `json:"note"`
	Amount     Money     `json:"amount"`
	IsLoan     looseBool `json:"isLoan"`
	DueDate    string    `json:"dueDate,omitempty"`
	PaidAmount Money     `json:"paidAmount"`
}

func (tx Transaction) MarshalJSON() ([]byte, error) {
	w := transactionJSON{
		ID:         tx.ID,
		Note:       tx.Note,
		Amount:     tx.Amount,
		IsLoan:     looseBool(tx.IsLoan),
		PaidAmount: tx.PaidAmount,
	}
	if !tx.Timestamp.IsZero() {
		w.Timestamp = tx.Timestamp.UTC().Format(time.RFC3339Nano)
	} else {
		w.Datetime = tx.LegacyDatetime
	}
	if tx.IsLoan {
		w.DueDate = tx.DueDate.String()
	}
	return json.Marshal(w)
}

// UnmarshalJSON normalizes stored records: isLoan may be a boolean or a
// "true"/"false" string, amounts may be numbers or strings, and records from
// the browser version carry "datetime" instead of "timestamp" and no id.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var w transactionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*tx = Transaction{
		ID:         strings.TrimSpace(w.ID),
		Note:       w.Note,
		Amount:     w.Amount,
		IsLoan:     bool(w.IsLoan),
		PaidAmount: w.PaidAmount,
	}
	switch {
	case w.Timestamp != "":
		ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", w.Timestamp, err)
		}
		tx.Timestamp = ts.UTC()
	case w.Datetime != "":
		if ts, ok := parseLegacyDatetime(w.Datetime); ok {
			tx.Timestamp = ts
		} else {
			tx.LegacyDatetime = w.Datetime
		}
	}
	if tx.IsLoan && strings.TrimSpace(w.DueDate) != "" {
		d, err := ParseDate(w.DueDate)
		if err != nil {
			return fmt.Errorf("dueDate %q: %w", w.DueDate, err)
		}
		tx.DueDate = d
	}
	return nil
}

// parseLegacyDatetime reports false when no layout matches. Such records keep
// the raw text and sort last.
func parseLegacyDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(datetimeSpaces.Replace(s))
	for _, layout := range legacyDatetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type targetJSON struct {
	ID     looseInt `json:"id"`
	Name   string   `json:"name"`
	Amount Money    `json:"amount"`
}

func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(targetJSON{ID: looseInt(t.ID), Name: t.Name, Amount: t.Amount})
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var w targetJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Target{ID: int64(w.ID), Name: w.Name, Amount: w.Amount}
	return nil
}

// looseBool decodes true, false, "true", "false" (any case) and null.
type looseBool bool

func (b looseBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

func (b *looseBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*b = true
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("null")):
		*b = false
	case len(data) > 0 && data[0] == '"':
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*b = looseBool(strings.EqualFold(strings.TrimSpace(s), "true"))
	default:
		return fmt.Errorf("isLoan: unexpected value %s", data)
	}
	return nil
}

// looseInt decodes a JSON number or a numeric string.
type looseInt int64

func (n looseInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(n), 10)), nil
}

func (n *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unq)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Date.now() ids are integral, but tolerate a float encoding.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("id %q: %w", s, err)
		}
		v = int64(f)
	}
	*n = looseInt(v)
	return nil
}
