package http

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"funds/internal/core"
	"funds/internal/services"
)

type transactionRequest struct {
	Kind    string      `json:"kind"`
	Note    string      `json:"note"`
	Amount  amountField `json:"amount"`
	IsLoan  bool        `json:"isLoan"`
	DueDate string      `json:"dueDate"`
}

func (req transactionRequest) toNewTransaction() (core.NewTransaction, error) {
	amount, err := req.Amount.Money()
	if err != nil {
		return core.NewTransaction{}, err
	}
	in := core.NewTransaction{
		Kind:   core.Kind(sanitizeInput(req.Kind)),
		Note:   sanitizeInput(req.Note),
		Amount: amount,
		IsLoan: req.IsLoan,
	}
	if req.IsLoan && req.DueDate != "" {
		due, err := core.ParseDate(req.DueDate)
		if err != nil {
			return core.NewTransaction{}, fmt.Errorf("%w: %q", errInvalidDueDate, req.DueDate)
		}
		in.DueDate = due
	}
	return in, nil
}

type repayRequest struct {
	Amount amountField `json:"amount"`
}

type targetRequest struct {
	Name   string      `json:"name"`
	Amount amountField `json:"amount"`
}

type loanStatusView struct {
	Principal  core.Money      `json:"principal"`
	Paid       core.Money      `json:"paid"`
	Remaining  core.Money      `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
	Settled    bool            `json:"settled"`
}

type transactionView struct {
	ID         string          `json:"id"`
	Timestamp  string          `json:"timestamp,omitempty"`
	Note       string          `json:"note"`
	Amount     core.Money      `json:"amount"`
	Display    string          `json:"display"`
	IsLoan     bool            `json:"isLoan"`
	DueDate    string          `json:"dueDate,omitempty"`
	PaidAmount core.Money      `json:"paidAmount"`
	Loan       *loanStatusView `json:"loan,omitempty"`
}

type progressView struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Amount     core.Money      `json:"amount"`
	Display    string          `json:"display"`
	Percentage decimal.Decimal `json:"percentage"`
	Remaining  core.Money      `json:"remaining"`
	Complete   bool            `json:"complete"`
}

type summaryResponse struct {
	Total        core.Money        `json:"total"`
	Display      string            `json:"display"`
	Transactions []transactionView `json:"transactions"`
	Targets      []progressView    `json:"targets"`
}

type loanView struct {
	transactionView
	Dueness  services.Dueness `json:"dueness"`
	DaysLeft int              `json:"daysLeft"`
}

func (s *Server) transactionView(tx core.Transaction) transactionView {
	v := transactionView{
		ID:         tx.ID,
		Note:       tx.Note,
		Amount:     tx.Amount,
		Display:    tx.Amount.Format(s.currency),
		IsLoan:     tx.IsLoan,
		DueDate:    tx.DueDate.String(),
		PaidAmount: tx.PaidAmount,
	}
	if !tx.Timestamp.IsZero() {
		v.Timestamp = tx.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if status, ok := core.LoanStatusOf(tx); ok {
		v.Loan = &loanStatusView{
			Principal:  status.Principal,
			Paid:       status.Paid,
			Remaining:  status.Outstanding(),
			Percentage: status.Percentage,
			Settled:    status.Settled(),
		}
	}
	return v
}

func (s *Server) progressView(p core.Progress) progressView {
	return progressView{
		ID:         p.Target.ID,
		Name:       p.Target.Name,
		Amount:     p.Target.Amount,
		Display:    p.Target.Amount.Format(s.currency),
		Percentage: p.Percentage,
		Remaining:  p.Remaining,
		Complete:   p.Complete,
	}
}

func (s *Server) summaryResponse(sum core.Summary) summaryResponse {
	resp := summaryResponse{
		Total:        sum.Total,
		Display:      sum.Total.Format(s.currency),
		Transactions: make([]transactionView, 0, len(sum.Transactions)),
		Targets:      make([]progressView, 0, len(sum.Targets)),
	}
	for _, tx := range sum.Transactions {
		resp.Transactions = append(resp.Transactions, s.transactionView(tx))
	}
	for _, p := range sum.Targets {
		resp.Targets = append(resp.Targets, s.progressView(p))
	}
	return resp
}
