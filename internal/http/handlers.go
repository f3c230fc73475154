package http

import (
	"fmt"
	"net/http"
	"strconv"

	"funds/internal/core"
	"funds/internal/log"
)

// exportFileName is the download name offered for exports.
const exportFileName = "funds-tracker-backup.json"

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.summaryResponse(sum))
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toNewTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction added",
		log.FieldID, tx.ID,
		log.FieldAmount, tx.Amount.String(),
		"is_loan", tx.IsLoan)
	writeJSON(w, http.StatusCreated, s.transactionView(tx))
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	var req repayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	paid, err := req.Amount.Money()
	if err != nil {
		writeError(w, r, err)
		return
	}

	sum, err := s.ledger.Repay(r.Context(), r.PathValue("id"), paid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.summaryResponse(sum))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, r, core.ErrNotConfirmed)
		return
	}
	sum, err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.summaryResponse(sum))
}

func (s *Server) handleLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.Loans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]loanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, loanView{
			transactionView: s.transactionView(l.Transaction),
			Dueness:         l.Dueness,
			DaysLeft:        l.DaysLeft,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type targetsResponse struct {
	Total   core.Money     `json:"total"`
	Targets []progressView `json:"targets"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := s.summaryResponse(sum)
	writeJSON(w, http.StatusOK, targetsResponse{Total: resp.Total, Targets: resp.Targets})
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		writeError(w, r, err)
		return
	}

	target, err := s.ledger.AddTarget(r.Context(), sanitizeInput(req.Name), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.progressView(core.ProgressOf(target, sum.Total)))
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, fmt.Errorf("target %q: %w", r.PathValue("id"), core.ErrNotFound))
		return
	}
	if !confirmed(r) {
		writeError(w, r, core.ErrNotConfirmed)
		return
	}
	if err := s.ledger.RemoveTarget(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ledger.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName+`"`)
	if err := core.EncodeDocument(w, doc); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export write failed", log.FieldError, err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	doc, err := core.DecodeDocument(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Import(r.Context(), doc); err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.summaryResponse(sum))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, r, core.ErrNotConfirmed)
		return
	}
	if err := s.ledger.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
