package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/billing"
	"github.com/practicehub/ledger/internal/config"
	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/engine"
	"github.com/practicehub/ledger/internal/reconciliation"
	"github.com/practicehub/ledger/internal/repository"
)

const (
	maxBodyBytes    = 1 << 20
	defaultLogLimit = 100
	maxLogLimit     = 500
	maxWindowDays   = 3650
)

// Pinger reports whether the ledger store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	engine *engine.Engine
	db     Pinger
	logger logrus.FieldLogger
}

// Response is the envelope for every API reply.
type Response struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithField("module", "api").WithError(err).Error("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, Response{Error: msg, Code: code})
}

func writeDomainError(w http.ResponseWriter, err error) {
	resp := Response{Error: err.Error(), Code: domain.Code(err)}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if resp.Code == "store" || resp.Code == "internal" {
		resp.Error = "internal error"
	}
	writeJSON(w, statusFor(err), resp)
}

// run executes cmd on behalf of the caller and writes the envelope.
func (h *Handlers) run(w http.ResponseWriter, r *http.Request, status int, cmd engine.Command) {
	data, err := h.engine.Execute(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, status, Response{Success: true, Data: data})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", "json: "+err.Error())
	}
	return nil
}

func parseTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil, domain.NewValidationError(field, "datetime=RFC3339|2006-01-02")
		}
	}
	return &t, nil
}

func parseBoundedInt(field, s string, def, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > max {
		return 0, domain.NewValidationError(field, "min=0,max="+strconv.Itoa(max))
	}
	return v, nil
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			config.LogError(h.logger, "api", "Health", "ping ledger store", nil, err)
			writeError(w, http.StatusServiceUnavailable, "store", "ledger store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- BusinessHub ---

func (h *Handlers) BusinessHub(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	cmd, err := engine.ParseCommand(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.run(w, r, http.StatusOK, cmd)
}

// --- Billing ---

func (h *Handlers) CreateBillingEntry(w http.ResponseWriter, r *http.Request) {
	var req billing.EntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	h.run(w, r, http.StatusCreated, engine.BillingAutomation{
		OrganizationID: chi.URLParam(r, "orgID"),
		Entry:          req,
	})
}

func (h *Handlers) ListBillingEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseTime("from", q.Get("from"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	to, err := parseTime("to", q.Get("to"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.run(w, r, http.StatusOK, engine.ListBillingEntries{
		OrganizationID: chi.URLParam(r, "orgID"),
		Filter: repository.BillingFilter{
			MatterID: q.Get("matter_id"),
			From:     from,
			To:       to,
		},
	})
}

type markBilledRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

func (h *Handlers) MarkBilled(w http.ResponseWriter, r *http.Request) {
	var req markBilledRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	h.run(w, r, http.StatusOK, engine.MarkBilled{
		OrganizationID: chi.URLParam(r, "orgID"),
		EntryIDs:       req.EntryIDs,
	})
}

// --- Trust ---

func (h *Handlers) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, engine.TrustReconciliation{
		OrganizationID: chi.URLParam(r, "orgID"),
		AccountID:      r.URL.Query().Get("account_id"),
	})
}

func (h *Handlers) RecordTrustTransaction(w http.ResponseWriter, r *http.Request) {
	var req reconciliation.TransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	h.run(w, r, http.StatusCreated, engine.RecordTrustTransaction{
		OrganizationID: chi.URLParam(r, "orgID"),
		AccountID:      chi.URLParam(r, "accountID"),
		Transaction:    req,
	})
}

func (h *Handlers) ConfirmTrustAccount(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, engine.TrustConfirmation{
		OrganizationID: chi.URLParam(r, "orgID"),
		AccountID:      chi.URLParam(r, "accountID"),
	})
}

// --- Compliance ---

func (h *Handlers) GetComplianceReport(w http.ResponseWriter, r *http.Request) {
	days, err := parseBoundedInt("window_days", r.URL.Query().Get("window_days"), 0, maxWindowDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.run(w, r, http.StatusOK, engine.ComplianceReport{
		OrganizationID: chi.URLParam(r, "orgID"),
		Window:         time.Duration(days) * 24 * time.Hour,
	})
}

func (h *Handlers) ListComplianceLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseTime("from", q.Get("from"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	to, err := parseTime("to", q.Get("to"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit, err := parseBoundedInt("limit", q.Get("limit"), defaultLogLimit, maxLogLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sev := q.Get("severity"); sev != "" && !domain.Severity(sev).Valid() {
		writeDomainError(w, domain.NewValidationError("severity", "oneof=info warning critical"))
		return
	}

	h.run(w, r, http.StatusOK, engine.ListComplianceLogs{
		OrganizationID: chi.URLParam(r, "orgID"),
		Filter: repository.ComplianceFilter{
			Framework: q.Get("framework"),
			Severity:  q.Get("severity"),
			From:      from,
			To:        to,
			Limit:     limit,
		},
	})
}

// --- Analytics ---

func (h *Handlers) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, engine.Analytics{OrganizationID: chi.URLParam(r, "orgID")})
}
