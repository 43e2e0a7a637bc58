package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerops/heteroledger/internal/domain"
	"github.com/ledgerops/heteroledger/internal/engine"
	"github.com/ledgerops/heteroledger/internal/loadgen"
	"github.com/ledgerops/heteroledger/internal/procedure"
	"github.com/ledgerops/heteroledger/internal/procedure/mongodoc"
	"github.com/ledgerops/heteroledger/internal/reset"
)

// Handler holds every collaborator the routes in spec §6 dispatch to. It
// reimplements none of their logic — same framing as the teacher's
// handlers.go, which wires services rather than embedding them.
type Handler struct {
	sqlEngines  map[engine.Name]procedure.Procedures
	mongo       *mongodoc.Store
	runner      *loadgen.Runner
	resetCoord  *reset.Coordinator
	rdgPassword string
	log         *zap.Logger
}

// NewHandler returns a Handler. sqlEngines must be keyed by sql-a/sql-b/sql-c.
func NewHandler(
	sqlEngines map[engine.Name]procedure.Procedures,
	mongoStore *mongodoc.Store,
	runner *loadgen.Runner,
	resetCoord *reset.Coordinator,
	rdgPassword string,
	log *zap.Logger,
) *Handler {
	return &Handler{
		sqlEngines:  sqlEngines,
		mongo:       mongoStore,
		runner:      runner,
		resetCoord:  resetCoord,
		rdgPassword: rdgPassword,
		log:         log,
	}
}

// procRequestWire is the decoded POST /db/proc/exec body (spec §6).
type procRequestWire struct {
	DBMS     string `json:"dbms"`
	Name     string `json:"name"`
	Args     []any  `json:"args"`
	OutCount int    `json:"out_count"`
	OutTypes []string `json:"out_types"`
	Mode     string `json:"mode"`
}

type procResultWire struct {
	TxnID  string `json:"txn_id"`
	Status string `json:"status"`
}

// DBProcExec handles POST /db/proc/exec: dispatch by dbms to the matching
// SQL engine's procedure layer (spec §6).
func (h *Handler) DBProcExec(w http.ResponseWriter, r *http.Request) {
	var req procRequestWire
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, ok := h.sqlEngines[engine.Name(req.DBMS)]
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown dbms: "+req.DBMS)
		return
	}

	res, err := dispatchProc(r.Context(), p, req.Name, req.Args)
	h.writeProcResult(w, res, err)
}

// mongoProcBody is the decoded POST /mongo_proc/{op} body (spec §6).
type mongoProcBody struct {
	Src            int64           `json:"src"`
	Dst            int64           `json:"dst"`
	DstBank        string          `json:"dst_bank"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idem"`
	Type           int             `json:"type"`
}

// MongoProcExec handles POST /mongo_proc/{op}: the document-store's
// equivalent of DBProcExec, plus the init/indexes bootstrap operation.
func (h *Handler) MongoProcExec(w http.ResponseWriter, r *http.Request) {
	op := mux.Vars(r)["op"]

	if op == "init/indexes" {
		if err := h.mongo.EnsureIndexes(r.Context()); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondOK(w, http.StatusOK, map[string]any{"indexed": true})
		return
	}

	var body mongoProcBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req := procedure.HoldRequest{
		Src: body.Src, Dst: body.Dst, DstBank: body.DstBank, Amount: body.Amount,
		IdempotencyKey: body.IdempotencyKey, Type: domain.TxnType(body.Type),
	}

	var res procedure.Result
	var err error
	switch op {
	case "remittance/hold":
		res, err = h.mongo.RemittanceHold(r.Context(), req)
	case "remittance/release":
		res, err = h.mongo.RemittanceRelease(r.Context(), body.IdempotencyKey)
	case "receive/prepare":
		res, err = h.mongo.ReceivePrepare(r.Context(), req)
	case "confirm/debit/local":
		res, err = h.mongo.ConfirmDebitLocal(r.Context(), body.IdempotencyKey)
	case "confirm/credit/local":
		res, err = h.mongo.ConfirmCreditLocal(r.Context(), body.IdempotencyKey)
	case "transfer/confirm/internal":
		res, err = h.mongo.TransferConfirmInternal(r.Context(), body.IdempotencyKey)
	default:
		respondError(w, http.StatusBadRequest, "unknown mongo_proc op: "+op)
		return
	}
	h.writeProcResult(w, res, err)
}

func (h *Handler) writeProcResult(w http.ResponseWriter, res procedure.Result, err error) {
	if err != nil {
		respondError(w, statusForErr(err), err.Error())
		return
	}
	respondOK(w, http.StatusOK, procResultWire{TxnID: res.TxnID, Status: res.Status.String()})
}

// statusForErr maps a procedure-layer error to an HTTP status, per spec §7's
// propagation table: engine-busy is a lock timeout (423 Locked), everything
// else this dispatcher can see is either a bad request or an engine fault.
func statusForErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrEngineBusy):
		return http.StatusLocked
	case errors.Is(err, domain.ErrProtocol):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// rdgStartBody is the decoded POST /rdg/start body (spec §6): loadgen.Config
// plus the password gate.
type rdgStartBody struct {
	Password string `json:"password"`
	loadgen.Config
}

// RDGStart handles POST /rdg/start (spec §4.3, §6).
func (h *Handler) RDGStart(w http.ResponseWriter, r *http.Request) {
	var body rdgStartBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !h.checkPassword(body.Password) {
		respondError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	if err := h.runner.Start(body.Config); err != nil {
		if err == loadgen.ErrAlreadyRunning {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, http.StatusOK, h.runner.Status())
}

type passwordBody struct {
	Password string `json:"password"`
}

// RDGStop handles POST /rdg/stop (spec §4.3, §6).
func (h *Handler) RDGStop(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !h.checkPassword(body.Password) {
		respondError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	h.runner.Stop()
	respondOK(w, http.StatusOK, h.runner.Status())
}

// RDGStatus handles GET /rdg/status (spec §6); unauthenticated, read-only.
func (h *Handler) RDGStatus(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, h.runner.Status())
}

// SystemReset handles POST /system/reset (spec §4.5, §6).
func (h *Handler) SystemReset(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !h.checkPassword(body.Password) {
		respondError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	results, err := h.resetCoord.Reset(r.Context())
	if err != nil {
		// spec §8 scenario 6: reset-while-running is a 400, not a 409 — the
		// request itself is invalid while the generator holds the floor.
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		entry := map[string]any{"engine": string(r.Engine)}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
		}
		out = append(out, entry)
	}
	respondOK(w, http.StatusOK, map[string]any{"results": out})
}

// Healthz handles GET /healthz: a plain liveness probe, no dependency checks.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, map[string]string{"status": "ok"})
}

// checkPassword reports whether got matches the configured RDG password.
// An empty configured password means the gate is disabled (local/dev use).
func (h *Handler) checkPassword(got string) bool {
	if h.rdgPassword == "" {
		return true
	}
	return got == h.rdgPassword
}
