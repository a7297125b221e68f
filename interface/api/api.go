package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ethpool/domain"
	"ethpool/domain/util"
	"ethpool/usecase"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// CallerHeader carries the address a write request acts as.
const CallerHeader = "X-Caller"

const maxBodyBytes = 1 << 16

// Server exposes the pool over HTTP. Writes go through the same interactors as
// the command line, so a running server is the way to change a bolt ledger it
// holds open.
type Server struct {
	poolInteractor  *usecase.PoolInteractor
	teamInteractor  *usecase.TeamInteractor
	auditInteractor *usecase.AuditInteractor
	log             *logrus.Entry
}

func NewServer(poolInteractor *usecase.PoolInteractor,
	teamInteractor *usecase.TeamInteractor,
	auditInteractor *usecase.AuditInteractor) *Server {
	return &Server{
		poolInteractor:  poolInteractor,
		teamInteractor:  teamInteractor,
		auditInteractor: auditInteractor,
		log:             logrus.StandardLogger().WithField("type", "interface/api"),
	}
}

type Amount struct {
	Wei string `json:"wei"`
	Eth string `json:"eth"`
}

func newAmount(value *uint256.Int) Amount {
	return Amount{
		Wei: value.Dec(),
		Eth: util.WeiToEthString(value),
	}
}

type PoolResponse struct {
	TotalPrincipal Amount            `json:"total_principal"`
	Custody        Amount            `json:"custody"`
	AccPerShare    string            `json:"acc_per_share"`
	TeamMembers    int               `json:"team_members"`
	LastAudit      *domain.AuditMemo `json:"last_audit,omitempty"`
}

type AccountResponse struct {
	Address   string `json:"address"`
	Principal Amount `json:"principal"`
	Pending   Amount `json:"pending"`
	Balance   Amount `json:"balance"`
}

type MemberResponse struct {
	Address string `json:"address"`
	Member  bool   `json:"member"`
}

type AmountRequest struct {
	Wei string `json:"wei"`
}

type MemberRequest struct {
	Address string `json:"address"`
}

type WithdrawalResponse struct {
	Address string `json:"address"`
	Payout  Amount `json:"payout"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (server *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/pool", server.getPool)
	r.Get("/accounts/{address}", server.getAccount)
	r.Get("/team", server.getTeam)
	r.Get("/team/{address}", server.getMember)

	r.Post("/deposits", server.postDeposit)
	r.Post("/withdrawals", server.postWithdrawal)
	r.Post("/rewards", server.postReward)
	r.Post("/team", server.postMember)
	r.Delete("/team/{address}", server.deleteMember)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (server *Server) getPool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := server.poolInteractor.State(ctx)
	if err != nil {
		server.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	members, err := server.teamInteractor.Members(ctx)
	if err != nil {
		server.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	audit, err := server.auditInteractor.LastAudit(ctx)
	if err != nil {
		server.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, PoolResponse{
		TotalPrincipal: newAmount(&state.TotalPrincipal),
		Custody:        newAmount(&state.Custody),
		AccPerShare:    state.AccPerShare.Dec(),
		TeamMembers:    len(members),
		LastAudit:      audit,
	})
}

func (server *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	address, err := util.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		server.fail(w, r, http.StatusBadRequest, err)
		return
	}

	view, err := server.poolInteractor.Account(r.Context(), address)
	if err != nil {
		server.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		Address:   address.Hex(),
		Principal: newAmount(&view.Account.Principal),
		Pending:   newAmount(view.Pending),
		Balance:   newAmount(view.Balance),
	})
}

func (server *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	members, err := server.teamInteractor.Members(r.Context())
	if err != nil {
		server.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	res := make([]string, 0, len(members))
	for _, member := range members {
		res = append(res, member.Hex())
	}
	writeJSON(w, http.StatusOK, res)
}

func (server *Server) getMember(w http.ResponseWriter, r *http.Request) {
	address, err := util.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		server.fail(w, r, http.StatusBadRequest, err)
		return
	}

	member, err := server.teamInteractor.IsMember(r.Context(), address)
	if err != nil {
		server.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Address: address.Hex(), Member: member})
}

func (server *Server) postDeposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := server.caller(w, r)
	if !ok {
		return
	}
	amount, ok := server.amount(w, r)
	if !ok {
		return
	}

	if err := server.poolInteractor.Deposit(r.Context(), caller, amount); err != nil {
		server.fail(w, r, statusOf(err), err)
		return
	}

	view, err := server.poolInteractor.Account(r.Context(), caller)
	if err != nil {
		server.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		Address:   caller.Hex(),
		Principal: newAmount(&view.Account.Principal),
		Pending:   newAmount(view.Pending),
		Balance:   newAmount(view.Balance),
	})
}

func (server *Server) postWithdrawal(w http.ResponseWriter, r *http.Request) {
	caller, ok := server.caller(w, r)
	if !ok {
		return
	}

	payout, err := server.poolInteractor.Withdraw(r.Context(), caller)
	if err != nil {
		server.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawalResponse{Address: caller.Hex(), Payout: newAmount(payout)})
}

func (server *Server) postReward(w http.ResponseWriter, r *http.Request) {
	caller, ok := server.caller(w, r)
	if !ok {
		return
	}
	amount, ok := server.amount(w, r)
	if !ok {
		return
	}

	if err := server.poolInteractor.Receive(r.Context(), caller, amount); err != nil {
		server.fail(w, r, statusOf(err), err)
		return
	}
	server.getPool(w, r)
}

func (server *Server) postMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := server.caller(w, r)
	if !ok {
		return
	}
	req := MemberRequest{}
	if !server.decode(w, r, &req) {
		return
	}
	member, err := util.ParseAddress(req.Address)
	if err != nil {
		server.fail(w, r, http.StatusBadRequest, err)
		return
	}

	if err := server.teamInteractor.AddMember(r.Context(), caller, member); err != nil {
		server.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Address: member.Hex(), Member: true})
}

func (server *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := server.caller(w, r)
	if !ok {
		return
	}
	member, err := util.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		server.fail(w, r, http.StatusBadRequest, err)
		return
	}

	if err := server.teamInteractor.RemoveMember(r.Context(), caller, member); err != nil {
		server.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Address: member.Hex(), Member: false})
}

// caller reads the acting address from CallerHeader.
func (server *Server) caller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	caller, err := util.ParseAddress(r.Header.Get(CallerHeader))
	if err != nil {
		server.fail(w, r, http.StatusBadRequest, domain.ErrorInvalidCaller)
		return common.Address{}, false
	}
	return caller, true
}

func (server *Server) amount(w http.ResponseWriter, r *http.Request) (*uint256.Int, bool) {
	req := AmountRequest{}
	if !server.decode(w, r, &req) {
		return nil, false
	}
	amount, err := util.ParseWei(req.Wei)
	if err != nil {
		server.fail(w, r, http.StatusBadRequest, err)
		return nil, false
	}
	return amount, true
}

func (server *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		server.fail(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrorUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrorInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrorNoDeposit), errors.Is(err, domain.ErrorNoDepositsToReward):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (server *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	entry := server.log.WithError(err).WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"request_id": chimw.GetReqID(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("🔴 serving request")
	} else {
		entry.Warn("🟡 bad request")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
