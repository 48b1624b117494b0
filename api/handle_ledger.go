package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
)

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type withdrawalRequest struct {
	Amount         uint64        `json:"amount"`
	InclusionProof hexutil.Bytes `json:"inclusion_proof"`
}

type withdrawalResponse struct {
	*rollup.WithdrawalRequest
	Status types.WithdrawalStatus `json:"status"`
}

type fundRequest struct {
	Amount uint64 `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	var req depositRequest
	if err := decode(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	caller := signer(r)
	if err := s.engine.Deposit(r.Context(), caller, rollupID, req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}

	balance, err := s.engine.GetBalance(r.Context(), rollupID, caller)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, balance)
}

func (s *Server) handleWithdrawalInitiate(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	var req withdrawalRequest
	if err := decode(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	requestID, err := s.engine.InitiateWithdrawal(r.Context(), signer(r), rollupID, req.Amount, req.InclusionProof)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{"rollup_id": rollupID, "request_id": requestID})
}

func (s *Server) handleWithdrawalGet(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	requestID, err := uintParam(r, "requestID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	withdrawal, err := s.engine.GetWithdrawal(r.Context(), rollupID, requestID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	height, err := s.engine.Height(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, withdrawalResponse{WithdrawalRequest: withdrawal, Status: withdrawal.Status(height)})
}

func (s *Server) handleWithdrawalExecute(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	requestID, err := uintParam(r, "requestID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.ExecuteWithdrawal(r.Context(), signer(r), rollupID, requestID); err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"rollup_id": rollupID, "request_id": requestID, "executed": true})
}

func (s *Server) handleAccountFund(w http.ResponseWriter, r *http.Request) {
	account, err := addressParam(r, "address")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	var req fundRequest
	if err := decode(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	if req.Amount == 0 || req.Amount > rollup.MaxAmount {
		ERROR(w, http.StatusBadRequest, rollup.ErrInvalidAmount)
		return
	}

	if err := s.funder.Fund(r.Context(), account, req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"account": account, "funded": req.Amount})
}
