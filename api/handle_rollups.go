package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
)

type registerRequest struct {
	Name             string                 `json:"name"`
	BlockTime        uint64                 `json:"block_time"`
	MaxTxPerBlock    uint64                 `json:"max_tx_per_block"`
	DataAvailability types.DataAvailability `json:"data_availability"`
	ExecutionType    types.ExecutionType    `json:"execution_type"`
	Operator         *common.Address        `json:"operator,omitempty"`
	GenesisRoot      common.Hash            `json:"genesis_root"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	height, err := s.engine.Height(r.Context())
	if err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]interface{}{"health_status": "degraded", "error": err.Error()})
		return
	}
	body := map[string]interface{}{"health_status": "online", "height": height}
	if s.opts.ChainID != nil {
		body["chain_id"] = s.opts.ChainID
	}
	JSON(w, http.StatusOK, body)
}

func (s *Server) handleRollupRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	// the signer bonds and operates the rollup
	operator := signer(r)
	if req.Operator != nil && *req.Operator != operator {
		s.fail(w, r, rollup.ErrNotOperator)
		return
	}

	id, err := s.engine.Register(r.Context(), rollup.RegisterParams{
		Name:             req.Name,
		BlockTime:        req.BlockTime,
		MaxTxPerBlock:    req.MaxTxPerBlock,
		DataAvailability: req.DataAvailability,
		ExecutionType:    req.ExecutionType,
		Operator:         operator,
		GenesisRoot:      req.GenesisRoot,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{"rollup_id": id})
}

func (s *Server) handleRollupGet(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.engine.GetRollup(r.Context(), rollupID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

func (s *Server) handleRollupTVL(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	tvl, err := s.engine.CalculateTVL(r.Context(), rollupID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"rollup_id": rollupID, "tvl": tvl})
}

func (s *Server) handleBalanceGet(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	user, err := addressParam(r, "user")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	if _, err := s.engine.GetRollup(r.Context(), rollupID); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.engine.GetBalance(r.Context(), rollupID, user)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, result)
}
