package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/types"
)

type submitBatchRequest struct {
	StateRoot common.Hash `json:"state_root"`
	TxCount   uint64      `json:"tx_count"`
	DataHash  common.Hash `json:"data_hash"`
}

type challengeRequest struct {
	FraudProof hexutil.Bytes `json:"fraud_proof"`
}

// batchResponse is a batch with its lifecycle state at the current height.
type batchResponse struct {
	*rollup.Batch
	State types.BatchState `json:"state"`
}

func (s *Server) handleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	var req submitBatchRequest
	if err := decode(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	batchID, err := s.engine.SubmitBatch(r.Context(), signer(r), rollupID, req.StateRoot, req.TxCount, req.DataHash)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{"rollup_id": rollupID, "batch_id": batchID})
}

func (s *Server) handleBatchesGet(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	page, pageSize := pagination(r)

	result, err := s.engine.ListBatches(r.Context(), rollupID, page, pageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	height, err := s.engine.Height(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	items := make([]batchResponse, len(result.Items))
	for i := range result.Items {
		b := &result.Items[i]
		items[i] = batchResponse{Batch: b, State: b.State(height)}
	}

	JSON(w, http.StatusOK, rollup.Page[batchResponse]{
		Items:      items,
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
	})
}

func (s *Server) handleBatchGet(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	batchID, err := uintParam(r, "batchID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	b, err := s.engine.GetBatch(r.Context(), rollupID, batchID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	height, err := s.engine.Height(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, batchResponse{Batch: b, State: b.State(height)})
}

func (s *Server) handleBatchFinalize(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	batchID, err := uintParam(r, "batchID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.FinalizeBatch(r.Context(), rollupID, batchID); err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"rollup_id": rollupID, "batch_id": batchID, "finalized": true})
}

func (s *Server) handleBatchChallenge(w http.ResponseWriter, r *http.Request) {
	rollupID, err := uintParam(r, "rollupID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	batchID, err := uintParam(r, "batchID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	var req challengeRequest
	if err := decode(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	challengeID, err := s.engine.ChallengeBatch(r.Context(), signer(r), rollupID, batchID, req.FraudProof)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{"challenge_id": challengeID})
}
