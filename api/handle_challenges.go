package api

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/lightlink-network/ll-rollup-api/verifier"
)

type verdictRequest struct {
	ProofHash  *common.Hash   `json:"proof_hash,omitempty"`
	FraudProof hexutil.Bytes  `json:"fraud_proof,omitempty"`
	Verdict    rollup.Verdict `json:"verdict"`
}

func (s *Server) handleChallengesPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.engine.PendingChallenges(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if pending == nil {
		pending = []*rollup.Challenge{}
	}

	JSON(w, http.StatusOK, pending)
}

func (s *Server) handleChallengeGet(w http.ResponseWriter, r *http.Request) {
	challengeID, err := uintParam(r, "challengeID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	c, err := s.engine.GetChallenge(r.Context(), challengeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, c)
}

func (s *Server) handleChallengeResolve(w http.ResponseWriter, r *http.Request) {
	challengeID, err := uintParam(r, "challengeID")
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	status, err := s.engine.ResolveChallenge(r.Context(), challengeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"challenge_id": challengeID, "status": status})
}

// handleVerdictPost records a prover's verdict for a fraud proof.
func (s *Server) handleVerdictPost(w http.ResponseWriter, r *http.Request) {
	var req verdictRequest
	if err := decode(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	var proofHash common.Hash
	switch {
	case req.ProofHash != nil:
		proofHash = *req.ProofHash
	case len(req.FraudProof) > 0:
		proofHash = verifier.ProofHash(req.FraudProof)
	default:
		ERROR(w, http.StatusBadRequest, errors.New("proof_hash or fraud_proof is required"))
		return
	}

	if err := s.oracle.Record(proofHash, req.Verdict); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"proof_hash": proofHash, "verdict": req.Verdict})
}
