package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signed requests carry a 65 byte [R || S || V] secp256k1 signature over the
// EIP-191 hash of "METHOD\nURI\nTIMESTAMP\nBODY". The recovered address is
// the caller.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"

	// SignatureWindow bounds the skew between X-Timestamp and server time.
	SignatureWindow = 5 * time.Minute

	maxSignedBody  = 1 << 20
	seenSignatures = 1 << 16
)

var (
	errMissingSignature  = errors.New("X-Signature and X-Timestamp headers are required")
	errInvalidSignature  = errors.New("invalid request signature")
	errStaleSignature    = errors.New("request timestamp is outside the accepted window")
	errReplayedSignature = errors.New("signed request was already used")
	errNotProver         = errors.New("signer is not an authorized prover")
)

type signerKey struct{}

func signingHash(method, uri, timestamp string, body []byte) []byte {
	msg := make([]byte, 0, len(method)+len(uri)+len(timestamp)+len(body)+3)
	msg = append(msg, method+"\n"+uri+"\n"+timestamp+"\n"...)
	msg = append(msg, body...)
	return accounts.TextHash(msg)
}

// SignRequest signs req with key at now, setting the X-Signature and
// X-Timestamp headers. The body is read and restored.
func SignRequest(req *http.Request, key *ecdsa.PrivateKey, now time.Time) error {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body.Close()
		body = b
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	timestamp := strconv.FormatInt(now.Unix(), 10)
	sig, err := crypto.Sign(signingHash(req.Method, req.URL.RequestURI(), timestamp, body), key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, hexutil.Encode(sig))
	return nil
}

func recoverSigner(hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errInvalidSignature
	}
	sig = bytes.Clone(sig)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, errInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// authenticate rejects requests without a fresh, unused signature and puts
// the recovered signer in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawSig, rawTimestamp := r.Header.Get(HeaderSignature), r.Header.Get(HeaderTimestamp)
		if rawSig == "" || rawTimestamp == "" {
			ERROR(w, http.StatusUnauthorized, errMissingSignature)
			return
		}
		sig, err := hexutil.Decode(rawSig)
		if err != nil {
			ERROR(w, http.StatusUnauthorized, errInvalidSignature)
			return
		}
		unix, err := strconv.ParseInt(rawTimestamp, 10, 64)
		if err != nil {
			ERROR(w, http.StatusUnauthorized, errStaleSignature)
			return
		}
		if skew := s.now().Sub(time.Unix(unix, 0)); skew > SignatureWindow || skew < -SignatureWindow {
			ERROR(w, http.StatusUnauthorized, errStaleSignature)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignedBody))
		if err != nil {
			ERROR(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		hash := signingHash(r.Method, r.URL.RequestURI(), rawTimestamp, body)
		signer, err := recoverSigner(hash, sig)
		if err != nil {
			ERROR(w, http.StatusUnauthorized, err)
			return
		}

		// keyed by message and signer so re-encoded signatures count as replays
		if seen, _ := s.seen.ContainsOrAdd(crypto.Keccak256Hash(hash, signer.Bytes()), struct{}{}); seen {
			ERROR(w, http.StatusUnauthorized, errReplayedSignature)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), signerKey{}, signer)))
	})
}

// requireProver restricts a signed route to the configured provers. Without
// provers any signer is accepted.
func (s *Server) requireProver(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.provers) > 0 {
			if _, ok := s.provers[signer(r)]; !ok {
				ERROR(w, http.StatusForbidden, errNotProver)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// signer is the address recovered by authenticate.
func signer(r *http.Request) common.Address {
	addr, _ := r.Context().Value(signerKey{}).(common.Address)
	return addr
}
