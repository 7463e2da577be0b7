// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/agora/internal/version"
	"github.com/blinklabs-io/agora/ledger"
)

// SignerHeader names the account signing a mutating request
const SignerHeader = "X-Agora-Account"

const maxRequestBody = 1 << 20

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeFailure reports err with the status its kind maps to. Internal
// errors are logged and not echoed to the client.
func (s *Server) writeFailure(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		message = "internal error"
	} else {
		s.logger.Debug(
			"request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeError(w, status, http.StatusText(status), message)
}

func readJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxRequestBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrInvalidRequest)
		}
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func signer(r *http.Request) (ledger.Address, error) {
	name := r.Header.Get(SignerHeader)
	if name == "" {
		return "", ErrMissingSigner
	}
	return ledger.AccountAddress(name), nil
}

func proposalID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"%w: proposal id %q",
			ErrInvalidRequest,
			r.PathValue("id"),
		)
	}
	return id, nil
}

// handleRoot handles GET / and returns API metadata.
func (s *Server) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "agora",
		Version: version.GetVersionString(),
	})
}

func (s *Server) handleHealth(
	w http.ResponseWriter,
	r *http.Request,
) {
	if _, err := s.node.RegistryInfo(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (s *Server) handleEpoch(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, EpochResponse{
		Epoch: s.node.CurrentEpoch(),
	})
}

// handleAdvanceEpoch handles POST /api/v0/epoch/advance. An empty
// body advances one epoch.
func (s *Server) handleAdvanceEpoch(
	w http.ResponseWriter,
	r *http.Request,
) {
	req := AdvanceEpochRequest{Epochs: 1}
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			s.writeFailure(w, r, err)
			return
		}
	}
	epoch, err := s.node.AdvanceEpoch(r.Context(), req.Epochs)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EpochResponse{Epoch: epoch})
}

func (s *Server) handleRegistry(
	w http.ResponseWriter,
	r *http.Request,
) {
	info, err := s.node.RegistryInfo(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registryResponse(info))
}

// handleListProposals handles GET /api/v0/proposals with the
// count, page and order query parameters.
func (s *Server) handleListProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePageParams(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	proposals, err := s.node.Proposals(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	page := Paginate(w, proposals, params)
	ret := make([]ProposalResponse, 0, len(page))
	for _, p := range page {
		ret = append(ret, proposalResponse(p))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleCreateProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := signer(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	var req CreateProposalRequest
	if err := readJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	args, err := req.args()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	id, err := s.node.CreateProposal(r.Context(), account, args)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateProposalResponse{ID: id})
}

func (s *Server) handleGetProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := proposalID(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	p, err := s.node.Proposal(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p))
}

func (s *Server) handleProposalResult(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := proposalID(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	result, err := s.node.ProposalResult(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) handleCastVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := signer(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	id, err := proposalID(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	var req CastVoteRequest
	if err := readJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	receiptID, err := s.node.CastVote(
		r.Context(),
		account,
		id,
		req.Option,
		amount,
	)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CastVoteResponse{ReceiptID: receiptID})
}

func (s *Server) handleResolve(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := signer(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	id, err := proposalID(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	result, err := s.node.Resolve(r.Context(), account, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) handleExecute(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := signer(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	id, err := proposalID(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	var req ExecuteRequest
	if err := readJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	relayAddr, err := parseAddress(req.Relay, "relay")
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	result, err := s.node.ResolveExecutive(
		r.Context(),
		account,
		id,
		relayAddr,
		req.Followup,
	)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) handleRedeem(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := signer(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	receiptID := r.PathValue("id")
	amount, err := s.node.Redeem(r.Context(), account, receiptID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RedeemResponse{
		ReceiptID: receiptID,
		Amount:    amount.String(),
	})
}

func (s *Server) handleBalance(
	w http.ResponseWriter,
	r *http.Request,
) {
	account := ledger.AccountAddress(r.PathValue("address"))
	resource, err := parseAddress(r.PathValue("resource"), "resource")
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	amount, err := s.node.Balance(r.Context(), account, resource)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account:  account.String(),
		Resource: resource.String(),
		Amount:   amount.String(),
	})
}

func (s *Server) handleCounter(
	w http.ResponseWriter,
	r *http.Request,
) {
	count, err := s.node.CounterValue(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CounterResponse{Count: count})
}
