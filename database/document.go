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


package database

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/blinklabs-io/agora/database/types"
	"github.com/fxamacker/cbor/v2"
)

var ErrProposalDocumentNotFound = errors.New("proposal document not found")

// ProposalDocument is the human-readable part of a proposal, kept in the blob store
type ProposalDocument struct {
	_     struct{} `cbor:",toarray"`
	Title string
	Pitch string
}

func documentCacheKey(registry string, proposalID uint64) string {
	return registry + ":" + strconv.FormatUint(proposalID, 10)
}

// SetProposalDocument stores the document for a proposal
func (d *Database) SetProposalDocument(
	registry string,
	proposalID uint64,
	doc *ProposalDocument,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Release()
	}
	data, err := cbor.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode proposal document: %w", err)
	}
	if err := d.Blob().Set(
		txn.Blob(),
		types.ProposalDocumentKey(registry, proposalID),
		data,
	); err != nil {
		return err
	}
	// The write is not visible until commit, so never serve it from cache early
	d.documentCache.Remove(documentCacheKey(registry, proposalID))
	if owned {
		return txn.Commit()
	}
	return nil
}

// GetProposalDocument returns the document for a proposal
func (d *Database) GetProposalDocument(
	registry string,
	proposalID uint64,
	txn *Txn,
) (*ProposalDocument, error) {
	cacheKey := documentCacheKey(registry, proposalID)
	if doc, ok := d.documentCache.Get(cacheKey); ok {
		return doc, nil
	}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	data, err := d.Blob().Get(
		txn.Blob(),
		types.ProposalDocumentKey(registry, proposalID),
	)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, ErrProposalDocumentNotFound
		}
		return nil, err
	}
	doc := new(ProposalDocument)
	if err := cbor.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode proposal document: %w", err)
	}
	// Only committed documents are cached, and documents never change
	if !txn.readWrite {
		d.documentCache.Add(cacheKey, doc)
	}
	return doc, nil
}
