package token

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/rlp"
)

// Event names emitted by the registry.
const (
	EventTransferSingle = "TransferSingle"
	EventTransferBatch  = "TransferBatch"
	EventApprovalForAll = "ApprovalForAll"
	EventURI            = "URI"
)

// Event is a single registry event. Params hold only scalar and byte-string
// values rendered as strings: addresses verbatim, integers in decimal, bools
// as "true"/"false", bytes as 0x-prefixed hex. List-typed values (batch ids
// and amounts) are flattened with the rlp codec before emission.
type Event struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

// EventSink receives events as state transitions commit.
type EventSink interface {
	Emit(e Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(e Event)

// Emit calls f(e).
func (f EventSinkFunc) Emit(e Event) { f(e) }

func transferSingleEvent(operator, from, to domain.Address, id domain.TokenID, value uint64) Event {
	return Event{
		Name: EventTransferSingle,
		Params: map[string]string{
			"_operator": string(operator),
			"_from":     string(from),
			"_to":       string(to),
			"_id":       strconv.FormatUint(uint64(id), 10),
			"_value":    strconv.FormatUint(value, 10),
		},
	}
}

func transferBatchEvent(operator, from, to domain.Address, ids []domain.TokenID, values []uint64) Event {
	rawIDs := make([]uint64, len(ids))
	for i, id := range ids {
		rawIDs[i] = uint64(id)
	}
	return Event{
		Name: EventTransferBatch,
		Params: map[string]string{
			"_operator": string(operator),
			"_from":     string(from),
			"_to":       string(to),
			"_ids":      "0x" + hex.EncodeToString(rlp.EncodeUintList(rawIDs)),
			"_values":   "0x" + hex.EncodeToString(rlp.EncodeUintList(values)),
		},
	}
}

func approvalForAllEvent(owner, operator domain.Address, approved bool) Event {
	return Event{
		Name: EventApprovalForAll,
		Params: map[string]string{
			"_owner":    string(owner),
			"_operator": string(operator),
			"_approved": strconv.FormatBool(approved),
		},
	}
}

func uriEvent(id domain.TokenID, uri string) Event {
	return Event{
		Name: EventURI,
		Params: map[string]string{
			"_id":    strconv.FormatUint(uint64(id), 10),
			"_value": uri,
		},
	}
}

// DecodeEventList decodes a flattened list param ("_ids" or "_values") of a
// TransferBatch event back into integers.
func DecodeEventList(param string) ([]uint64, error) {
	if len(param) < 2 || param[:2] != "0x" {
		return nil, fmt.Errorf("token: list param missing 0x prefix")
	}
	raw, err := hex.DecodeString(param[2:])
	if err != nil {
		return nil, fmt.Errorf("token: decode list param: %w", err)
	}
	return rlp.DecodeUintList(raw)
}
