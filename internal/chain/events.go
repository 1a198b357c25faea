package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event is a decoded log.
type Event struct {
	Name        string
	Address     common.Address
	Fields      map[string]any
	TxHash      common.Hash
	BlockNumber uint64
}

// ParseLog decodes lg against a. Indexed fields come from topics, the rest
// from data.
func ParseLog(a *abi.ABI, lg types.Log) (Event, error) {
	if len(lg.Topics) == 0 {
		return Event{}, fmt.Errorf("chain: log has no topics")
	}
	ev, err := a.EventByID(lg.Topics[0])
	if err != nil {
		return Event{}, fmt.Errorf("chain: unknown event %s: %w", lg.Topics[0].Hex(), err)
	}

	fields := make(map[string]any, len(ev.Inputs))
	if len(lg.Data) > 0 {
		if err := a.UnpackIntoMap(fields, ev.Name, lg.Data); err != nil {
			return Event{}, fmt.Errorf("chain: unpack %s: %w", ev.Name, err)
		}
	}

	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
			return Event{}, fmt.Errorf("chain: topics %s: %w", ev.Name, err)
		}
	}

	return Event{
		Name:        ev.Name,
		Address:     lg.Address,
		Fields:      fields,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
	}, nil
}

// FindEvent returns the first log in logs that decodes as the named event.
func FindEvent(a *abi.ABI, name string, logs []*types.Log) (Event, bool) {
	ev, ok := a.Events[name]
	if !ok {
		return Event{}, false
	}
	for _, lg := range logs {
		if lg == nil || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}
		parsed, err := ParseLog(a, *lg)
		if err != nil {
			continue
		}
		return parsed, true
	}
	return Event{}, false
}

// EventTopic returns the topic0 hash of the named event.
func EventTopic(a *abi.ABI, name string) common.Hash {
	return a.Events[name].ID
}

// EncodeLog builds a log for the named event. indexed values are converted
// to topics in declaration order; the rest are packed into data. It is the
// inverse of ParseLog and is used by fakes and tests.
func EncodeLog(a *abi.ABI, name string, contract common.Address, values map[string]any) (types.Log, error) {
	ev, ok := a.Events[name]
	if !ok {
		return types.Log{}, fmt.Errorf("chain: unknown event %s", name)
	}

	topics := []common.Hash{ev.ID}
	var plain []any
	for _, in := range ev.Inputs {
		v, ok := values[in.Name]
		if !ok {
			return types.Log{}, fmt.Errorf("chain: event %s: missing %s", name, in.Name)
		}
		if !in.Indexed {
			plain = append(plain, v)
			continue
		}
		t, err := abi.MakeTopics([]any{v})
		if err != nil {
			return types.Log{}, fmt.Errorf("chain: event %s: topic %s: %w", name, in.Name, err)
		}
		topics = append(topics, t[0][0])
	}

	data, err := ev.Inputs.NonIndexed().Pack(plain...)
	if err != nil {
		return types.Log{}, fmt.Errorf("chain: event %s: pack: %w", name, err)
	}
	return types.Log{Address: contract, Topics: topics, Data: data}, nil
}
