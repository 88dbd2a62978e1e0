package model

import (
	"encoding/json"
)

// Deposit is a unified bridge deposit event in canonical form.
type Deposit struct {
	Timestamp           uint64 `json:"timestamp"`
	TxHash              string `json:"tx_hash"`
	OriginChainID       uint64 `json:"origin_chain_id"`
	DestinationChainID  uint64 `json:"destination_chain_id"`
	DepositID           uint64 `json:"deposit_id"`
	Depositor           string `json:"depositor"`
	Recipient           string `json:"recipient"`
	InputToken          string `json:"input_token"`
	OutputToken         string `json:"output_token"`
	InputAmountRaw      string `json:"input_amount_raw"`
	OutputAmountRaw     string `json:"output_amount_raw"`
	QuoteTimestamp      uint64 `json:"quote_timestamp,omitempty"`
	FillDeadline        uint64 `json:"fill_deadline,omitempty"`
	ExclusivityDeadline uint64 `json:"exclusivity_deadline,omitempty"`
}

// Key returns the transfer identity of the deposit.
func (d Deposit) Key() TransferKey {
	return TransferKey{
		DepositID:          d.DepositID,
		OriginChainID:      d.OriginChainID,
		DestinationChainID: d.DestinationChainID,
	}
}

// MarshalJSON ensures Deposit is encoded with stable field names.
func (d Deposit) MarshalJSON() ([]byte, error) {
	type Alias Deposit
	return json.Marshal(Alias(d))
}

// UnmarshalJSON decodes a Deposit from JSON.
func (d *Deposit) UnmarshalJSON(data []byte) error {
	type Alias Deposit
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Deposit(a)
	return nil
}

// TransferKey identifies a transfer across chains. Deposit ids are assigned
// independently per origin chain, so the id alone is not globally unique.
type TransferKey struct {
	DepositID          uint64 `json:"deposit_id"`
	OriginChainID      uint64 `json:"origin_chain_id"`
	DestinationChainID uint64 `json:"destination_chain_id"`
}
