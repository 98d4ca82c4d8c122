package model

import "time"

// PreCheckResult is the pre-check shape returned across the request boundary.
type PreCheckResult struct {
	PortExists        bool              `json:"port_exists"`
	AdminStatus       string            `json:"admin_status"`
	OperStatus        string            `json:"oper_status"`
	CurrentConfig     map[string]string `json:"current_config"`
	MACAddresses      []string          `json:"mac_addresses"`
	Recommendations   []string          `json:"recommendations"`
	IsSafeToConfigure bool              `json:"is_safe_to_configure"`
}

// NewPreCheckResult flattens a verdict into the boundary shape. Policy
// reasons come first, advisory recommendations after.
func NewPreCheckResult(v PreCheckVerdict) PreCheckResult {
	recs := make([]string, 0, len(v.Reasons)+len(v.Recommendations))
	recs = append(recs, v.Reasons...)
	recs = append(recs, v.Recommendations...)

	macs := v.Observed.MACAddresses
	if macs == nil {
		macs = []string{}
	}

	return PreCheckResult{
		PortExists:        v.Observed.Exists,
		AdminStatus:       v.Observed.AdminStatus,
		OperStatus:        v.Observed.OperStatus,
		CurrentConfig:     v.Observed.CurrentConfig(),
		MACAddresses:      macs,
		Recommendations:   recs,
		IsSafeToConfigure: v.Safe,
	}
}

// ChangeResult is the outcome of one change or rollback transaction.
type ChangeResult struct {
	Success        bool      `json:"success"`
	HistoryEntryID string    `json:"history_entry_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	AppliedConfig  string    `json:"applied_config_text"`
	Message        string    `json:"message"`

	TxnID   string           `json:"txn_id"`
	State   string           `json:"state"`
	Applied bool             `json:"applied"`
	NoOp    bool             `json:"no_op,omitempty"`
	Verdict *PreCheckVerdict `json:"pre_check,omitempty"`
}

// HistorySummary is one row of a history query.
type HistorySummary struct {
	ID         string    `json:"id"`
	Device     string    `json:"device"`
	Interface  string    `json:"interface"`
	Mode       Mode      `json:"mode"`
	VLANs      string    `json:"vlans"`
	Applied    bool      `json:"applied"`
	NoOp       bool      `json:"no_op,omitempty"`
	RollbackOf string    `json:"rollback_of,omitempty"`
	User       string    `json:"user,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
}
