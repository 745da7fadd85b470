package domain

import "time"

// MintStep names the phase of a mint operation. Failures report the step
// they happened in.
type MintStep string

const (
	StepPrecondition MintStep = "Precondition"
	StepBuild        MintStep = "Build"
	StepUpload       MintStep = "Upload"
	StepRecord       MintStep = "Record"
	StepSubmit       MintStep = "Submit"
	StepConfirm      MintStep = "Confirm"
)

// MintState is a node of the mint state machine.
type MintState string

const (
	StateIdle                 MintState = "Idle"
	StateImageReady           MintState = "ImageReady"
	StateUploaded             MintState = "Uploaded"
	StateRecorded             MintState = "Recorded"
	StateSubmitted            MintState = "Submitted"
	StateConfirmed            MintState = "Confirmed"
	StateFailed               MintState = "Failed"
	StateCompensationComplete MintState = "CompensationComplete"
)

// Terminal reports whether no further transition can leave s.
func (s MintState) Terminal() bool {
	return s == StateConfirmed || s == StateCompensationComplete
}

// TxStatus is the lifecycle of a submitted mint transaction.
type TxStatus string

const (
	TxPending    TxStatus = "pending"
	TxConfirming TxStatus = "confirming"
	TxConfirmed  TxStatus = "confirmed"
	TxFailed     TxStatus = "failed"
	TxRejected   TxStatus = "rejected"
)

func (s TxStatus) Terminal() bool {
	return s == TxConfirmed || s == TxFailed || s == TxRejected
}

// MintTransaction tracks a submitted transaction.
type MintTransaction struct {
	Hash   string   `json:"hash"`
	Status TxStatus `json:"status"`
}

// TxUpdate is one observation from a transaction watch. Err is set for the
// failed status.
type TxUpdate struct {
	Hash   string
	Status TxStatus
	Block  uint64
	Err    error
}

// MintFlowResult is what a caller gets back from a mint attempt.
type MintFlowResult struct {
	Success     bool                  `json:"success"`
	OperationID string                `json:"operationId"`
	CID         string                `json:"cid,omitempty"`
	URL         string                `json:"url,omitempty"`
	CardID      int64                 `json:"cardId,omitempty"`
	TxHash      string                `json:"txHash,omitempty"`
	FailedStep  MintStep              `json:"failedStep,omitempty"`
	Error       error                 `json:"-"`
	Message     string                `json:"error,omitempty"`
	Warnings    []CompensationWarning `json:"-"`
}

// MintEvent is published on every state transition of a mint operation.
type MintEvent struct {
	OperationID string    `json:"operationId"`
	Address     string    `json:"address"`
	State       MintState `json:"state"`
	Step        MintStep  `json:"step,omitempty"`
	CID         string    `json:"cid,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	TxStatus    TxStatus  `json:"txStatus,omitempty"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}
