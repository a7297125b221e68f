package domain

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	DeploymentMemoKey = "deployment"
	AuditMemoKey      = "audit"
)

type Memorable interface {
	ToJson() string
	FromJson(jstr string) error
}

type Memo struct {
	Key  string `json:"key"`
	Memo string `json:"memo"`
}

// DeploymentMemo marks an initialized pool.
type DeploymentMemo struct {
	Deployer   common.Address `json:"deployer"`
	DeployTime time.Time      `json:"deploy_time"`
}

func (obj *DeploymentMemo) ToJson() string {
	jstr, err := json.Marshal(obj)
	if err != nil {
		return err.Error()
	}
	return string(jstr)
}

func (obj *DeploymentMemo) FromJson(jstr string) error {
	err := json.Unmarshal([]byte(jstr), obj)
	return err
}

// AuditMemo is the outcome of the latest ledger audit.
type AuditMemo struct {
	Time           time.Time   `json:"time"`
	Accounts       int         `json:"accounts"`
	TotalPrincipal uint256.Int `json:"total_principal"`
	SumPrincipal   uint256.Int `json:"sum_principal"`
	PendingRewards uint256.Int `json:"pending_rewards"`
	Custody        uint256.Int `json:"custody"`
	Dust           uint256.Int `json:"dust"`
	Consistent     bool        `json:"consistent"`
}

func (obj *AuditMemo) ToJson() string {
	jstr, err := json.Marshal(obj)
	if err != nil {
		return err.Error()
	}
	return string(jstr)
}

func (obj *AuditMemo) FromJson(jstr string) error {
	err := json.Unmarshal([]byte(jstr), obj)
	return err
}
