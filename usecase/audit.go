package usecase

import (
	"context"
	"time"

	"ethpool/domain"
	"ethpool/interface/exporter"
	"ethpool/interface/repository"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// AuditInteractor reconciles the stored accounts against the pool aggregate.
type AuditInteractor struct {
	ledger repository.Ledger
	log    *logrus.Entry
}

func NewAuditInteractor(ledger repository.Ledger) *AuditInteractor {
	return &AuditInteractor{
		ledger: ledger,
		log:    logrus.StandardLogger().WithField("type", "usecase/audit"),
	}
}

// Audit checks that the principals add up to the recorded total and that
// custody covers every principal plus every pending reward. The result is
// kept as the audit memo; ErrorInconsistentLedger is returned along with it
// when a check fails.
func (interactor *AuditInteractor) Audit(ctx context.Context) (*domain.AuditMemo, error) {
	memo := &domain.AuditMemo{}

	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		state, err := tx.PoolState()
		if err != nil {
			return err
		}
		accounts, err := tx.Accounts()
		if err != nil {
			return err
		}

		for _, account := range accounts {
			pending, err := pendingReward(account, &state.AccPerShare)
			if err != nil {
				return err
			}
			if _, overflow := memo.SumPrincipal.AddOverflow(&memo.SumPrincipal, &account.Principal); overflow {
				return domain.ErrorOverflow
			}
			if _, overflow := memo.PendingRewards.AddOverflow(&memo.PendingRewards, pending); overflow {
				return domain.ErrorOverflow
			}
		}

		memo.Accounts = len(accounts)
		memo.TotalPrincipal.Set(&state.TotalPrincipal)
		memo.Custody.Set(&state.Custody)
		return nil
	})
	if err != nil {
		exporter.IncErrorCount()
		interactor.log.WithError(err).Error("🔴 scanning ledger")
		return nil, err
	}

	owed, overflow := new(uint256.Int).AddOverflow(&memo.SumPrincipal, &memo.PendingRewards)
	memo.Consistent = !overflow && memo.SumPrincipal.Eq(&memo.TotalPrincipal) && !owed.Gt(&memo.Custody)
	if memo.Consistent {
		memo.Dust.Sub(&memo.Custody, owed)
	}
	memo.Time = time.Now()

	err = interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		return tx.PutMemo(domain.AuditMemoKey, memo)
	})
	if err != nil {
		exporter.IncErrorCount()
		interactor.log.WithError(err).Error("🔴 storing audit memo")
		return nil, err
	}

	exporter.SetAmountGauge(exporter.METRIC_TOTAL_PRINCIPAL, &memo.TotalPrincipal)
	exporter.SetAmountGauge(exporter.METRIC_CUSTODY, &memo.Custody)
	exporter.SetAmountGauge(exporter.METRIC_DUST, &memo.Dust)
	exporter.SetGauge(exporter.METRIC_ACCOUNTS, float64(memo.Accounts))

	entry := interactor.log.WithFields(logrus.Fields{
		"accounts":        memo.Accounts,
		"total_principal": memo.TotalPrincipal.Dec(),
		"sum_principal":   memo.SumPrincipal.Dec(),
		"pending":         memo.PendingRewards.Dec(),
		"custody":         memo.Custody.Dec(),
	})
	if !memo.Consistent {
		exporter.IncErrorCount()
		entry.Error("⛔️ ledger audit failed")
		return memo, domain.ErrorInconsistentLedger
	}

	entry.WithField("dust", memo.Dust.Dec()).Info("ledger audit passed")
	return memo, nil
}

// LastAudit returns the latest stored audit, or nil if none ran yet.
func (interactor *AuditInteractor) LastAudit(ctx context.Context) (*domain.AuditMemo, error) {
	var audit *domain.AuditMemo
	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		memo, err := tx.Memo(domain.AuditMemoKey)
		if err != nil || memo == nil {
			return err
		}
		audit = &domain.AuditMemo{}
		return audit.FromJson(memo.Memo)
	})
	return audit, err
}
