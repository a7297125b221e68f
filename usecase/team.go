package usecase

import (
	"context"
	"time"

	"ethpool/domain"
	"ethpool/interface/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// TeamInteractor maintains the set of members allowed to inject rewards.
type TeamInteractor struct {
	ledger repository.Ledger
	log    *logrus.Entry
}

func NewTeamInteractor(ledger repository.Ledger) *TeamInteractor {
	return &TeamInteractor{
		ledger: ledger,
		log:    logrus.StandardLogger().WithField("type", "usecase/team"),
	}
}

// Seed initializes the pool with the deploying principal as the first member.
func (interactor *TeamInteractor) Seed(ctx context.Context, deployer common.Address) error {
	err := interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		memo, err := tx.Memo(domain.DeploymentMemoKey)
		if err != nil {
			return err
		}
		if memo != nil {
			return domain.ErrorAlreadyInitialized
		}

		state, err := tx.PoolState()
		if err != nil {
			return err
		}
		if err := tx.PutPoolState(state); err != nil {
			return err
		}
		if err := tx.PutTeamMember(deployer); err != nil {
			return err
		}
		return tx.PutMemo(domain.DeploymentMemoKey, &domain.DeploymentMemo{
			Deployer:   deployer,
			DeployTime: time.Now(),
		})
	})
	if err != nil {
		interactor.log.WithError(err).Errorf("🔴 seeding team with deployer %v", deployer.Hex())
		return err
	}

	interactor.log.Infof("pool initialized [deployer: %v]", deployer.Hex())
	return nil
}

func (interactor *TeamInteractor) Deployment(ctx context.Context) (*domain.DeploymentMemo, error) {
	var deployment *domain.DeploymentMemo
	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		memo, err := tx.Memo(domain.DeploymentMemoKey)
		if err != nil || memo == nil {
			return err
		}
		deployment = &domain.DeploymentMemo{}
		return deployment.FromJson(memo.Memo)
	})
	if err != nil {
		return nil, err
	}
	if deployment == nil {
		return nil, domain.ErrorNotInitialized
	}
	return deployment, nil
}

func (interactor *TeamInteractor) IsMember(ctx context.Context, id common.Address) (bool, error) {
	var member bool
	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		member, err = tx.IsTeamMember(id)
		return err
	})
	return member, err
}

func (interactor *TeamInteractor) Members(ctx context.Context) ([]common.Address, error) {
	var members []common.Address
	err := interactor.ledger.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		members, err = tx.TeamMembers()
		return err
	})
	return members, err
}

// AddMember is idempotent.
func (interactor *TeamInteractor) AddMember(ctx context.Context, caller common.Address, id common.Address) error {
	err := interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		if err := interactor.authorize(tx, caller); err != nil {
			return err
		}
		return tx.PutTeamMember(id)
	})
	if err != nil {
		interactor.log.WithError(err).Warnf("🟡 adding team member %v [caller: %v]", id.Hex(), caller.Hex())
		return err
	}

	interactor.log.Infof("team member added [member: %v, caller: %v]", id.Hex(), caller.Hex())
	return nil
}

// RemoveMember is a no-op for non-members. Removing the last member is
// allowed and leaves nobody able to inject rewards.
func (interactor *TeamInteractor) RemoveMember(ctx context.Context, caller common.Address, id common.Address) error {
	err := interactor.ledger.Update(ctx, func(tx repository.LedgerTx) error {
		if err := interactor.authorize(tx, caller); err != nil {
			return err
		}
		return tx.DeleteTeamMember(id)
	})
	if err != nil {
		interactor.log.WithError(err).Warnf("🟡 removing team member %v [caller: %v]", id.Hex(), caller.Hex())
		return err
	}

	interactor.log.Infof("team member removed [member: %v, caller: %v]", id.Hex(), caller.Hex())
	return nil
}

func (interactor *TeamInteractor) authorize(tx repository.LedgerTx, caller common.Address) error {
	member, err := tx.IsTeamMember(caller)
	if err != nil {
		return err
	}
	if !member {
		return domain.ErrorUnauthorized
	}
	return nil
}
