package escrow

import (
	"strconv"

	"github.com/holiman/uint256"

	"secureflow/native/common"
	"secureflow/native/fees"
)

// Initialize sets up the module once. The caller becomes the owner.
func (e *Engine) Initialize(caller, feeCollector [20]byte, feeBps uint32) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Initialized {
		return ErrAlreadyInitialized
	}
	if caller == ([20]byte{}) || feeCollector == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := fees.ValidateRate(feeBps); err != nil {
		return errorf(ErrInvalidAmount, "%v", err)
	}
	cfg = &AdminConfig{
		Initialized:  true,
		Owner:        caller,
		FeeCollector: feeCollector,
		FeeBps:       feeBps,
	}
	if err := e.storeConfig(cfg); err != nil {
		return err
	}
	e.emit(NewAdminEvent(EventTypeAdminInitialized, caller, map[string]string{
		"feeCollector": hexAddr(feeCollector),
		"feeBps":       strconv.FormatUint(uint64(feeBps), 10),
	}))
	return nil
}

func (e *Engine) ownerConfig(caller [20]byte) (*AdminConfig, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Initialized {
		return nil, ErrNotInitialized
	}
	if caller != cfg.Owner {
		return nil, errorf(ErrUnauthorized, "not owner")
	}
	return cfg, nil
}

// updateConfig applies mutate to the configuration on behalf of the owner and
// emits eventType with the returned attributes.
func (e *Engine) updateConfig(caller [20]byte, eventType string, mutate func(*AdminConfig) (map[string]string, error)) error {
	cfg, err := e.ownerConfig(caller)
	if err != nil {
		return err
	}
	attrs, err := mutate(cfg)
	if err != nil {
		return err
	}
	if err := e.storeConfig(cfg); err != nil {
		return err
	}
	e.emit(NewAdminEvent(eventType, caller, attrs))
	return nil
}

func (e *Engine) Pause(caller [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminPaused, func(cfg *AdminConfig) (map[string]string, error) {
		cfg.Paused = true
		return nil, nil
	})
}

func (e *Engine) Unpause(caller [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminUnpaused, func(cfg *AdminConfig) (map[string]string, error) {
		cfg.Paused = false
		return nil, nil
	})
}

// PauseJobCreation blocks new escrows while leaving existing ones operable.
func (e *Engine) PauseJobCreation(caller [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminJobsPaused, func(cfg *AdminConfig) (map[string]string, error) {
		cfg.JobCreationPaused = true
		return nil, nil
	})
}

func (e *Engine) UnpauseJobCreation(caller [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminJobsUnpaused, func(cfg *AdminConfig) (map[string]string, error) {
		cfg.JobCreationPaused = false
		return nil, nil
	})
}

func (e *Engine) WhitelistAsset(caller, asset [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminAssetWhitelisted, func(cfg *AdminConfig) (map[string]string, error) {
		if asset == ([20]byte{}) {
			return nil, ErrZeroAddress
		}
		if !containsAddress(cfg.Assets, asset) {
			cfg.Assets = append(cfg.Assets, asset)
		}
		return map[string]string{"asset": hexAddr(asset)}, nil
	})
}

func (e *Engine) BlacklistAsset(caller, asset [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminAssetBlacklisted, func(cfg *AdminConfig) (map[string]string, error) {
		cfg.Assets = removeAddress(cfg.Assets, asset)
		return map[string]string{"asset": hexAddr(asset)}, nil
	})
}

func (e *Engine) AuthorizeArbiter(caller, arbiter [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminArbiterAdded, func(cfg *AdminConfig) (map[string]string, error) {
		if arbiter == ([20]byte{}) {
			return nil, ErrZeroAddress
		}
		if !containsAddress(cfg.Arbiters, arbiter) {
			cfg.Arbiters = append(cfg.Arbiters, arbiter)
		}
		return map[string]string{"arbiter": hexAddr(arbiter)}, nil
	})
}

// RevokeArbiter stops arbiter from being named on new escrows. Escrows that
// already list it keep it.
func (e *Engine) RevokeArbiter(caller, arbiter [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminArbiterRevoked, func(cfg *AdminConfig) (map[string]string, error) {
		if arbiter == ([20]byte{}) {
			return nil, ErrZeroAddress
		}
		cfg.Arbiters = removeAddress(cfg.Arbiters, arbiter)
		return map[string]string{"arbiter": hexAddr(arbiter)}, nil
	})
}

// SetFeeBps changes the rate applied to escrows created afterwards.
func (e *Engine) SetFeeBps(caller [20]byte, bps uint32) error {
	return e.updateConfig(caller, EventTypeAdminFeeUpdated, func(cfg *AdminConfig) (map[string]string, error) {
		if err := fees.ValidateRate(bps); err != nil {
			return nil, errorf(ErrInvalidAmount, "%v", err)
		}
		cfg.FeeBps = bps
		return map[string]string{"feeBps": strconv.FormatUint(uint64(bps), 10)}, nil
	})
}

func (e *Engine) SetFeeCollector(caller, collector [20]byte) error {
	return e.updateConfig(caller, EventTypeAdminCollectorUpdated, func(cfg *AdminConfig) (map[string]string, error) {
		if collector == ([20]byte{}) {
			return nil, ErrZeroAddress
		}
		cfg.FeeCollector = collector
		return map[string]string{"feeCollector": hexAddr(collector)}, nil
	})
}

// WithdrawFees sends the accrued fees of asset to the caller, who must be the
// owner or the fee collector.
func (e *Engine) WithdrawFees(caller, asset [20]byte) (*uint256.Int, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Initialized {
		return nil, ErrNotInitialized
	}
	if caller != cfg.Owner && caller != cfg.FeeCollector {
		return nil, errorf(ErrUnauthorized, "not owner or fee collector")
	}
	amount, err := e.fees.Drain(asset)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, errorf(ErrNothingToRefund, "no fees accrued")
	}
	if err := e.push(asset, caller, amount); err != nil {
		return nil, err
	}
	e.emit(NewFeesWithdrawnEvent(asset, caller, amount))
	return amount, nil
}

// EmergencyWithdraw sends custody funds not owed to any escrow or fee pool to
// the owner.
func (e *Engine) EmergencyWithdraw(caller, asset [20]byte, amount *uint256.Int) error {
	cfg, err := e.ownerConfig(caller)
	if err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return errorf(ErrInvalidAmount, "amount must be positive")
	}
	if e.gateway == nil {
		return errNilGateway
	}
	custody, err := e.gateway.CustodyBalance(asset)
	if err != nil {
		return err
	}
	owed, err := e.owed(asset)
	if err != nil {
		return err
	}
	if !owed.Lt(custody) {
		return errorf(ErrNothingToRefund, "custody %s, owed %s", custody, owed)
	}
	available := new(uint256.Int).Sub(custody, owed)
	if available.Lt(amount) {
		return errorf(ErrInvalidAmount, "%s exceeds withdrawable %s", amount, available)
	}
	if err := e.push(asset, cfg.Owner, amount); err != nil {
		return err
	}
	e.emit(NewAdminEvent(EventTypeAdminEmergencyWithdraw, caller, map[string]string{
		"asset":  hexAddr(asset),
		"amount": amountString(amount),
	}))
	return nil
}

// owed sums everything custody must keep for asset: escrow reserve, accrued
// fees and fees held for escrows that have not started.
func (e *Engine) owed(asset [20]byte) (*uint256.Int, error) {
	reserve, err := e.reserve(asset)
	if err != nil {
		return nil, err
	}
	accrued, err := e.fees.Accrued(asset)
	if err != nil {
		return nil, err
	}
	held, err := e.fees.Unaccrued(asset)
	if err != nil {
		return nil, err
	}
	owed, err := common.Add(reserve, accrued)
	if err != nil {
		return nil, err
	}
	return common.Add(owed, held)
}
