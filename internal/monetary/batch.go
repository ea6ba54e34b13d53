package monetary

import (
	"errors"
	"fmt"

	"github.com/macrosim/fincore/internal/account"
	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/pkg/money"
)

// ErrBatchAborted means pre-validation found at least one command that
// could not succeed; no command of the batch was executed.
var ErrBatchAborted = errors.New("monetary: command batch aborted")

// Op is a batch command operation.
type Op string

const (
	OpTransfer Op = "transfer"
	OpMint     Op = "mint"
	OpBurn     Op = "burn"
)

// Command is one immutable instruction in a batch. Commands are built once
// by policy code and carried unchanged until execution.
type Command struct {
	Op       Op
	SourceID string
	DestID   string
	Amount   int64
	Memo     string
	Currency money.Currency
}

// NewTransferCommand builds a transfer command in the default currency.
func NewTransferCommand(sourceID, destID string, amount int64, memo string) Command {
	return Command{Op: OpTransfer, SourceID: sourceID, DestID: destID,
		Amount: amount, Memo: memo, Currency: money.DefaultCurrency}
}

// NewMintCommand builds a mint command: SourceID names the monetary
// authority, DestID the credited account.
func NewMintCommand(authorityID, destID string, amount int64, memo string) Command {
	return Command{Op: OpMint, SourceID: authorityID, DestID: destID,
		Amount: amount, Memo: memo, Currency: money.DefaultCurrency}
}

// NewBurnCommand builds a burn command: DestID names the monetary
// authority sink.
func NewBurnCommand(sourceID, sinkID string, amount int64, memo string) Command {
	return Command{Op: OpBurn, SourceID: sourceID, DestID: sinkID,
		Amount: amount, Memo: memo, Currency: money.DefaultCurrency}
}

// Settler is the slice of the settlement engine the batch executor needs.
type Settler interface {
	Transfer(debtor, creditor account.Account, amount int64, memo string, tick int64, cur money.Currency) (*ledger.Transaction, error)
	CreateAndTransfer(authority, dest account.Account, amount int64, memo string, tick int64) (*ledger.Transaction, error)
	TransferAndDestroy(source, sink account.Account, amount int64, memo string, tick int64) (*ledger.Transaction, error)
}

// ExecuteBatch validates every command against projected balances, then
// executes all of them in order. Validation failure aborts the whole batch
// before any command runs, so a batch either lands in full or not at all.
func (l *Ledger) ExecuteBatch(settler Settler, cmds []Command, tick int64) ([]ledger.Transaction, error) {
	if err := l.validateBatch(cmds); err != nil {
		l.log.Warn().Err(err).Int("commands", len(cmds)).Int64("tick", tick).
			Msg("command batch aborted")
		return nil, err
	}

	txs := make([]ledger.Transaction, 0, len(cmds))
	for i, cmd := range cmds {
		source, _ := l.roster.Lookup(cmd.SourceID)
		dest, _ := l.roster.Lookup(cmd.DestID)

		var (
			tx  *ledger.Transaction
			err error
		)
		switch cmd.Op {
		case OpTransfer:
			tx, err = settler.Transfer(source, dest, cmd.Amount, cmd.Memo, tick, cmd.Currency)
		case OpMint:
			tx, err = settler.CreateAndTransfer(source, dest, cmd.Amount, cmd.Memo, tick)
		case OpBurn:
			tx, err = settler.TransferAndDestroy(source, dest, cmd.Amount, cmd.Memo, tick)
		}
		if err != nil {
			// Pre-validation passed, so a runtime failure here is a bug in
			// the projection logic. Surface it; prior commands stand.
			l.log.Error().Err(err).Int("command_index", i).Str("op", string(cmd.Op)).
				Int64("tick", tick).Msg("batch command failed after validation")
			return txs, fmt.Errorf("command %d (%s): %w", i, cmd.Op, err)
		}
		txs = append(txs, *tx)
	}
	l.log.Info().Int("commands", len(cmds)).Int64("tick", tick).Msg("command batch executed")
	return txs, nil
}

// validateBatch checks every command against balances as they would stand
// after the preceding commands of the same batch.
func (l *Ledger) validateBatch(cmds []Command) error {
	projected := make(map[string]map[money.Currency]int64)
	balance := func(a account.Account, cur money.Currency) int64 {
		if deltas, ok := projected[a.ID()]; ok {
			return a.Balance(cur) + deltas[cur]
		}
		return a.Balance(cur)
	}
	adjust := func(a account.Account, cur money.Currency, delta int64) {
		if projected[a.ID()] == nil {
			projected[a.ID()] = make(map[money.Currency]int64)
		}
		projected[a.ID()][cur] += delta
	}

	for i, cmd := range cmds {
		if err := money.ValidatePositive(cmd.Amount); err != nil {
			return fmt.Errorf("%w: command %d: %v", ErrBatchAborted, i, err)
		}
		source, ok := l.roster.Lookup(cmd.SourceID)
		if !ok {
			return fmt.Errorf("%w: command %d: unknown source %q", ErrBatchAborted, i, cmd.SourceID)
		}
		dest, ok := l.roster.Lookup(cmd.DestID)
		if !ok {
			return fmt.Errorf("%w: command %d: unknown dest %q", ErrBatchAborted, i, cmd.DestID)
		}

		switch cmd.Op {
		case OpTransfer:
			if !source.AllowsOverdraft() && balance(source, cmd.Currency) < cmd.Amount {
				return fmt.Errorf("%w: command %d: source %q cannot cover %d",
					ErrBatchAborted, i, cmd.SourceID, cmd.Amount)
			}
			adjust(source, cmd.Currency, -cmd.Amount)
			adjust(dest, cmd.Currency, cmd.Amount)
		case OpMint:
			if !account.IsMonetaryAuthority(source) {
				return fmt.Errorf("%w: command %d: %q is not a monetary authority",
					ErrBatchAborted, i, cmd.SourceID)
			}
			adjust(dest, cmd.Currency, cmd.Amount)
		case OpBurn:
			if !account.IsMonetaryAuthority(dest) {
				return fmt.Errorf("%w: command %d: sink %q is not a monetary authority",
					ErrBatchAborted, i, cmd.DestID)
			}
			if !source.AllowsOverdraft() && balance(source, cmd.Currency) < cmd.Amount {
				return fmt.Errorf("%w: command %d: source %q cannot cover burn of %d",
					ErrBatchAborted, i, cmd.SourceID, cmd.Amount)
			}
			adjust(source, cmd.Currency, -cmd.Amount)
		default:
			return fmt.Errorf("%w: command %d: unknown op %q", ErrBatchAborted, i, cmd.Op)
		}
	}
	return nil
}
