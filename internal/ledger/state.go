package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultPath is the usage ledger file looked up in the repository root.
const DefaultPath = ".agent-usage.json"

// AgentUsage accumulates one agent's spend within a month.
type AgentUsage struct {
	Cost  decimal.Decimal `json:"cost"`
	Calls int             `json:"calls"`
}

// MonthlyUsage is created lazily on the first call of a month and only ever
// appended to afterwards. Cost always equals the sum of Agents[*].Cost.
type MonthlyUsage struct {
	Cost           decimal.Decimal        `json:"cost"`
	Agents         map[string]*AgentUsage `json:"agents"`
	LedgerRecordID *int                   `json:"ledgerRecordId"`
	AlertRaised    bool                   `json:"alertRaised"`
}

// AverageCost is the mean cost per call of an agent, zero without calls.
func (a *AgentUsage) AverageCost() decimal.Decimal {
	if a.Calls == 0 {
		return decimal.Zero
	}
	return a.Cost.Div(decimal.NewFromInt(int64(a.Calls)))
}

// State is the persisted ledger document.
type State struct {
	TotalSpent   decimal.Decimal          `json:"totalSpent"`
	MonthlyLimit *decimal.Decimal         `json:"monthlyLimit,omitempty"`
	Monthly      map[string]*MonthlyUsage `json:"monthly"`
}

func emptyState() State {
	return State{TotalSpent: decimal.Zero, Monthly: make(map[string]*MonthlyUsage)}
}

// readState loads path. A missing file yields an empty state; an unreadable
// one is moved aside with a .bak suffix and also yields an empty state.
func readState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read usage ledger: %w", err)
	}
	st := emptyState()
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("usage ledger is corrupt, starting a new one")
		if renameErr := os.Rename(path, path+".bak"); renameErr != nil {
			return State{}, fmt.Errorf("back up corrupt usage ledger: %w", renameErr)
		}
		return emptyState(), nil
	}
	if st.Monthly == nil {
		st.Monthly = make(map[string]*MonthlyUsage)
	}
	for _, m := range st.Monthly {
		if m.Agents == nil {
			m.Agents = make(map[string]*AgentUsage)
		}
	}
	return st, nil
}

// writeState replaces path atomically.
func writeState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal usage ledger: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create usage ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp usage ledger: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Chmod(0o644)
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write usage ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync usage ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close usage ledger: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace usage ledger: %w", err)
	}
	return nil
}
