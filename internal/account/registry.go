package account

import "sync"

// Directory is the in-memory Registry implementation used by the
// simulation. Registration happens once at agent creation; lookups on the
// settlement path are read-only.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{accounts: make(map[string]Account)}
}

// Register adds or replaces an account.
func (d *Directory) Register(a Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[a.ID()] = a
}

// Deregister removes an account, typically after agent death once its
// escrow settlement closes.
func (d *Directory) Deregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.accounts, id)
}

// Lookup resolves an account id.
func (d *Directory) Lookup(id string) (Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	return a, ok
}

// All returns every registered account. Used by the monetary ledger to
// compute actual M2 from live balances.
func (d *Directory) All() []Account {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Account, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, a)
	}
	return out
}
