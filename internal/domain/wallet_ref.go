package domain

// WalletRef is a transfer endpoint: either a real wallet or undeclared,
// meaning money entering or leaving the ledger without a wallet.
type WalletRef struct {
	id       string
	declared bool
}

// RealWallet references an existing wallet.
func RealWallet(id string) WalletRef {
	return WalletRef{id: id, declared: true}
}

// Undeclared references no wallet.
func Undeclared() WalletRef {
	return WalletRef{}
}

// ID returns the wallet id and whether the endpoint is a real wallet.
func (r WalletRef) ID() (string, bool) {
	return r.id, r.declared
}

// IsUndeclared reports whether the endpoint has no wallet.
func (r WalletRef) IsUndeclared() bool {
	return !r.declared
}

func (r WalletRef) String() string {
	if !r.declared {
		return "UNDECLARED"
	}
	return r.id
}
