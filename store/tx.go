package store

// AccountTx is the unit of work handed to [AccountStore.UpdateAccount].
//
// Account is a private copy; callers mutate it in place. Token changes are
// staged and only applied when the callback returns nil.
type AccountTx struct {
	Account *Account

	tokens  map[TokenKind]*Token
	puts    map[TokenKind]*Token
	deletes map[TokenKind]struct{}
}

// NewAccountTx is used by backends to open a unit of work over a loaded
// account and its current tokens.
func NewAccountTx(acc *Account, tokens []*Token) *AccountTx {
	tx := &AccountTx{
		Account: acc,
		tokens:  make(map[TokenKind]*Token, len(tokens)),
		puts:    make(map[TokenKind]*Token),
		deletes: make(map[TokenKind]struct{}),
	}
	for _, t := range tokens {
		if t != nil {
			tx.tokens[t.Kind] = t
		}
	}
	return tx
}

// Token returns the live token of kind as seen by this unit of work,
// including staged changes, or nil.
func (tx *AccountTx) Token(kind TokenKind) *Token {
	if t, ok := tx.puts[kind]; ok {
		return t
	}
	if _, ok := tx.deletes[kind]; ok {
		return nil
	}
	return tx.tokens[kind]
}

// PutToken stages t as the account's live token of its kind, replacing any
// previous one.
func (tx *AccountTx) PutToken(t *Token) {
	t.AccountID = tx.Account.ID
	delete(tx.deletes, t.Kind)
	tx.puts[t.Kind] = t
}

// DeleteToken stages the removal of the account's token of kind.
func (tx *AccountTx) DeleteToken(kind TokenKind) {
	delete(tx.puts, kind)
	if _, ok := tx.tokens[kind]; ok {
		tx.deletes[kind] = struct{}{}
	}
}

// Staged returns the tokens to upsert and the kinds to delete, paired with
// the token each change replaces (nil when none existed).
func (tx *AccountTx) Staged() (puts []TokenChange, deletes []TokenChange) {
	for _, kind := range TokenKinds {
		if t, ok := tx.puts[kind]; ok {
			puts = append(puts, TokenChange{Kind: kind, Next: t, Previous: tx.tokens[kind]})
		}
		if _, ok := tx.deletes[kind]; ok {
			deletes = append(deletes, TokenChange{Kind: kind, Previous: tx.tokens[kind]})
		}
	}
	return puts, deletes
}

// TokenChange describes one staged token mutation.
type TokenChange struct {
	Kind     TokenKind
	Next     *Token
	Previous *Token
}
