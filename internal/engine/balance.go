package engine

import (
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// BalanceDelta returns the signed change a transaction applies to an account
// of the given type.
//
// Credit cards carry debt as a positive balance: a purchase (isCredit=false)
// raises it and a payment (isCredit=true) lowers it. Every other type is the
// reverse.
func BalanceDelta(accountType model.AccountType, amount decimal.Decimal, isCredit bool) decimal.Decimal {
	increases := isCredit
	if accountType == model.AccountTypeCreditCard {
		increases = !isCredit
	}
	if increases {
		return amount
	}
	return amount.Neg()
}

// applyTransaction adds the effect of (amount, isCredit) to the account balance.
func applyTransaction(account *model.Account, amount decimal.Decimal, isCredit bool) decimal.Decimal {
	delta := BalanceDelta(account.Type, amount, isCredit)
	account.Balance = account.Balance.Add(delta)
	return delta
}

// revertTransaction removes the effect of (amount, isCredit) from the account balance.
func revertTransaction(account *model.Account, amount decimal.Decimal, isCredit bool) decimal.Decimal {
	delta := BalanceDelta(account.Type, amount, isCredit)
	account.Balance = account.Balance.Sub(delta)
	return delta.Neg()
}
