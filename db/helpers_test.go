package db_test

import (
	"kitty-services/balances"

	"github.com/shopspring/decimal"
)

func balancesAccount(free, reserved int64) balances.Account {
	return balances.Account{Free: decimal.NewFromInt(free), Reserved: decimal.NewFromInt(reserved)}
}
