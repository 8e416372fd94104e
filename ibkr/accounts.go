package ibkr

import "strings"

// accounts holds the fully expanded account names for one statement. Account
// naming is pure string templating over the configuration plus the
// statement's alias; nothing here touches the rows.
type accounts struct {
	stock        string // securities account
	cashRoot     string // liquidity account root, per-currency leaf appended
	div          string
	wht          string
	pnl          string
	fees         string
	interestRoot string // per-currency leaf appended
}

func newAccounts(cfg Config, alias string) accounts {
	stock := expandAlias(cfg.MainAccount, alias)
	cashRoot := strings.Replace(stock, cfg.StockAccountType, cfg.CashAccountType, 1)
	a := accounts{
		stock:    stock,
		cashRoot: cashRoot,
		div:      expandAlias(cfg.DivAccount, alias),
		wht:      expandAlias(cfg.WHTAccount, alias),
		pnl:      expandAlias(cfg.PnLAccount, alias),
		fees:     expandAlias(cfg.FeesAccount, alias),
	}
	// interest lands on the income side even though the rows are cash
	a.interestRoot = strings.Replace(cashRoot, "Assets", "Income", 1) + ":" + cfg.InterestSuffix
	return a
}

func expandAlias(template, alias string) string {
	return strings.ReplaceAll(template, "{alias}", alias)
}

// interest is the income account for one currency's broker interest.
func (a accounts) interest(currency string) string { return a.interestRoot + ":" + currency }

// cash is the liquidity account for one currency.
func (a accounts) cash(currency string) string { return a.cashRoot + ":" + currency }

// dividend is the income account for one symbol's dividends.
func (a accounts) dividend(symbol string) string { return a.div + ":" + symbol }

// withholding is the tax account for one symbol.
func (a accounts) withholding(symbol string) string { return a.wht + ":" + symbol }
