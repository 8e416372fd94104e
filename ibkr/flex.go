// Package ibkr imports Interactive Brokers flex-query statements and
// reconstructs the compound events the flex report splits across rows:
// dividends with their withholding tax, sales with their closed lots, and
// forward or reverse stock splits.
package ibkr

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beanport/beanport/date"
)

// FlexQueryResponse is the root of a flex statement download. Numeric and
// date attributes stay raw strings here; normalization converts them with
// tolerant parsing so one malformed row never aborts the file.
type FlexQueryResponse struct {
	XMLName        xml.Name        `xml:"FlexQueryResponse"`
	QueryName      string          `xml:"queryName,attr"`
	FlexStatements []FlexStatement `xml:"FlexStatements>FlexStatement"`
}

// FlexStatement is one account's slice of the report.
type FlexStatement struct {
	AccountID  string             `xml:"accountId,attr"`
	FromDate   string             `xml:"fromDate,attr"`
	ToDate     string             `xml:"toDate,attr"`
	Info       AccountInformation `xml:"AccountInformation"`
	CashTxns   []CashTransaction  `xml:"CashTransactions>CashTransaction"`
	Trades     TradeList          `xml:"Trades"`
	CashReport []CashReportCcy    `xml:"CashReport>CashReportCurrency"`
	Actions    []CorporateAction  `xml:"CorporateActions>CorporateAction"`
	Positions  []OpenPosition     `xml:"OpenPositions>OpenPosition"`
}

type AccountInformation struct {
	AccountID string `xml:"accountId,attr"`
	Alias     string `xml:"acctAlias,attr"`
	Currency  string `xml:"currency,attr"`
}

// CashTransaction covers dividends, withholding tax, deposits, interest and
// fees, discriminated by the Type attribute.
type CashTransaction struct {
	Type        string `xml:"type,attr"`
	Symbol      string `xml:"symbol,attr"`
	Description string `xml:"description,attr"`
	Currency    string `xml:"currency,attr"`
	Amount      string `xml:"amount,attr"`
	ReportDate  string `xml:"reportDate,attr"`
	DateTime    string `xml:"dateTime,attr"`
	ISIN        string `xml:"isin,attr"`
}

// Cash transaction type attribute values.
const (
	typeDividend       = "Dividends"
	typePaymentInLieu  = "Payment In Lieu Of Dividends"
	typeWithholdingTax = "Withholding Tax"
	typeDeposits       = "Deposits/Withdrawals"
	typeInterestPaid   = "Broker Interest Paid"
	typeInterestRecv   = "Broker Interest Received"
	typeOtherFees      = "Other Fees"
)

// TradeList preserves the document order of executions and closed lots. The
// report places each sale's lots right after the sale, and the lot pairing
// walks that order.
type TradeList struct {
	Items []Trade `xml:",any"`
}

// Trade is one execution or closed-lot element of the Trades section.
type Trade struct {
	XMLName         xml.Name
	TransactionType string `xml:"transactionType,attr"`
	LevelOfDetail   string `xml:"levelOfDetail,attr"`
	BuySell         string `xml:"buySell,attr"`
	Symbol          string `xml:"symbol,attr"`
	Description     string `xml:"description,attr"`
	Currency        string `xml:"currency,attr"`
	TradeDate       string `xml:"tradeDate,attr"`
	Quantity        string `xml:"quantity,attr"`
	TradePrice      string `xml:"tradePrice,attr"`
	Proceeds        string `xml:"proceeds,attr"`
	IBCommission    string `xml:"ibCommission,attr"`
	CommissionCcy   string `xml:"ibCommissionCurrency,attr"`
}

// IsClosedLot reports whether the element is a closed-lot detail row rather
// than an execution.
func (t Trade) IsClosedLot() bool {
	return t.LevelOfDetail == "CLOSED_LOT" || t.XMLName.Local == "Lot"
}

// CashReportCcy is one currency line of the cash report summary.
type CashReportCcy struct {
	Currency   string `xml:"currency,attr"`
	EndingCash string `xml:"endingCash,attr"`
	ToDate     string `xml:"toDate,attr"`
}

// CorporateAction is a split, spin-off or similar quantity-altering event.
type CorporateAction struct {
	Type        string `xml:"type,attr"`
	ActionID    string `xml:"actionID,attr"`
	Symbol      string `xml:"symbol,attr"`
	ISIN        string `xml:"isin,attr"`
	Description string `xml:"description,attr"`
	Currency    string `xml:"currency,attr"`
	ReportDate  string `xml:"reportDate,attr"`
	Quantity    string `xml:"quantity,attr"`
}

// OpenPosition carries the statement-end mark price of a held security.
type OpenPosition struct {
	Symbol     string `xml:"symbol,attr"`
	Currency   string `xml:"currency,attr"`
	MarkPrice  string `xml:"markPrice,attr"`
	ReportDate string `xml:"reportDate,attr"`
}

// ParseFlex decodes a flex query response document.
func ParseFlex(data []byte) (*FlexQueryResponse, error) {
	var resp FlexQueryResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing flex statement: %w", err)
	}
	return &resp, nil
}

// parseFlexDate accepts the date shapes flex reports use: "20250731",
// "2025-07-31", and datetime variants with a ";hhmmss" suffix.
func parseFlexDate(s string) (date.Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "; "); i >= 0 {
		s = s[:i]
	}
	if d, err := date.ParseLayout("20060102", s); err == nil {
		return d, nil
	}
	return date.Parse(s)
}
