package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Bank       AccountType = "bank"
	Credit     AccountType = "credit"
	Cash       AccountType = "cash"
	Debit      AccountType = "debit"
	Investment AccountType = "investment"
	// DebtLedger is reserved for the single virtual account that stands in
	// for the aggregate counterparty ledger.
	DebtLedger AccountType = "debt"
)

const (
	Income   TransactionKind = "income"
	Expense  TransactionKind = "expense"
	Transfer TransactionKind = "transfer"
	Debt     TransactionKind = "debt"
)

const (
	Lending   DebtKind = "lending"
	Borrowing DebtKind = "borrowing"
	Paying    DebtKind = "paying"
	Receiving DebtKind = "receiving"
)

type (
	AccountType     string
	TransactionKind string
	DebtKind        string

	Date struct {
		time.Time
	}

	Account struct {
		ID                int64
		Name              string
		Type              AccountType
		Balance           decimal.Decimal
		OpeningBalance    decimal.Decimal
		IsVirtual         bool
		IncludeInNetWorth bool
		ShowInInvestments bool
	}

	Category struct {
		ID   int64
		Name string
		Type string
	}

	// Transaction is a discriminated record: Kind selects which leg fields
	// are populated and Validate enforces the exact match. Amount is always
	// non-negative; direction is encoded by Kind and DebtKind, never by sign.
	Transaction struct {
		ID         int64
		Date       Date
		Name       string
		CategoryID int64
		Amount     decimal.Decimal
		Kind       TransactionKind

		// income
		IncomeAccountID int64

		// expense
		ExpenseAccountID  int64
		ExpenseInstrument string

		// transfer
		OutflowAccountID int64
		InflowAccountID  int64

		// debt
		DebtKind          DebtKind
		InvolvedAccountID int64
		Counterparty      string

		IsRefund bool
		Notes    string
	}

	NetWorthSample struct {
		Date     Date
		NetWorth decimal.Decimal
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrUnknownKind     = errors.New("unknown transaction kind")
	ErrUnknownDebtKind = errors.New("unknown debt kind")
	ErrKindMismatch    = errors.New("populated fields do not match transaction kind")
	ErrSameAccount     = errors.New("transfer source and destination must differ")
)

// NewDate builds a day-granularity date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

// DateFromSerial converts a spreadsheet serial day number (days since
// 1899-12-30, the convention Sheets and Excel share) to a Date.
func DateFromSerial(serial float64) Date {
	secs := int64((serial - 25569) * 86400)
	t := time.Unix(secs, 0).UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current date at day granularity.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Key returns the canonical map/sort key for the date.
func (d Date) Key() string {
	return d.String()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (k TransactionKind) Valid() bool {
	switch k {
	case Income, Expense, Transfer, Debt:
		return true
	}
	return false
}

func (k DebtKind) Valid() bool {
	switch k {
	case Lending, Borrowing, Paying, Receiving:
		return true
	}
	return false
}

// ParseDebtKind normalizes a debt subtype string. The legacy spreadsheet
// export used "sending" for what the app calls "paying".
func ParseDebtKind(s string) (DebtKind, error) {
	k := DebtKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "sending" {
		k = Paying
	}
	if !k.Valid() {
		return "", ErrUnknownDebtKind
	}
	return k, nil
}

// NewIncome builds an income transaction crediting the target account.
func NewIncome(date Date, name string, amount decimal.Decimal, accountID int64) Transaction {
	return Transaction{Date: date, Name: name, Amount: amount, Kind: Income, IncomeAccountID: accountID}
}

// NewExpense builds an expense transaction debiting the source account.
func NewExpense(date Date, name string, amount decimal.Decimal, accountID int64) Transaction {
	return Transaction{Date: date, Name: name, Amount: amount, Kind: Expense, ExpenseAccountID: accountID}
}

// NewTransfer builds a transfer moving amount between two accounts.
func NewTransfer(date Date, name string, amount decimal.Decimal, from, to int64) Transaction {
	return Transaction{Date: date, Name: name, Amount: amount, Kind: Transfer, OutflowAccountID: from, InflowAccountID: to}
}

// NewDebt builds a debt transaction against the counterparty ledger.
// involvedID may be zero when no real account takes part (borrowing).
func NewDebt(date Date, name string, amount decimal.Decimal, kind DebtKind, involvedID int64, counterparty string) Transaction {
	return Transaction{Date: date, Name: name, Amount: amount, Kind: Debt, DebtKind: kind, InvolvedAccountID: involvedID, Counterparty: counterparty}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.Amount.IsNegative() || t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if !t.Kind.Valid() {
		return ErrUnknownKind
	}

	hasIncome := t.IncomeAccountID != 0
	hasExpense := t.ExpenseAccountID != 0 || t.ExpenseInstrument != ""
	hasTransfer := t.OutflowAccountID != 0 || t.InflowAccountID != 0
	hasDebt := t.DebtKind != "" || t.InvolvedAccountID != 0 || t.Counterparty != ""

	switch t.Kind {
	case Income:
		if !hasIncome || hasExpense || hasTransfer || hasDebt {
			return ErrKindMismatch
		}
	case Expense:
		if t.ExpenseAccountID == 0 || hasIncome || hasTransfer || hasDebt {
			return ErrKindMismatch
		}
	case Transfer:
		if t.OutflowAccountID == 0 || t.InflowAccountID == 0 || hasIncome || hasExpense || hasDebt {
			return ErrKindMismatch
		}
		if t.OutflowAccountID == t.InflowAccountID {
			return ErrSameAccount
		}
	case Debt:
		if hasIncome || hasExpense || hasTransfer {
			return ErrKindMismatch
		}
		if !t.DebtKind.Valid() {
			return ErrUnknownDebtKind
		}
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Type {
	case Bank, Credit, Cash, Debit, Investment, DebtLedger:
		return nil
	}
	return errors.New("unknown account type")
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
