package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers in the persisted records and the export document.
	decimal.MarshalJSONWithoutQuotes = true
}

// AssetType represents the kind of asset a section tracks
type AssetType string

const (
	AssetTypeCash       AssetType = "Cash"
	AssetTypeStock      AssetType = "Stock"
	AssetTypeRealEstate AssetType = "Real Estate"
	AssetTypeBonds      AssetType = "Bonds"
	AssetTypeCrypto     AssetType = "Crypto"
	AssetTypeRetirement AssetType = "Retirement"
	AssetTypeOther      AssetType = "Other"
)

// AssetTypes lists every supported asset type in display order
var AssetTypes = []AssetType{
	AssetTypeCash,
	AssetTypeStock,
	AssetTypeRealEstate,
	AssetTypeBonds,
	AssetTypeCrypto,
	AssetTypeRetirement,
	AssetTypeOther,
}

// Valid reports whether t is one of the supported asset types
func (t AssetType) Valid() bool {
	for _, known := range AssetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Section represents one financial account or asset entered by the user.
// The stock fields are only meaningful for Stock sections and the debt field
// only for Real Estate sections.
type Section struct {
	ID           uuid.UUID       `json:"id"`
	AccountName  string          `json:"accountName"`
	AssetType    AssetType       `json:"assetType"`
	ValueDollars decimal.Decimal `json:"valueDollars"` // Derived (price x shares) for Stock sections
	DebtDollars  decimal.Decimal `json:"debtDollars"`
	StockTicker  string          `json:"stockTicker"`
	Shares       decimal.Decimal `json:"shares"`
	PriceStale   bool            `json:"priceStale,omitempty"` // Value kept from before a failed price lookup
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewSection creates an empty Cash section with a fresh identifier
func NewSection(now time.Time) Section {
	return Section{
		ID:           uuid.New(),
		AssetType:    AssetTypeCash,
		ValueDollars: decimal.Zero,
		DebtDollars:  decimal.Zero,
		Shares:       decimal.Zero,
		UpdatedAt:    now,
	}
}

// Validate ensures the section adheres to domain rules
func (s *Section) Validate() error {
	if !s.AssetType.Valid() {
		return ErrInvalidAssetType
	}
	// Value and debt may be negative, e.g. a credit card balance.
	if s.Shares.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// IsStock reports whether the section is valued from a stock price
func (s *Section) IsStock() bool {
	return s.AssetType == AssetTypeStock
}

// Ticker returns the normalized ticker of the section
func (s *Section) Ticker() string {
	return NormalizeTicker(s.StockTicker)
}

// NeedsPrice reports whether the section value has to come from a price lookup
func (s *Section) NeedsPrice() bool {
	return s.IsStock() && s.Ticker() != "" && !s.Shares.IsZero()
}

// ChangeType switches the asset type and clears the fields that stop being relevant.
// A section that becomes a Stock keeps its ticker and shares but its value is
// zeroed until the next price refresh. Leaving Stock does not touch the value.
func (s *Section) ChangeType(newType AssetType, now time.Time) error {
	if !newType.Valid() {
		return ErrInvalidAssetType
	}
	if newType == s.AssetType {
		return nil
	}

	if newType == AssetTypeStock {
		s.ValueDollars = decimal.Zero
	} else {
		s.StockTicker = ""
		s.Shares = decimal.Zero
		s.PriceStale = false
	}
	if newType != AssetTypeRealEstate {
		s.DebtDollars = decimal.Zero
	}

	s.AssetType = newType
	s.UpdatedAt = now
	return nil
}

// SectionPatch carries the fields of a partial section update.
// Nil fields are left untouched.
type SectionPatch struct {
	AccountName  *string          `json:"accountName,omitempty"`
	ValueDollars *decimal.Decimal `json:"valueDollars,omitempty"`
	DebtDollars  *decimal.Decimal `json:"debtDollars,omitempty"`
	StockTicker  *string          `json:"stockTicker,omitempty"`
	Shares       *decimal.Decimal `json:"shares,omitempty"`
}

// TouchesStock reports whether the patch changes the inputs of a stock valuation
func (p SectionPatch) TouchesStock() bool {
	return p.StockTicker != nil || p.Shares != nil
}

// Apply validates the patch against the section's asset type and applies it
func (s *Section) Apply(p SectionPatch, now time.Time) error {
	if p.ValueDollars != nil && s.IsStock() {
		return ErrFieldNotApplicable
	}
	if p.DebtDollars != nil && s.AssetType != AssetTypeRealEstate {
		return ErrFieldNotApplicable
	}
	if (p.StockTicker != nil || p.Shares != nil) && !s.IsStock() {
		return ErrFieldNotApplicable
	}
	if p.Shares != nil && p.Shares.IsNegative() {
		return ErrNegativeAmount
	}

	if p.AccountName != nil {
		s.AccountName = *p.AccountName
	}
	if p.ValueDollars != nil {
		s.ValueDollars = *p.ValueDollars
	}
	if p.DebtDollars != nil {
		s.DebtDollars = *p.DebtDollars
	}
	if p.StockTicker != nil {
		s.StockTicker = *p.StockTicker
	}
	if p.Shares != nil {
		s.Shares = *p.Shares
	}
	s.UpdatedAt = now
	return nil
}

// CloneSections returns an independent copy of the given sections.
// Section only holds values (decimal.Decimal is immutable), so a copy of the
// slice is enough to sever every reference to the original.
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return []Section{}
	}
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}
