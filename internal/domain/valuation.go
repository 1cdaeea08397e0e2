package domain

import "github.com/shopspring/decimal"

// NetContribution returns the section value minus its debt.
// Debt only counts for Real Estate sections.
func (s Section) NetContribution() decimal.Decimal {
	net := s.ValueDollars
	if s.AssetType == AssetTypeRealEstate {
		net = net.Sub(s.DebtDollars)
	}
	return net
}

// ComputeTotal sums the net contribution of every section.
// An empty list totals zero. Missing amounts decode to the zero Decimal, so
// they contribute nothing.
func ComputeTotal(sections []Section) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sections {
		total = total.Add(s.NetContribution())
	}
	return total
}
