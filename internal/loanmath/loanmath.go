// Package loanmath provides the pure financial primitives shared by all
// partner adapters: EMI, effective APR, and amortization schedules.
//
// All rates are annual percentages (16 means 16% p.a.) and tenures are in
// months, matching lender disclosures.
package loanmath

import "math"

// Installment is one row of an amortization schedule.
type Installment struct {
	Month     int     `json:"month"`
	EMI       float64 `json:"emi"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// EMI computes the equated monthly installment under reducing-balance
// amortization: EMI = P*r*(1+r)^n / ((1+r)^n - 1), r = monthly rate.
// A zero rate degrades to straight-line P/n.
func EMI(principal, annualRate float64, tenureMonths int) float64 {
	if tenureMonths <= 0 || principal <= 0 {
		return 0
	}

	r := annualRate / 12 / 100
	if r == 0 {
		return principal / float64(tenureMonths)
	}

	pow := math.Pow(1+r, float64(tenureMonths))
	return principal * r * pow / (pow - 1)
}

// TotalRepayment is the sum of all installments for the given terms.
func TotalRepayment(principal, annualRate float64, tenureMonths int) float64 {
	return EMI(principal, annualRate, tenureMonths) * float64(tenureMonths)
}

// EffectiveAPR is the annualized internal rate of return of the borrower's
// actual cash flows: the lender disburses principal minus upfront fees but
// collects the full EMI stream, so the effective rate rises above the nominal
// rate as fees grow and converges to it as fees approach zero.
func EffectiveAPR(principal, nominalAnnualRate, upfrontFees float64, tenureMonths int) float64 {
	if tenureMonths <= 0 || principal <= 0 {
		return 0
	}

	net := principal - upfrontFees
	if net <= 0 {
		return 0
	}

	emi := EMI(principal, nominalAnnualRate, tenureMonths)
	if emi <= 0 {
		return 0
	}

	monthly := solveMonthlyRate(net, emi, tenureMonths)
	return monthly * 12 * 100
}

// solveMonthlyRate finds r such that the present value of tenure EMI payments
// at rate r equals the net disbursed amount. Bisection: PV is strictly
// decreasing in r, so the bracket [0, 1] always converges.
func solveMonthlyRate(netPrincipal, emi float64, tenureMonths int) float64 {
	n := float64(tenureMonths)

	// No financing cost at all.
	if emi*n <= netPrincipal {
		return 0
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 128; i++ {
		mid := (lo + hi) / 2
		if presentValue(emi, mid, tenureMonths) > netPrincipal {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func presentValue(emi, monthlyRate float64, tenureMonths int) float64 {
	if monthlyRate == 0 {
		return emi * float64(tenureMonths)
	}
	return emi * (1 - math.Pow(1+monthlyRate, -float64(tenureMonths))) / monthlyRate
}

// Schedule produces the month-by-month amortization of a loan. Interest is
// charged on the outstanding balance, so the interest component strictly
// decreases and the principal component strictly increases for any positive
// rate. The final balance lands at zero within float rounding.
func Schedule(principal, annualRate float64, tenureMonths int) []Installment {
	if tenureMonths <= 0 || principal <= 0 {
		return nil
	}

	emi := EMI(principal, annualRate, tenureMonths)
	r := annualRate / 12 / 100
	balance := principal

	rows := make([]Installment, 0, tenureMonths)
	for month := 1; month <= tenureMonths; month++ {
		interest := balance * r
		principalPart := emi - interest
		balance -= principalPart

		// Absorb float residue in the closing row.
		if month == tenureMonths && math.Abs(balance) < 1e-6 {
			principalPart += balance
			balance = 0
		}

		rows = append(rows, Installment{
			Month:     month,
			EMI:       emi,
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		})
	}
	return rows
}
