package config

import (
	"os"
	"strconv"
)

// Business settings, all env-backed with the defaults the company runs with.
// The invoice year is deliberately a fixed setting rather than the wall clock:
// numbering must stay monotonic within one configured series even across a
// year boundary, and the series is rolled by changing INVOICE_YEAR on purpose.

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// InvoiceYear is the year component of generated invoice numbers.
func InvoiceYear() int {
	return envInt("INVOICE_YEAR", 2025)
}

// InvoiceSeed is the first numeric suffix used when no invoices exist yet.
func InvoiceSeed() int {
	return envInt("INVOICE_SEED", 1017)
}

// DefaultHourlyRate is the starting rate for visit-derived line items.
func DefaultHourlyRate() float64 {
	return envFloat("DEFAULT_HOURLY_RATE", 40.0)
}

// RevenueGoal is the dashboard progress target.
func RevenueGoal() float64 {
	return envFloat("REVENUE_GOAL", 1000.0)
}

// ReservationSweepAfterHours is how long a visit may stay reserved against an
// unsaved draft before the reconciliation sweep releases it.
func ReservationSweepAfterHours() int {
	return envInt("RESERVATION_SWEEP_AFTER_HOURS", 24)
}

// Company identity printed on invoices.
func CompanyName() string { return envString("COMPANY_NAME", "Solamar Care") }

func CompanyAttn() string { return envString("COMPANY_ATTN", "Attn: Marc Bussio") }

func CompanyStreet() string { return envString("COMPANY_STREET", "6513 Easy Street") }

func CompanyCityLine() string {
	return envString("COMPANY_CITY_LINE", "Carlsbad, CA 92011")
}

func PaymentInstructions() string {
	return envString("PAYMENT_INSTRUCTIONS", "Please make payable to Marc Bussio. Pay by Venmo to @marcbussio")
}
