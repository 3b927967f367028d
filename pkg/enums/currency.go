package enums

// Currency is the ISO currency code charged through the payment processor.
type Currency string

const (
	CurrencyUSD Currency = "usd"
)

func (c Currency) String() string {
	return string(c)
}
