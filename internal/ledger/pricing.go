package ledger

import "github.com/shopspring/decimal"

// FallbackModel prices calls to models missing from the rate table.
const FallbackModel = "gpt-4o-mini"

// Rate is the price of a single input and output token in USD.
type Rate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

var thousand = decimal.NewFromInt(1000)

func perThousand(input, output string) Rate {
	return Rate{
		Input:  decimal.RequireFromString(input).Div(thousand),
		Output: decimal.RequireFromString(output).Div(thousand),
	}
}

var rates = map[string]Rate{
	"gpt-4o":           perThousand("0.0025", "0.01"),
	"gpt-4o-mini":      perThousand("0.00015", "0.0006"),
	"gpt-4.1":          perThousand("0.002", "0.008"),
	"gpt-4.1-mini":     perThousand("0.0004", "0.0016"),
	"gemini-2.5-flash": perThousand("0.0003", "0.0025"),
	"gemini-2.5-pro":   perThousand("0.00125", "0.01"),
}

// RateFor returns the rate of model and whether it was found in the table.
func RateFor(model string) (Rate, bool) {
	r, ok := rates[model]
	if !ok {
		return rates[FallbackModel], false
	}
	return r, true
}

// Cost prices one call: in*inputRate + out*outputRate.
func Cost(model string, inputTokens, outputTokens int) decimal.Decimal {
	r, _ := RateFor(model)
	return decimal.NewFromInt(int64(inputTokens)).Mul(r.Input).
		Add(decimal.NewFromInt(int64(outputTokens)).Mul(r.Output))
}
