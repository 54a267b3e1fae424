package domain

// Interval lengths in seconds. Period arithmetic uses the plan interval
// directly, matching the emulated platform.
const (
	SecondsPerDay   int64 = 86400
	SecondsPerWeek  int64 = 604800
	SecondsPerMonth int64 = 2592000
	SecondsPerYear  int64 = 31536000
)

// IntervalSeconds maps a plan interval to its length.
var IntervalSeconds = map[string]int64{
	"day":   SecondsPerDay,
	"week":  SecondsPerWeek,
	"month": SecondsPerMonth,
	"year":  SecondsPerYear,
}

// CardType describes a recognized test card number.
type CardType struct {
	Brand   string
	Country string
	Funding string
}

// TestCards is the set of card numbers the token endpoint accepts.
var TestCards = map[string]CardType{
	"4242424242424242": {Brand: "Visa", Country: "US", Funding: "credit"},
	"4012888888881881": {Brand: "Visa", Country: "US", Funding: "credit"},
	"4000056655665556": {Brand: "Visa", Country: "US", Funding: "debit"},
	"5555555555554444": {Brand: "MasterCard", Country: "US", Funding: "credit"},
	"5200828282828210": {Brand: "MasterCard", Country: "US", Funding: "debit"},
	"378282246310005":  {Brand: "American Express", Country: "US", Funding: "credit"},
	"371449635398431":  {Brand: "American Express", Country: "US", Funding: "credit"},
	"6011111111111117": {Brand: "Discover", Country: "US", Funding: "credit"},
	"30569309025904":   {Brand: "Diners Club", Country: "US", Funding: "credit"},
	"3566002020360505": {Brand: "JCB", Country: "JP", Funding: "credit"},
}
